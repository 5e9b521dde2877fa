package keymap

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/input/key"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
)

type origin uint8

const (
	authored origin = iota
	autoPrefix
	autoIgnore
)

// candidate is a binding before guard composition.
type candidate struct {
	Binding
	whens       []string
	prefix      string
	allPrefixes bool
	origin      origin
	src         string
}

// tuple identifies a binding slot. Two candidates with the same tuple
// compete for the same key press.
type tuple struct {
	Key         string
	Mode        string
	When        []string `hash:"set"`
	Prefix      string
	AllPrefixes bool
}

func (c *candidate) fingerprint() uint64 {
	h, err := hashstructure.Hash(tuple{
		Key:         c.Key,
		Mode:        c.Args.Mode,
		When:        c.whens,
		Prefix:      c.prefix,
		AllPrefixes: c.allPrefixes,
	}, hashstructure.FormatV2, nil)
	if err != nil {
		// tuple holds only strings and bools
		panic(err)
	}
	return h
}

func (c *candidate) only(command string) bool {
	return len(c.Args.Do) == 1 && c.Args.Do[0].Command == command
}

// resolveSequences turns each entry into its terminal binding plus one
// prefix-advance binding per leading key.
func (c *Compiler) resolveSequences(in []entry, codes *PrefixCodes, problems *diag.Problems) []*candidate {
	prefixCmd := c.Command("prefix")
	out := make([]*candidate, 0, len(in))
	for _, e := range in {
		seq, err := key.ParseSequence(e.key)
		if err != nil {
			problems.Errorf(e.src, "%v", err)
			continue
		}
		keys := seq.Strings()
		cur := e.prefix
		for _, k := range keys[:len(keys)-1] {
			next := key.JoinPrefix(cur, k)
			out = append(out, &candidate{
				Binding: Binding{
					Key:     k,
					Command: c.Command("do"),
					Args: DoArgs{
						Do:            []spec.Command{{Command: prefixCmd, Args: map[string]any{"code": codes.CodeFor(next)}}},
						PrefixCode:    codes.CodeFor(cur),
						HideInPalette: true,
						HideInDocs:    true,
						Mode:          e.mode,
						Key:           next,
						Kind:          "prefix",
					},
				},
				whens:  e.item.When,
				prefix: cur,
				origin: autoPrefix,
				src:    e.src,
			})
			cur = next
		}

		last := keys[len(keys)-1]
		full := key.JoinPrefix(cur, last)
		code := -1
		if !e.allPrefixes {
			code = codes.CodeFor(cur)
		}
		do := e.do
		reset := spec.Deref(e.item.ResetTransient, true)
		if len(do) == 1 && do[0].Command == prefixCmd {
			// a hand-written prefix binding still advances to the code of
			// its own sequence
			pc := do[0].Clone()
			if pc.Args == nil {
				pc.Args = make(map[string]any, 1)
			}
			pc.Args["code"] = codes.CodeFor(full)
			do = []spec.Command{pc}
			if e.item.ResetTransient == nil {
				reset = false
			}
		}
		out = append(out, &candidate{
			Binding: Binding{
				Key:     last,
				Command: c.Command("do"),
				Args: DoArgs{
					Do:             do,
					PrefixCode:     code,
					Name:           spec.Deref(e.item.Name, ""),
					Description:    spec.Deref(e.item.Description, ""),
					HideInPalette:  spec.Deref(e.item.HideInPalette, false),
					HideInDocs:     spec.Deref(e.item.HideInDocs, false),
					ResetTransient: reset,
					Repeat:         e.item.Repeat,
					Mode:           e.mode,
					Key:            full,
					Priority:       spec.Deref(e.item.Priority, 0),
					Kind:           spec.Deref(e.item.Kind, ""),
					Path:           e.item.Path,
				},
			},
			whens:       e.item.When,
			prefix:      cur,
			allPrefixes: e.allPrefixes,
			origin:      authored,
			src:         e.src,
		})
	}
	return out
}

// table holds the deduplicated candidates in installation order.
type table struct {
	c        *Compiler
	order    []*candidate
	index    map[uint64]int
	problems *diag.Problems
}

func newTable(c *Compiler, problems *diag.Problems) *table {
	return &table{c: c, index: make(map[uint64]int), problems: problems}
}

// add inserts a candidate, resolving a collision with an existing one:
// identical bindings merge, ignore bindings always lose, a hand-written
// prefix binding beats a generated one, and anything else is reported as
// a conflict with the newer binding installed.
func (t *table) add(cand *candidate) {
	h := cand.fingerprint()
	i, ok := t.index[h]
	if !ok {
		t.index[h] = len(t.order)
		t.order = append(t.order, cand)
		return
	}
	old := t.order[i]
	ignore := t.c.Command("ignore")
	prefix := t.c.Command("prefix")
	switch {
	case reflect.DeepEqual(old.Binding, cand.Binding):
	case cand.only(ignore):
	case old.only(ignore):
		t.order[i] = cand
	case old.only(prefix) && cand.only(prefix) && (old.origin == autoPrefix || cand.origin == autoPrefix):
		if old.origin == autoPrefix && cand.origin == authored {
			t.order[i] = cand
		}
	default:
		t.problems.Warnf(cand.src, "key %q in mode %q conflicts with %s%s",
			cand.Args.Key, cand.Args.Mode, old.src, describe(old))
		t.order[i] = cand
	}
}

// fill inserts cand only where the slot is empty or held by an ignore binding.
func (t *table) fill(cand *candidate) {
	h := cand.fingerprint()
	i, ok := t.index[h]
	if !ok {
		t.index[h] = len(t.order)
		t.order = append(t.order, cand)
		return
	}
	if t.order[i].origin == autoIgnore {
		t.order[i] = cand
	}
}

func (t *table) candidates() []*candidate {
	return t.order
}

func describe(c *candidate) string {
	if c.Args.Name == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", c.Args.Name)
}

// ignoreCandidates covers every reference-layout key, plain and shifted,
// under every known prefix.
func (c *Compiler) ignoreCandidates(mode string, codes *PrefixCodes) []*candidate {
	layout := key.ReferenceLayout()
	names := codes.Names()
	out := make([]*candidate, 0, len(names)*len(layout)*2)
	for code, prefix := range names {
		for _, shifted := range []bool{false, true} {
			for _, k := range layout {
				if shifted {
					k = "shift+" + k
				}
				out = append(out, &candidate{
					Binding: Binding{
						Key:     k,
						Command: c.Command("do"),
						Args: DoArgs{
							Do:             []spec.Command{{Command: c.Command("ignore")}},
							PrefixCode:     code,
							HideInPalette:  true,
							HideInDocs:     true,
							ResetTransient: true,
							Mode:           mode,
							Key:            key.JoinPrefix(prefix, k),
							Kind:           "ignore",
						},
					},
					prefix: prefix,
					origin: autoIgnore,
					src:    fmt.Sprintf("mode[%s]", mode),
				})
			}
		}
	}
	return out
}

// applyFallbacks copies the bindings of each mode's fallback mode into any
// slot the mode leaves unbound. Modes are visited in declaration order, so
// a fallback that itself falls back contributes its inherited bindings
// when it was declared first.
func (c *Compiler) applyFallbacks(t *table, doc *spec.Document) {
	for _, m := range doc.Mode {
		if m.FallbackBindings == "" {
			continue
		}
		var copies []*candidate
		for _, cand := range t.order {
			if cand.Args.Mode != m.FallbackBindings || cand.origin == autoIgnore {
				continue
			}
			cp := *cand
			cp.Args.Mode = m.Name
			copies = append(copies, &cp)
		}
		for _, cp := range copies {
			t.fill(cp)
		}
		c.logger.Debug("applied fallback bindings", "mode", m.Name, "from", m.FallbackBindings, "candidates", len(copies))
	}
}

// composeGuards folds mode and prefix code into each candidate's when
// clause and returns the final bindings.
func (c *Compiler) composeGuards(cands []*candidate, codes *PrefixCodes) []Binding {
	out := make([]Binding, 0, len(cands))
	for _, cand := range cands {
		b := cand.Binding
		clauses := make([]string, 0, len(cand.whens)+2)
		for _, w := range cand.whens {
			if w = strings.TrimSpace(w); w != "" {
				clauses = append(clauses, paren(w))
			}
		}
		clauses = append(clauses, fmt.Sprintf("%s.mode == '%s'", c.contextPrefix, cand.Args.Mode))
		if !cand.allPrefixes {
			code, _ := codes.Lookup(cand.prefix)
			clauses = append(clauses, c.contextPrefix+".prefixCode == "+strconv.Itoa(code))
		}
		b.When = strings.Join(clauses, " && ")
		out = append(out, b)
	}
	return out
}

// paren wraps a clause unless it is a plain, possibly negated, identifier.
func paren(w string) string {
	for _, r := range strings.TrimPrefix(w, "!") {
		if !(r == '.' || r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "(" + w + ")"
		}
	}
	return w
}
