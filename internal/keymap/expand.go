package keymap

import (
	"fmt"
	"strings"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/input/key"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
)

const maxDefineDepth = 8

// entry is an item moving through the expansion stages.
type entry struct {
	src  string
	item spec.Item
	do   []spec.Command

	// set by key expansion
	key string

	// set by prefix expansion
	prefix      string
	allPrefixes bool

	// set by mode expansion
	mode string
}

// expandDefaults merges path defaults into every item and flattens its
// command list.
func (c *Compiler) expandDefaults(doc *spec.Document, problems *diag.Problems) []entry {
	defaults := make(map[string]spec.Item, len(doc.Path))
	for _, p := range doc.Path {
		defaults[p.ID] = spec.Merge(defaults[p.Parent()], p.Default)
	}

	out := make([]entry, 0, len(doc.Bind))
	for _, it := range doc.Bind {
		src := fmt.Sprintf("bind[%d]", it.Index)
		base, ok := defaults[it.Path]
		if it.Path != "" && !ok {
			problems.Errorf(src, "unknown path %q", it.Path)
			continue
		}
		merged := spec.Merge(base, it)
		if len(merged.Key) == 0 {
			problems.Errorf(src, "missing key")
			continue
		}
		if spec.Deref(merged.Command, "") == "" {
			problems.Errorf(src, "missing command")
			continue
		}
		do, err := c.commandList(merged, doc.Define)
		if err != nil {
			problems.Errorf(src, "%v", err)
			continue
		}
		if err := c.checkExpressions(merged, do); err != nil {
			problems.Errorf(src, "%v", err)
			continue
		}
		out = append(out, entry{src: src, item: merged, do: do})
	}
	return out
}

func (c *Compiler) commandList(it spec.Item, define map[string]any) ([]spec.Command, error) {
	name := *it.Command
	if name != "runCommands" {
		return []spec.Command{{
			Command:      name,
			Args:         spec.CloneMap(it.Args),
			ComputedArgs: it.ComputedArgs,
			If:           it.If,
		}}, nil
	}
	list, ok := it.Args["commands"].([]any)
	if !ok {
		return nil, ErrRunCommands
	}
	return flattenCommands(list, define, 0)
}

func flattenCommands(list []any, define map[string]any, depth int) ([]spec.Command, error) {
	if depth > maxDefineDepth {
		return nil, ErrDefineDepth
	}
	var out []spec.Command
	for i, el := range list {
		if m, ok := el.(map[string]any); ok {
			if ref, ok := m["defined"]; ok {
				name, _ := ref.(string)
				def, ok := define[name]
				if !ok {
					return nil, fmt.Errorf("%w: %q", ErrUndefined, ref)
				}
				sub, ok := def.([]any)
				if !ok {
					sub = []any{def}
				}
				cmds, err := flattenCommands(sub, define, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, cmds...)
				continue
			}
		}
		cmd, err := spec.DecodeCommand(el)
		if err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
		if cmd.Command == "runCommands" {
			nested, ok := cmd.Args["commands"].([]any)
			if !ok {
				return nil, ErrRunCommands
			}
			cmds, err := flattenCommands(nested, define, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, cmds...)
			continue
		}
		out = append(out, cmd)
	}
	return out, nil
}

// checkExpressions compiles every expression an item carries so syntax
// errors surface at compile time rather than on the first key press.
func (c *Compiler) checkExpressions(it spec.Item, do []spec.Command) error {
	check := func(what, src string) error {
		if strings.Contains(src, "{key") {
			return nil
		}
		if _, err := c.eval.Compile(src); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		return nil
	}
	if s, ok := it.Repeat.(string); ok {
		if err := check("repeat", s); err != nil {
			return err
		}
	}
	for _, cmd := range do {
		if s, ok := cmd.If.(string); ok {
			if err := check("if", s); err != nil {
				return err
			}
		}
		for name, src := range cmd.ComputedArgs {
			if err := check("computedArgs."+name, src); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandKeys produces one entry per concrete key sequence.
func (c *Compiler) expandKeys(in []entry, problems *diag.Problems) []entry {
	out := make([]entry, 0, len(in))
	for _, e := range in {
		for _, k := range e.item.Key {
			fields := strings.Fields(k)
			if len(fields) == 0 {
				problems.Errorf(e.src, "empty key")
				continue
			}
			last := fields[len(fields)-1]
			lead := strings.Join(fields[:len(fields)-1], " ")
			keys, pattern, err := key.ExpandPattern(last)
			if err != nil {
				problems.Errorf(e.src, "key %q: %v", k, err)
				continue
			}
			if !pattern {
				keys = []string{last}
			}
			for _, kk := range keys {
				ne := e
				ne.key = key.JoinPrefix(lead, kk)
				ne.item, ne.do = c.substituteKey(e.item, e.do, kk)
				out = append(out, ne)
			}
		}
	}
	return out
}

func (c *Compiler) substituteKey(it spec.Item, do []spec.Command, k string) (spec.Item, []spec.Command) {
	bindings := map[string]any{"key": k}
	sub := func(s string) string {
		if !strings.Contains(s, "{key") {
			return s
		}
		return c.eval.Substitute(s, bindings)
	}

	if it.Name != nil {
		it.Name = spec.Ptr(sub(*it.Name))
	}
	if it.Description != nil {
		it.Description = spec.Ptr(sub(*it.Description))
	}
	if it.Kind != nil {
		it.Kind = spec.Ptr(sub(*it.Kind))
	}
	if s, ok := it.Repeat.(string); ok {
		it.Repeat = sub(s)
	}
	if len(it.When) > 0 {
		when := make([]string, len(it.When))
		for i, w := range it.When {
			when[i] = sub(w)
		}
		it.When = when
	}

	outDo := make([]spec.Command, len(do))
	for i, cmd := range do {
		cmd = cmd.Clone()
		cmd.Command = sub(cmd.Command)
		cmd.Args = substituteMap(cmd.Args, sub)
		for name, src := range cmd.ComputedArgs {
			cmd.ComputedArgs[name] = sub(src)
		}
		if s, ok := cmd.If.(string); ok {
			cmd.If = sub(s)
		}
		outDo[i] = cmd
	}
	return it, outDo
}

func substituteMap(m map[string]any, sub func(string) string) map[string]any {
	for k, v := range m {
		m[k] = substituteValue(v, sub)
	}
	return m
}

func substituteValue(v any, sub func(string) string) any {
	switch x := v.(type) {
	case string:
		return sub(x)
	case map[string]any:
		return substituteMap(x, sub)
	case []any:
		for i := range x {
			x[i] = substituteValue(x[i], sub)
		}
		return x
	default:
		return v
	}
}

// expandPrefixes produces one entry per valid prefix.
func (c *Compiler) expandPrefixes(in []entry, problems *diag.Problems) []entry {
	out := make([]entry, 0, len(in))
	for _, e := range in {
		prefixes := e.item.Prefixes
		if prefixes == nil {
			prefixes = []string{""}
		}
		for _, p := range prefixes {
			ne := e
			switch {
			case p == AllPrefixes:
				if len(strings.Fields(e.key)) > 1 {
					problems.Errorf(e.src, "key sequence %q cannot be bound under %s", e.key, AllPrefixes)
					continue
				}
				ne.allPrefixes = true
			case strings.TrimSpace(p) == "":
				ne.prefix = ""
			default:
				seq, err := key.ParseSequence(p)
				if err != nil {
					problems.Errorf(e.src, "prefix %q: %v", p, err)
					continue
				}
				ne.prefix = seq.String()
			}
			out = append(out, ne)
		}
	}
	return out
}

// expandModes produces one entry per mode.
func (c *Compiler) expandModes(in []entry, doc *spec.Document, problems *diag.Problems) []entry {
	valid := doc.ModeNames()
	def := doc.DefaultMode()
	out := make([]entry, 0, len(in))
	for _, e := range in {
		modes, err := resolveModes(e.item.Mode, valid, def)
		if err != nil {
			problems.Errorf(e.src, "%v", err)
			continue
		}
		for _, m := range modes {
			ne := e
			ne.mode = m
			out = append(out, ne)
		}
	}
	return out
}

// resolveModes expands a mode list against the declared modes. An empty
// list means the default mode; a negated list means every declared mode
// except those named and the capture mode.
func resolveModes(modes, valid []string, def string) ([]string, error) {
	if len(modes) == 0 {
		return []string{def}, nil
	}
	known := make(map[string]bool, len(valid))
	for _, v := range valid {
		known[v] = true
	}

	negated := 0
	for _, m := range modes {
		if strings.HasPrefix(m, "!") {
			negated++
		}
	}
	if negated > 0 && negated != len(modes) {
		return nil, fmt.Errorf("%w: %v", ErrModeMix, modes)
	}

	if negated > 0 {
		exclude := make(map[string]bool, len(modes))
		for _, m := range modes {
			name := strings.TrimPrefix(m, "!")
			if !known[name] {
				return nil, fmt.Errorf("%w: %q", ErrUnknownMode, name)
			}
			exclude[name] = true
		}
		var out []string
		for _, v := range valid {
			if !exclude[v] && v != spec.CaptureMode {
				out = append(out, v)
			}
		}
		return out, nil
	}

	seen := make(map[string]bool, len(modes))
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		if !known[m] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMode, m)
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}
