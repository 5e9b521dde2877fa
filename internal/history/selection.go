package history

import (
	"errors"
	"maps"

	"github.com/go-viper/mapstructure/v2"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/expr"
)

// ErrNoSelector indicates a range selection without value, at or range.
var ErrNoSelector = errors.New("history: one of value, at or range is required")

// Range bounds a selection by two expressions.
type Range struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Selector picks a slice of history. Exactly one field should be set.
//
// At and Range expressions are evaluated once per history index with
// "index" bound to that index, scanning from the newest entry backwards.
type Selector struct {
	Value []Entry `mapstructure:"value"`
	At    string  `mapstructure:"at"`
	Range *Range  `mapstructure:"range"`
}

// DecodeSelector decodes selector arguments strictly.
func DecodeSelector(args map[string]any) (Selector, error) {
	var sel Selector
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &sel,
	})
	if err != nil {
		return sel, err
	}
	if err := dec.Decode(args); err != nil {
		return sel, err
	}
	if sel.Value == nil && sel.At == "" && sel.Range == nil {
		return sel, ErrNoSelector
	}
	return sel, nil
}

// Select resolves sel against entries. scope holds the values expressions
// see besides index. It returns false when nothing matched.
func Select(ev *expr.Evaluator, entries []Entry, scope map[string]any, sel Selector) ([]Entry, bool) {
	switch {
	case sel.Value != nil:
		return sel.Value, len(sel.Value) > 0
	case sel.At != "":
		i := scanBack(ev, sel.At, scope, len(entries)-1)
		if i < 0 {
			return nil, false
		}
		return entries[i : i+1], true
	case sel.Range != nil:
		to := scanBack(ev, sel.Range.To, scope, len(entries)-1)
		if to < 0 {
			return nil, false
		}
		from := scanBack(ev, sel.Range.From, scope, to)
		if from < 0 {
			return nil, false
		}
		return entries[from : to+1], true
	}
	return nil, false
}

// scanBack returns the highest index <= start for which src is truthy or
// numeric, or -1. A numeric result matches even when it is 0.
func scanBack(ev *expr.Evaluator, src string, scope map[string]any, start int) int {
	if src == "" {
		return -1
	}
	vars := maps.Clone(scope)
	if vars == nil {
		vars = make(map[string]any, 1)
	}
	for i := start; i >= 0; i-- {
		vars["index"] = i
		v, ok := ev.EvalReported(src, vars)
		if !ok {
			return -1
		}
		if _, isNum := expr.AsNumber(v); isNum || expr.Truthy(v) {
			return i
		}
	}
	return -1
}
