package search

import (
	"context"
	"fmt"
	"maps"
	"regexp"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/capture"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Action names for search operations.
const (
	ActionSearch        = "search"
	ActionNextMatch     = "nextMatch"
	ActionPreviousMatch = "previousMatch"
)

// DefaultRegister names the register used when none is given.
const DefaultRegister = "default"

// Where a match leaves the cursor.
const (
	OffsetStart     = "start"
	OffsetEnd       = "end"
	OffsetInclusive = "inclusive"
	OffsetExclusive = "exclusive"
)

// Args are the search settings.
type Args struct {
	Text            string `mapstructure:"text"`
	Regex           bool   `mapstructure:"regex"`
	CaseSensitive   bool   `mapstructure:"caseSensitive"`
	Backwards       bool   `mapstructure:"backwards"`
	Offset          string `mapstructure:"offset"`
	WrapAround      bool   `mapstructure:"wrapAround"`
	AcceptAfter     int    `mapstructure:"acceptAfter"`
	SelectTillMatch bool   `mapstructure:"selectTillMatch"`
	Register        string `mapstructure:"register"`
}

func (a Args) toMap() map[string]any {
	return map[string]any{
		"text":            a.Text,
		"regex":           a.Regex,
		"caseSensitive":   a.CaseSensitive,
		"backwards":       a.Backwards,
		"offset":          a.Offset,
		"wrapAround":      a.WrapAround,
		"acceptAfter":     a.AcceptAfter,
		"selectTillMatch": a.SelectTillMatch,
		"register":        a.Register,
	}
}

type registerArgs struct {
	Register string `mapstructure:"register"`
}

// Registers maps register names to the last search made in them.
type Registers map[string]Args

// SearchHandler handles search actions.
type SearchHandler struct{}

// NewSearchHandler creates a search handler.
func NewSearchHandler() *SearchHandler {
	return &SearchHandler{}
}

// Actions returns the handled action names.
func (h *SearchHandler) Actions() []string {
	return []string{ActionSearch, ActionNextMatch, ActionPreviousMatch}
}

// HandleAction processes a search action.
func (h *SearchHandler) HandleAction(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	switch action.Name {
	case ActionSearch:
		return h.search(ctx, action.Args, ec)
	case ActionNextMatch:
		return h.repeat(ctx, action, ec, false)
	case ActionPreviousMatch:
		return h.repeat(ctx, action, ec, true)
	}
	return handler.Errorf("unknown search action: %s", action.Name)
}

func (h *SearchHandler) search(ctx context.Context, raw map[string]any, ec *execctx.ExecutionContext) handler.Result {
	args := Args{Offset: OffsetStart, Register: DefaultRegister}
	if err := handler.DecodeArgs(ActionSearch, raw, &args); err != nil {
		return handler.Error(err)
	}
	switch args.Offset {
	case OffsetStart, OffsetEnd, OffsetInclusive, OffsetExclusive:
	default:
		return handler.InvalidArgs(ActionSearch, "unknown offset %q", args.Offset)
	}
	if args.AcceptAfter < 0 {
		return handler.InvalidArgs(ActionSearch, "acceptAfter must not be negative")
	}
	ed := ec.Host.ActiveEditor()
	if ed == nil {
		return handler.NoOpWithMessage("No active editor")
	}
	origin := ed.Selections()

	if args.Text == "" {
		preview := func(text string) {
			m, err := newMatcher(args, text)
			if err != nil {
				return
			}
			moved, _ := m.apply(ed, origin)
			ed.SetSelections(moved)
		}
		text, res, ok := capture.Read(ctx, ec, capture.Accept(args.AcceptAfter, preview))
		if !ok {
			ed.SetSelections(origin)
			return res
		}
		args.Text = text
	}

	m, err := newMatcher(args, args.Text)
	if err != nil {
		return handler.InvalidArgs(ActionSearch, "%v", err)
	}
	if _, err := ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		regs := maps.Clone(state.Value(s, state.SearchKey, Registers{}))
		if regs == nil {
			regs = Registers{}
		}
		regs[args.Register] = args
		return s.Set(state.SearchKey, regs), nil
	}); err != nil {
		return handler.Error(err)
	}

	res := handler.SuccessWithArgs(args.toMap())
	if moved, found := m.apply(ed, origin); !found {
		res.Message = fmt.Sprintf("No match for %q", args.Text)
	} else {
		ed.SetSelections(moved)
	}
	return res
}

func (h *SearchHandler) repeat(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext, reverse bool) handler.Result {
	var ra registerArgs
	if err := handler.DecodeArgs(action.Name, action.Args, &ra); err != nil {
		return handler.Error(err)
	}
	if ra.Register == "" {
		ra.Register = DefaultRegister
	}
	regs := state.Value(ec.State(ctx), state.SearchKey, Registers{})
	args, ok := regs[ra.Register]
	if !ok {
		return handler.NoOpWithMessage(fmt.Sprintf("No search in register %q", ra.Register))
	}
	if reverse {
		args.Backwards = !args.Backwards
	}
	ed := ec.Host.ActiveEditor()
	if ed == nil {
		return handler.NoOpWithMessage("No active editor")
	}
	m, err := newMatcher(args, args.Text)
	if err != nil {
		return handler.Error(err)
	}
	moved, found := m.apply(ed, ed.Selections())
	if !found {
		return handler.NoOpWithMessage(fmt.Sprintf("No match for %q", args.Text))
	}
	ed.SetSelections(moved)
	return handler.SuccessWithArgs(map[string]any{"register": ra.Register})
}

type matcher struct {
	args Args
	re   *regexp.Regexp
}

func newMatcher(args Args, text string) (*matcher, error) {
	pattern := text
	if !args.Regex {
		pattern = regexp.QuoteMeta(text)
	}
	if !args.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", text, err)
	}
	return &matcher{args: args, re: re}, nil
}

func (m *matcher) apply(ed host.Editor, from []host.Selection) ([]host.Selection, bool) {
	text := ed.Text()
	out := make([]host.Selection, len(from))
	found := false
	for i, sel := range from {
		out[i] = sel
		if pos, ok := m.find(text, sel.Active); ok {
			found = true
			out[i] = m.land(sel, pos)
		}
	}
	return out, found
}

func (m *matcher) land(sel host.Selection, pos int) host.Selection {
	if m.args.SelectTillMatch {
		return host.Selection{Anchor: sel.Anchor, Active: pos}
	}
	return host.Cursor(pos)
}

// find returns where the cursor lands for the next match from off in the
// search direction. A forward search skips a match starting at off.
func (m *matcher) find(text string, off int) (int, bool) {
	var matches [][]int
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if loc[1] > loc[0] {
			matches = append(matches, loc)
		}
	}
	if len(matches) == 0 {
		return 0, false
	}
	var hit []int
	if m.args.Backwards {
		for i := len(matches) - 1; i >= 0; i-- {
			if matches[i][0] < off && m.landing(matches[i]) != off {
				hit = matches[i]
				break
			}
		}
		if hit == nil && m.args.WrapAround {
			hit = matches[len(matches)-1]
		}
	} else {
		for _, loc := range matches {
			if loc[0] > off {
				hit = loc
				break
			}
		}
		if hit == nil && m.args.WrapAround {
			hit = matches[0]
		}
	}
	if hit == nil {
		return 0, false
	}
	return m.landing(hit), true
}

// landing maps a match to a cursor offset. Inclusive lands past the match
// in the direction of travel, exclusive stops short of it.
func (m *matcher) landing(loc []int) int {
	start, end := loc[0], loc[1]
	switch m.args.Offset {
	case OffsetEnd:
		return end
	case OffsetInclusive:
		if m.args.Backwards {
			return start
		}
		return end
	case OffsetExclusive:
		if m.args.Backwards {
			return end
		}
		return start
	}
	return start
}
