package macro

import (
	"context"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Action names for macro operations.
const (
	ActionPushHistory   = "pushHistoryToStack"
	ActionReplayHistory = "replayFromHistory"
	ActionReplayStack   = "replayFromStack"
	ActionRecord        = "record"
)

type stackArgs struct {
	Index int  `mapstructure:"index"`
	Keep  bool `mapstructure:"keep"`
	// Value replays these commands instead of reading the stack.
	Value []history.Entry `mapstructure:"value"`
}

type recordArgs struct {
	On bool `mapstructure:"on"`
}

// MacroHandler handles replay and macro actions.
type MacroHandler struct{}

// NewMacroHandler creates a macro handler.
func NewMacroHandler() *MacroHandler {
	return &MacroHandler{}
}

// Actions returns the handled action names.
func (h *MacroHandler) Actions() []string {
	return []string{ActionPushHistory, ActionReplayHistory, ActionReplayStack, ActionRecord}
}

// HandleAction processes a macro action.
func (h *MacroHandler) HandleAction(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	switch action.Name {
	case ActionPushHistory:
		return h.pushHistory(ctx, action, ec)
	case ActionReplayHistory:
		return h.replayHistory(ctx, action, ec)
	case ActionReplayStack:
		return h.replayStack(ctx, action, ec)
	case ActionRecord:
		return h.record(ctx, action, ec)
	}
	return handler.Errorf("unknown macro action: %s", action.Name)
}

func (h *MacroHandler) selection(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) ([]history.Entry, handler.Result, bool) {
	sel, err := history.DecodeSelector(action.Args)
	if err != nil {
		return nil, handler.InvalidArgs(action.Name, "%v", err), false
	}
	s := ec.State(ctx)
	entries, ok := history.Select(ec.Eval, history.Entries(s), ec.Scope(s), sel)
	if !ok {
		return nil, handler.NoOpWithMessage("No matching commands in history"), false
	}
	return entries, handler.Result{}, true
}

func (h *MacroHandler) pushHistory(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	entries, res, ok := h.selection(ctx, action, ec)
	if !ok {
		return res
	}
	if _, err := ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		return history.PushMacro(s, entries), nil
	}); err != nil {
		return handler.Error(err)
	}
	ec.Logger.Debug("pushed macro", "commands", len(entries))
	return handler.SuccessWithArgs(map[string]any{"value": entries})
}

func (h *MacroHandler) replayHistory(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	if ec.Replayer == nil {
		return handler.Error(execctx.ErrMissingReplayer)
	}
	entries, res, ok := h.selection(ctx, action, ec)
	if !ok {
		return res
	}
	return h.replay(ctx, ec, entries)
}

func (h *MacroHandler) replayStack(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	if ec.Replayer == nil {
		return handler.Error(execctx.ErrMissingReplayer)
	}
	var args stackArgs
	if err := handler.DecodeArgs(action.Name, action.Args, &args); err != nil {
		return handler.Error(err)
	}
	if args.Index < 0 {
		return handler.InvalidArgs(action.Name, "index must not be negative")
	}
	if args.Value != nil {
		return h.replay(ctx, ec, args.Value)
	}
	var (
		macro []history.Entry
		found bool
	)
	if _, err := ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		var next *state.State
		macro, next, found = history.TakeMacro(s, args.Index, args.Keep)
		return next, nil
	}); err != nil {
		return handler.Error(err)
	}
	if !found {
		return handler.NoOpWithMessage("No macro at that position")
	}
	return h.replay(ctx, ec, macro)
}

// replay runs entries and reports them as the replacement arguments, so a
// repeat replays the same commands rather than the next macro.
func (h *MacroHandler) replay(ctx context.Context, ec *execctx.ExecutionContext, entries []history.Entry) handler.Result {
	if err := ec.Replayer.Replay(ctx, entries); err != nil {
		return handler.Error(err)
	}
	return handler.SuccessWithArgs(map[string]any{"value": entries})
}

func (h *MacroHandler) record(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	var args recordArgs
	if err := handler.DecodeArgs(action.Name, action.Args, &args); err != nil {
		return handler.Error(err)
	}
	if _, err := ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		return s.Set(state.RecordKey, args.On, state.Public()), nil
	}); err != nil {
		return handler.Error(err)
	}
	return handler.Success()
}
