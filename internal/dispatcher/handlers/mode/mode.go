package mode

import (
	"context"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Action names for mode operations.
const (
	ActionSetMode = "setMode"
	ActionSetFlag = "setFlag"
	ActionIgnore  = "ignore"
)

type setModeArgs struct {
	Value string `mapstructure:"value"`
}

type setFlagArgs struct {
	Name      string `mapstructure:"name"`
	Value     any    `mapstructure:"value"`
	Transient bool   `mapstructure:"transient"`
}

// ModeHandler handles mode switching and flags.
type ModeHandler struct{}

// NewModeHandler creates a new mode handler.
func NewModeHandler() *ModeHandler {
	return &ModeHandler{}
}

// Actions returns the handled action names.
func (h *ModeHandler) Actions() []string {
	return []string{ActionSetMode, ActionSetFlag, ActionIgnore}
}

// HandleAction processes a mode action.
func (h *ModeHandler) HandleAction(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	switch action.Name {
	case ActionSetMode:
		return h.setMode(ctx, action.Args, ec)
	case ActionSetFlag:
		return h.setFlag(ctx, action.Args, ec)
	case ActionIgnore:
		return handler.NoOp()
	}
	return handler.Errorf("unknown mode action: %s", action.Name)
}

func (h *ModeHandler) setMode(ctx context.Context, raw map[string]any, ec *execctx.ExecutionContext) handler.Result {
	var args setModeArgs
	if err := handler.DecodeArgs(ActionSetMode, raw, &args); err != nil {
		return handler.Error(err)
	}
	if args.Value == "" {
		return handler.InvalidArgs(ActionSetMode, "value is required")
	}
	if res := ec.Compiled(); res != nil {
		if _, ok := res.Mode(args.Value); !ok {
			return handler.InvalidArgs(ActionSetMode, "unknown mode %q", args.Value)
		}
	}
	_, err := ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		return s.Set(state.ModeKey, args.Value, state.Public()), nil
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.Success()
}

func (h *ModeHandler) setFlag(ctx context.Context, raw map[string]any, ec *execctx.ExecutionContext) handler.Result {
	var args setFlagArgs
	if err := handler.DecodeArgs(ActionSetFlag, raw, &args); err != nil {
		return handler.Error(err)
	}
	if args.Name == "" {
		return handler.InvalidArgs(ActionSetFlag, "name is required")
	}
	if args.Value == nil {
		args.Value = true
	}
	opts := []state.Option{state.Public()}
	if args.Transient {
		opts = append(opts, state.Transient(zero(args.Value)))
	}
	_, err := ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		return s.Set(args.Name, args.Value, opts...), nil
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.Success()
}

// zero is the value a transient flag resets to.
func zero(v any) any {
	switch v.(type) {
	case bool:
		return false
	case string:
		return ""
	case int, int64, float64:
		return 0
	default:
		return nil
	}
}
