package count

import (
	"context"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// ActionUpdateCount appends a digit to the pending count.
const ActionUpdateCount = "updateCount"

type updateArgs struct {
	Value int `mapstructure:"value"`
}

// CountHandler accumulates typed digits into the transient count.
type CountHandler struct{}

// NewCountHandler creates a count handler.
func NewCountHandler() *CountHandler {
	return &CountHandler{}
}

// Actions returns the handled action names.
func (h *CountHandler) Actions() []string {
	return []string{ActionUpdateCount}
}

// HandleAction processes updateCount: count = count*10 + value.
func (h *CountHandler) HandleAction(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	var args updateArgs
	if err := handler.DecodeArgs(action.Name, action.Args, &args); err != nil {
		return handler.Error(err)
	}
	if args.Value < 0 || args.Value > 9 {
		return handler.InvalidArgs(action.Name, "value must be a digit, got %d", args.Value)
	}
	_, err := ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		return state.Update(s, state.CountKey, 0, func(n int) int {
			return n*10 + args.Value
		}, state.Public(), state.Transient(0)), nil
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.Success()
}
