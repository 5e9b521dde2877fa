package prefix

import (
	"context"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// ActionPrefix advances the key prefix.
const ActionPrefix = "prefix"

type prefixArgs struct {
	Code int `mapstructure:"code"`
	// Flag names a transient public flag set alongside the prefix.
	Flag string `mapstructure:"flag"`
}

// PrefixHandler handles prefix.
type PrefixHandler struct{}

// NewPrefixHandler creates a prefix handler.
func NewPrefixHandler() *PrefixHandler {
	return &PrefixHandler{}
}

// Actions returns the handled action names.
func (h *PrefixHandler) Actions() []string {
	return []string{ActionPrefix}
}

// HandleAction sets prefixCode and prefix from the code.
func (h *PrefixHandler) HandleAction(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	var args prefixArgs
	if err := handler.DecodeArgs(action.Name, action.Args, &args); err != nil {
		return handler.Error(err)
	}
	res := ec.Compiled()
	if res == nil || res.Codes == nil {
		return handler.Error(execctx.ErrNoBindings)
	}
	name, err := res.Codes.NameFor(args.Code)
	if err != nil {
		return handler.InvalidArgs(action.Name, "%v", err)
	}
	_, err = ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		s = s.Set(state.PrefixCodeKey, args.Code, state.Public(), state.Transient(0)).
			Set(state.PrefixKey, name, state.Public(), state.Transient(""))
		if args.Flag != "" {
			s = s.Set(args.Flag, true, state.Public(), state.Transient(false))
		}
		return s, nil
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.Success()
}
