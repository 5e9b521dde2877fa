package dispatcher

import (
	"context"
	"errors"

	"github.com/go-viper/mapstructure/v2"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
)

// DecodeDoArgs decodes the arguments of the do command as they arrive from
// a host keybinding. resetTransient defaults to true.
func DecodeDoArgs(args map[string]any) (keymap.DoArgs, error) {
	out := keymap.DoArgs{ResetTransient: true}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(args); err != nil {
		return out, err
	}
	return out, nil
}

// doHandler runs a binding's command list; compiled bindings all invoke it.
type doHandler struct {
	d *Dispatcher
}

func (h doHandler) Actions() []string {
	return []string{"do"}
}

func (h doHandler) HandleAction(ctx context.Context, a handler.Action, _ *execctx.ExecutionContext) handler.Result {
	args, err := DecodeDoArgs(a.Args)
	if err != nil {
		return handler.Error(&handler.ArgsError{Action: a.Name, Err: err})
	}
	switch err := h.d.Dispatch(ctx, args); {
	case errors.Is(err, ErrCancelled):
		return handler.Cancelled()
	case err != nil:
		return handler.Error(err)
	}
	return handler.Success()
}
