// Package handler defines the interface built-in commands implement.
package handler

import (
	"context"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
)

// Action is one invocation of a built-in command.
type Action struct {
	// Name is the command name without its namespace, e.g. "setMode".
	Name string
	Args map[string]any
}

// Handler processes one or more built-in commands.
type Handler interface {
	// Actions lists the command names this handler processes.
	Actions() []string

	// HandleAction runs the named command.
	HandleAction(ctx context.Context, action Action, ec *execctx.ExecutionContext) Result
}

// ActionFunc handles a single action.
type ActionFunc func(ctx context.Context, args map[string]any, ec *execctx.ExecutionContext) Result

// Table is a Handler built from a set of functions keyed by action name.
type Table map[string]ActionFunc

// Actions implements Handler.
func (t Table) Actions() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	return names
}

// HandleAction implements Handler.
func (t Table) HandleAction(ctx context.Context, action Action, ec *execctx.ExecutionContext) Result {
	fn, ok := t[action.Name]
	if !ok {
		return Errorf("unknown action %q", action.Name)
	}
	return fn(ctx, action.Args, ec)
}
