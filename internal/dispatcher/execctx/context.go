// Package execctx provides the execution context for built-in commands.
//
// One ExecutionContext is assembled at startup and handed to every handler.
// It owns no state of its own; it only names the collaborators a command
// may reach.
package execctx

import (
	"context"
	"log/slog"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/capture"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/expr"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// ExecutionContext is what built-in commands run against.
type ExecutionContext struct {
	// Store holds the session state. Handlers write through Store.Do with
	// the context they were given so writes join the running dispatch.
	Store *state.Store

	Host host.Host
	Eval *expr.Evaluator

	// Bindings is the active compiled binding set.
	Bindings *keymap.Active

	Capture  *capture.Manager
	Replayer *history.Replayer

	// MaxHistory bounds the command history.
	MaxHistory int

	Logger *slog.Logger
}

// New creates an execution context with defaults for optional parts.
func New() *ExecutionContext {
	return &ExecutionContext{
		Bindings:   &keymap.Active{},
		MaxHistory: history.DefaultMaxHistory,
		Logger:     slog.Default(),
	}
}

// WithStore returns the context with the store set.
func (ec *ExecutionContext) WithStore(st *state.Store) *ExecutionContext {
	ec.Store = st
	return ec
}

// WithHost returns the context with the host set.
func (ec *ExecutionContext) WithHost(h host.Host) *ExecutionContext {
	ec.Host = h
	return ec
}

// WithEvaluator returns the context with the evaluator set.
func (ec *ExecutionContext) WithEvaluator(ev *expr.Evaluator) *ExecutionContext {
	ec.Eval = ev
	return ec
}

// WithBindings returns the context with the active binding set.
func (ec *ExecutionContext) WithBindings(a *keymap.Active) *ExecutionContext {
	ec.Bindings = a
	return ec
}

// WithCapture returns the context with the capture manager set.
func (ec *ExecutionContext) WithCapture(m *capture.Manager) *ExecutionContext {
	ec.Capture = m
	return ec
}

// WithReplayer returns the context with the replayer set.
func (ec *ExecutionContext) WithReplayer(r *history.Replayer) *ExecutionContext {
	ec.Replayer = r
	return ec
}

// WithMaxHistory returns the context with the history bound set.
func (ec *ExecutionContext) WithMaxHistory(n int) *ExecutionContext {
	if n > 0 {
		ec.MaxHistory = n
	}
	return ec
}

// WithLogger returns the context with the logger set.
func (ec *ExecutionContext) WithLogger(l *slog.Logger) *ExecutionContext {
	if l != nil {
		ec.Logger = l
	}
	return ec
}

// Validate checks that the required collaborators are set.
func (ec *ExecutionContext) Validate() error {
	switch {
	case ec.Store == nil:
		return ErrMissingStore
	case ec.Host == nil:
		return ErrMissingHost
	case ec.Eval == nil:
		return ErrMissingEvaluator
	}
	return nil
}

// Compiled returns the active compiled binding set, or nil.
func (ec *ExecutionContext) Compiled() *keymap.Result {
	if ec.Bindings == nil {
		return nil
	}
	return ec.Bindings.Load()
}

// State returns the state version a command running under ctx should read.
func (ec *ExecutionContext) State(ctx context.Context) *state.State {
	return ec.Store.Latest(ctx)
}

// Scope returns the values expressions are evaluated against: every state
// key plus the document's definitions where no state key shadows them.
// History values are converted to plain maps.
func (ec *ExecutionContext) Scope(s *state.State) map[string]any {
	vars := s.Values()
	if entries, ok := vars[state.HistoryKey].([]history.Entry); ok {
		vars[state.HistoryKey] = history.Values(entries)
	}
	if macros, ok := vars[state.MacroKey].([][]history.Entry); ok {
		out := make([]any, len(macros))
		for i, m := range macros {
			out[i] = history.Values(m)
		}
		vars[state.MacroKey] = out
	}
	if res := ec.Compiled(); res != nil {
		for k, v := range res.Definitions {
			if _, ok := vars[k]; !ok {
				vars[k] = v
			}
		}
	}
	return vars
}

// Report queues a user-facing diagnostic.
func (ec *ExecutionContext) Report(format string, args ...any) {
	if ec.Eval == nil {
		ec.Logger.Warn("diagnostic dropped", "msg", format)
		return
	}
	ec.Eval.Batch().Reportf(format, args...)
}
