// Package dispatchertest assembles a dispatcher over an in-memory host
// for tests.
package dispatchertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/capture"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/expr"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Header declares a default "normal" mode and an "insert" mode that
// records edits. Documents passed to New are appended to it.
const Header = `
[header]
version = "1.0"

[[mode]]
name = "normal"
default = true

[[mode]]
name = "insert"
recordEdits = true
whenNoBinding = "insertCharacters"
`

// Env is an assembled session.
type Env struct {
	Host       *host.Memory
	Store      *state.Store
	Eval       *expr.Evaluator
	Bindings   *keymap.Active
	Capture    *capture.Manager
	Dispatcher *dispatcher.Dispatcher
}

// New compiles Header+body, installs the bindings into a memory host with
// text in its editor, and registers handlers alongside the do command.
func New(t testing.TB, body, text string, handlers ...handler.Handler) *Env {
	t.Helper()
	ctx := context.Background()

	eval := expr.New()
	h := host.NewMemory(
		host.WithWhenEvaluator(eval),
		host.WithEditor(host.NewMemoryEditor("test.txt", text)),
	)
	st := state.NewStore(state.WithMirror(h))
	t.Cleanup(st.Close)

	doc, problems, err := spec.Parse([]byte(Header+body), spec.FormatTOML, "test.toml")
	require.NoError(t, err)
	require.Empty(t, problems)
	res := keymap.NewCompiler(keymap.WithEvaluator(eval)).Compile(ctx, doc)
	require.Empty(t, res.Problems)

	active := &keymap.Active{}
	active.Store(res)

	ec := execctx.New().
		WithStore(st).
		WithHost(h).
		WithEvaluator(eval).
		WithBindings(active).
		WithCapture(capture.NewManager(h, st, nil))
	d, err := dispatcher.New(dispatcher.DefaultConfig().WithReplayDelay(time.Millisecond), ec)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	for _, hd := range handlers {
		require.NoError(t, d.Register(hd))
	}
	require.NoError(t, d.Install())
	require.NoError(t, h.Install(res.Bindings))
	require.NoError(t, d.Init(ctx))

	return &Env{Host: h, Store: st, Eval: eval, Bindings: active, Capture: ec.Capture, Dispatcher: d}
}

// Run executes a built-in action through the host, as a binding would.
func (e *Env) Run(ctx context.Context, action string, args map[string]any) (host.Result, error) {
	out, err := e.Host.ExecuteCommand(ctx, e.Dispatcher.Command(action), args)
	if err != nil {
		return host.Result{}, err
	}
	r, _ := out.(host.Result)
	return r, nil
}

// Start runs action in the background and waits until it intercepts typing.
// The returned channel delivers its outcome.
func (e *Env) Start(t testing.TB, ctx context.Context, action string, args map[string]any) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := e.Run(ctx, action, args)
		done <- err
	}()
	require.Eventually(t, e.Host.Intercepting, time.Second, time.Millisecond)
	return done
}

// Value reads a key from the latest state.
func Value[T any](e *Env, key string, def T) T {
	return state.Value(e.Store.Snapshot(), key, def)
}
