package app

import (
	"context"
	"time"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/capture"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	capturehandler "github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/capture"
	counthandler "github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/count"
	macrohandler "github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/macro"
	modehandler "github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/mode"
	prefixhandler "github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/prefix"
	searchhandler "github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/search"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/expr"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Handlers returns one of each built-in command handler.
func Handlers() []handler.Handler {
	return []handler.Handler{
		modehandler.NewModeHandler(),
		counthandler.NewCountHandler(),
		prefixhandler.NewPrefixHandler(),
		capturehandler.NewCaptureHandler(),
		searchhandler.NewSearchHandler(),
		macrohandler.NewMacroHandler(),
	}
}

// bootstrapper builds components in dependency order and tears down the
// ones already built when a later step fails.
type bootstrapper struct {
	app       *Application
	initOrder []string
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{app: app, initOrder: make([]string, 0, 5)}
}

func (b *bootstrapper) bootstrap(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"evaluator", b.initEvaluator},
		{"store", b.initStore},
		{"compiler", b.initCompiler},
		{"dispatcher", b.initDispatcher},
		{"bindings", b.initBindings},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			b.cleanup()
			return &InitError{Component: s.name, Err: err}
		}
		b.initOrder = append(b.initOrder, s.name)
		b.app.logger.Debug("initialized", "component", s.name)
	}
	return nil
}

func (b *bootstrapper) initEvaluator(context.Context) error {
	s := b.app.settings
	b.app.eval = expr.New(
		expr.WithLogger(b.app.logger),
		expr.WithBatch(diag.NewBatch(s.MaxExpressionErrors, b.app.logger)),
	)
	return nil
}

func (b *bootstrapper) initStore(context.Context) error {
	b.app.store = state.NewStore(
		state.WithMirror(b.app.host),
		state.WithContextPrefix(b.app.settings.ContextPrefix),
		state.WithLogger(b.app.logger),
	)
	return nil
}

func (b *bootstrapper) initCompiler(context.Context) error {
	s := b.app.settings
	b.app.compiler = keymap.NewCompiler(
		keymap.WithEvaluator(b.app.eval),
		keymap.WithLogger(b.app.logger),
		keymap.WithNamespace(s.Namespace),
		keymap.WithContextPrefix(s.ContextPrefix),
	)
	b.app.bindings = &keymap.Active{}
	return nil
}

func (b *bootstrapper) initDispatcher(context.Context) error {
	s := b.app.settings
	b.app.capture = capture.NewManager(b.app.host, b.app.store, b.app.logger)
	ec := execctx.New().
		WithStore(b.app.store).
		WithHost(b.app.host).
		WithEvaluator(b.app.eval).
		WithBindings(b.app.bindings).
		WithCapture(b.app.capture).
		WithLogger(b.app.logger)
	cfg := dispatcher.DefaultConfig().
		WithNamespace(s.Namespace).
		WithMaxHistory(s.MaxHistory).
		WithReplayDelay(s.ReplayDelay)
	d, err := dispatcher.New(cfg, ec)
	if err != nil {
		return err
	}
	for _, h := range Handlers() {
		if err := d.Register(h); err != nil {
			d.Close()
			return err
		}
	}
	if err := d.Install(); err != nil {
		d.Close()
		return err
	}
	b.app.dispatcher = d
	return nil
}

func (b *bootstrapper) initBindings(ctx context.Context) error {
	if b.app.settings.SpecPath == "" {
		return b.app.dispatcher.Init(ctx)
	}
	_, err := b.app.load(ctx, b.app.settings.SpecPath, time.Now())
	return err
}

// cleanup releases components in reverse order of initialization.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "dispatcher":
			b.app.dispatcher.Close()
		case "store":
			b.app.store.Close()
		}
	}
	b.initOrder = nil
}
