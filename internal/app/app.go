package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/capture"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/config"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/config/watcher"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/expr"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Host is a host that can also install compiled bindings.
type Host interface {
	host.Host
	Install(bindings []keymap.Binding) error
}

// Options configures the application.
type Options struct {
	// Settings are validated before anything is built.
	Settings config.Settings

	// Host receives the bindings and runs the commands. Required.
	Host Host

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Application is one assembled session.
type Application struct {
	settings config.Settings
	host     Host
	logger   *slog.Logger
	metrics  *Metrics

	eval       *expr.Evaluator
	store      *state.Store
	compiler   *keymap.Compiler
	bindings   *keymap.Active
	capture    *capture.Manager
	dispatcher *dispatcher.Dispatcher

	// mu serializes loads and guards specPath and watcher.
	mu       sync.Mutex
	specPath string
	watcher  *watcher.Watcher
	closed   atomic.Bool
}

// New builds every component. When the settings name a specification file
// it is loaded and installed before New returns.
func New(opts Options) (*Application, error) {
	if opts.Host == nil {
		return nil, ErrNoHost
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, &InitError{Component: "settings", Err: err}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &Application{
		settings: opts.Settings,
		host:     opts.Host,
		logger:   logger,
		metrics:  NewMetrics(),
	}
	if err := newBootstrapper(app).bootstrap(context.Background()); err != nil {
		return nil, err
	}
	return app, nil
}

// Compile loads and compiles a specification file without installing it.
// Document problems come first in the result's Problems.
func (app *Application) Compile(ctx context.Context, path string) (*keymap.Result, error) {
	doc, problems, err := spec.LoadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	res := app.compiler.Compile(ctx, doc)
	res.Problems = append(problems, res.Problems...)
	return res, nil
}

// Load compiles path and swaps it in as the active binding set. A file
// that cannot be read or parsed leaves the previous set installed.
func (app *Application) Load(ctx context.Context, path string) (diag.Problems, error) {
	if app.closed.Load() {
		return nil, ErrClosed
	}
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.load(ctx, path, time.Now())
}

// Reload recompiles the current specification file.
func (app *Application) Reload(ctx context.Context) (diag.Problems, error) {
	app.mu.Lock()
	path := app.specPath
	app.mu.Unlock()
	if path == "" {
		return nil, config.ErrNoSpecPath
	}
	return app.Load(ctx, path)
}

func (app *Application) load(ctx context.Context, path string, start time.Time) (diag.Problems, error) {
	res, err := app.Compile(ctx, path)
	if err != nil {
		app.metrics.RecordFailure()
		app.logger.Warn("specification not loaded", "path", path, "error", err)
		app.host.ShowError(err.Error())
		return nil, err
	}
	if err := app.host.Install(res.Bindings); err != nil {
		app.metrics.RecordFailure()
		return nil, &LoadError{Path: path, Err: err}
	}
	prev := app.bindings.Store(res)
	app.specPath = path
	app.report(res.Problems)

	if prev == nil {
		err = app.dispatcher.Init(ctx)
	} else {
		err = app.settle(ctx, res)
	}
	if err != nil {
		return res.Problems, err
	}
	app.metrics.RecordLoad(time.Since(start), len(res.Bindings), len(res.Problems))
	app.logger.Info("specification loaded",
		"path", path,
		"bindings", len(res.Bindings),
		"problems", len(res.Problems))
	return res.Problems, nil
}

// settle clears pending prefixes and counts after a swap, and falls back to
// the default mode when the current one no longer exists. A running key
// capture is left alone.
func (app *Application) settle(ctx context.Context, res *keymap.Result) error {
	if app.capture.Active() {
		return nil
	}
	_, err := app.store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		s = s.Reset()
		if _, ok := res.Mode(state.Value(s, state.ModeKey, "")); !ok {
			s = s.Set(state.ModeKey, res.DefaultMode)
		}
		return s, nil
	})
	if err != nil {
		return err
	}
	return app.store.Resolve(ctx)
}

func (app *Application) report(problems diag.Problems) {
	if len(problems) == 0 {
		return
	}
	for _, p := range problems {
		app.logger.Warn("specification problem", "severity", p.Severity, "source", p.Source, "msg", p.Message)
	}
	app.host.ShowError(problems.Summary(app.settings.MaxProblems))
}

// Watch reloads the specification file whenever it changes on disk.
func (app *Application) Watch() error {
	if app.closed.Load() {
		return ErrClosed
	}
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.watcher != nil {
		return ErrWatching
	}
	if app.specPath == "" {
		return config.ErrNoSpecPath
	}
	w, err := watcher.New(
		watcher.WithDebounce(app.settings.WatchDebounce),
		watcher.WithLogger(app.logger),
	)
	if err != nil {
		return err
	}
	if err := w.Watch(app.specPath); err != nil {
		_ = w.Close()
		return err
	}
	w.OnChange(app.onChange)
	app.watcher = w
	return nil
}

func (app *Application) onChange(ev watcher.Event) {
	if ev.Op == watcher.OpRemove {
		app.logger.Warn("specification file removed", "path", ev.Path)
		return
	}
	app.logger.Debug("specification file changed", "path", ev.Path, "op", ev.Op)
	if _, err := app.Reload(context.Background()); err != nil {
		app.logger.Warn("reload failed", "path", ev.Path, "error", err)
	}
}

// Close stops watching and releases every component. It is idempotent.
func (app *Application) Close() error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}
	app.mu.Lock()
	w := app.watcher
	app.watcher = nil
	app.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	app.capture.Cancel()
	app.dispatcher.Close()
	app.store.Close()
	return err
}

// SpecPath returns the file the active bindings were loaded from.
func (app *Application) SpecPath() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.specPath
}

// Settings returns the settings the application was built with.
func (app *Application) Settings() config.Settings { return app.settings }

// Bindings returns the active compiled binding set, or nil.
func (app *Application) Bindings() *keymap.Result { return app.bindings.Load() }

// Dispatcher returns the command dispatcher.
func (app *Application) Dispatcher() *dispatcher.Dispatcher { return app.dispatcher }

// Store returns the session state store.
func (app *Application) Store() *state.Store { return app.store }

// Evaluator returns the expression evaluator.
func (app *Application) Evaluator() *expr.Evaluator { return app.eval }

// Metrics returns the load counters.
func (app *Application) Metrics() *Metrics { return app.metrics }
