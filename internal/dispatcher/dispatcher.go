package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/expr"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Dispatcher runs command lists against the session state.
type Dispatcher struct {
	registry *Registry
	ec       *execctx.ExecutionContext
	recorder *history.Recorder
	config   Config
	logger   *slog.Logger
	tracer   trace.Tracer

	mu         sync.Mutex
	registered []host.Disposable
	status     *state.Subscription
}

// New creates a dispatcher over ec. When ec has no replayer one is created
// that replays through this dispatcher.
func New(config Config, ec *execctx.ExecutionContext) (*Dispatcher, error) {
	if err := ec.Validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if config.Namespace == "" {
		config.Namespace = def.Namespace
	}
	if config.MaxHistory <= 0 {
		config.MaxHistory = def.MaxHistory
	}
	logger := ec.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		registry: NewRegistry(),
		ec:       ec,
		recorder: history.NewRecorder(ec.Host),
		config:   config,
		logger:   logger.With("component", "dispatch"),
		tracer:   otel.Tracer("github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher"),
	}
	ec.WithMaxHistory(config.MaxHistory)
	if ec.Replayer == nil {
		ec.WithReplayer(history.NewReplayer(ec.Store, ec.Host, d, config.ReplayDelay, logger))
	}
	if err := d.registry.Register(doHandler{d: d}); err != nil {
		return nil, err
	}
	d.status = ec.Store.OnResolve("status", d.showStatus)
	return d, nil
}

// Register adds a built-in command handler.
func (d *Dispatcher) Register(h handler.Handler) error {
	return d.registry.Register(h)
}

// Registry returns the handler registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Context returns the execution context handlers run with.
func (d *Dispatcher) Context() *execctx.ExecutionContext {
	return d.ec
}

// Command returns the fully qualified name of a built-in action.
func (d *Dispatcher) Command(action string) string {
	return d.config.Namespace + "." + action
}

// Install registers every built-in action as a host command.
func (d *Dispatcher) Install() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, action := range d.registry.List() {
		disp, err := d.ec.Host.RegisterCommand(d.Command(action), d.hostCommand(action))
		if err != nil {
			return fmt.Errorf("install %s: %w", d.Command(action), err)
		}
		d.registered = append(d.registered, disp)
	}
	return nil
}

// Close unregisters host commands and stops observing the host.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	registered := d.registered
	d.registered = nil
	d.mu.Unlock()
	for _, r := range registered {
		r.Dispose()
	}
	d.status.Cancel()
	d.recorder.Close()
}

// Init sets the session keys every binding set relies on and resolves.
func (d *Dispatcher) Init(ctx context.Context) error {
	mode := ""
	if res := d.ec.Compiled(); res != nil {
		mode = res.DefaultMode
	}
	_, err := d.ec.Store.Do(ctx, func(ctx context.Context, s *state.State) (*state.State, error) {
		return s.Set(state.ModeKey, mode, state.Public()).
			Set(state.PrefixCodeKey, 0, state.Public(), state.Transient(0)).
			Set(state.PrefixKey, "", state.Public(), state.Transient("")).
			Set(state.CountKey, 0, state.Public(), state.Transient(0)).
			Set(state.RecordKey, false, state.Public()), nil
	})
	if err != nil {
		return err
	}
	return d.ec.Store.Resolve(ctx)
}

// hostCommand adapts a built-in action to a host command. Each call is one
// store transform followed by a resolve; argument errors are shown rather
// than returned.
func (d *Dispatcher) hostCommand(action string) host.CommandFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		var out map[string]any
		_, err := d.ec.Store.Do(ctx, func(ctx context.Context, _ *state.State) (*state.State, error) {
			var err error
			if out, err = d.Execute(ctx, action, args); err != nil {
				return nil, err
			}
			return nil, d.ec.Store.Resolve(ctx)
		})
		defer d.ec.Eval.Batch().Flush(d.ec.Host)

		var argsErr *handler.ArgsError
		switch {
		case errors.Is(err, ErrCancelled):
			return host.Result{Cancelled: true}, nil
		case errors.As(err, &argsErr):
			d.ec.Report("%v", err)
			return nil, nil
		case err != nil:
			return nil, err
		}
		return host.Result{Args: out}, nil
	}
}

// Execute runs a built-in action and returns any replacement arguments.
func (d *Dispatcher) Execute(ctx context.Context, action string, args map[string]any) (map[string]any, error) {
	h := d.registry.Get(action)
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	r := h.HandleAction(ctx, handler.Action{Name: action, Args: args}, d.ec)
	if r.Message != "" {
		d.ec.Host.ShowInfo(r.Message)
	}
	switch r.Status {
	case handler.StatusCancelled:
		return nil, ErrCancelled
	case handler.StatusError:
		if r.Error == nil {
			r.Error = fmt.Errorf("%s failed", action)
		}
		return nil, r.Error
	}
	return r.Args, nil
}

// Dispatch handles one binding's command list as a single transform.
func (d *Dispatcher) Dispatch(ctx context.Context, args keymap.DoArgs) (err error) {
	ctx, span := d.tracer.Start(ctx, "dispatcher.Dispatch", trace.WithAttributes(
		attribute.String("binding.name", args.Name),
		attribute.String("binding.key", args.Key),
		attribute.Int("commands", len(args.Do)),
	))
	defer func() {
		switch {
		case errors.Is(err, ErrCancelled):
			span.SetAttributes(attribute.Bool("cancelled", true))
			d.logger.Debug("dispatch cancelled", "binding", args.Name, "key", args.Key)
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.logger.Error("dispatch failed", "binding", args.Name, "key", args.Key, "error", err)
		}
		span.End()
	}()

	_, err = d.ec.Store.Do(ctx, func(ctx context.Context, _ *state.State) (*state.State, error) {
		return nil, d.dispatch(ctx, args)
	})
	d.ec.Eval.Batch().Flush(d.ec.Host)
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, args keymap.DoArgs) error {
	if _, err := d.ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		return d.recorder.Attach(s), nil
	}); err != nil {
		return err
	}

	repeat := d.resolveRepeat(ctx, args.Repeat)
	d.logger.Debug("dispatch", "binding", args.Name, "key", args.Key,
		"commands", len(args.Do), "repeat", repeat)

	ran, err := d.runList(ctx, args.Do)
	for i := 0; err == nil && i < repeat; i++ {
		err = d.rerun(ctx, ran)
	}
	// edits made by the commands themselves come back when they are replayed
	d.recorder.Discard()

	if err == nil && !d.prefixOnly(args.Do) {
		err = d.record(ctx, args.Name, ran, repeat)
	}
	if ferr := d.finalize(ctx, args.ResetTransient); err == nil {
		err = ferr
	}
	return err
}

// Run runs a command list and its repeats without recording history or
// finalizing. Replay uses it.
func (d *Dispatcher) Run(ctx context.Context, do []spec.Command, repeat int) error {
	_, err := d.ec.Store.Do(ctx, func(ctx context.Context, _ *state.State) (*state.State, error) {
		ran, err := d.runList(ctx, do)
		for i := 0; err == nil && i < repeat; i++ {
			err = d.rerun(ctx, ran)
		}
		return nil, err
	})
	return err
}

func (d *Dispatcher) resolveRepeat(ctx context.Context, v any) int {
	var n float64
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		if strings.TrimSpace(x) == "" {
			return 0
		}
		num, err := d.ec.Eval.Number(x, d.ec.Scope(d.ec.Store.Latest(ctx)))
		if err != nil {
			d.ec.Report("repeat: %v", err)
			return 0
		}
		n = num
	default:
		num, ok := expr.AsNumber(v)
		if !ok {
			d.ec.Report("repeat: expected a number or expression, got %T", v)
			return 0
		}
		n = num
	}
	if math.IsInf(n, 0) {
		d.ec.Report("repeat: %v is not a finite number", n)
		return 0
	}
	n = math.Max(0, math.Floor(n))
	if d.config.MaxRepeatCount > 0 && n > float64(d.config.MaxRepeatCount) {
		return d.config.MaxRepeatCount
	}
	return int(math.Min(n, math.MaxInt32))
}

// runList is the base pass. It returns the reified descriptors: computed
// arguments merged in, replacement arguments substituted and skipped
// descriptors marked If=false.
func (d *Dispatcher) runList(ctx context.Context, do []spec.Command) ([]spec.Command, error) {
	ran := make([]spec.Command, 0, len(do))
	for i, c := range do {
		var scope map[string]any
		if _, ok := c.If.(string); ok || len(c.ComputedArgs) > 0 {
			scope = d.ec.Scope(d.ec.Store.Latest(ctx))
		}
		if !d.condition(c.If, scope) {
			ran = append(ran, spec.Command{Command: c.Command, Args: spec.CloneMap(c.Args), If: false})
			continue
		}

		args := spec.CloneMap(c.Args)
		if len(c.ComputedArgs) > 0 {
			args = spec.DeepMerge(args, d.computeArgs(c.ComputedArgs, scope))
		}
		out, err := d.execute(ctx, i, c.Command, args)
		if err != nil {
			if isArgsError(err) {
				d.ec.Report("%v", err)
				continue
			}
			return ran, err
		}
		if out != nil {
			args = out
		}
		ran = append(ran, spec.Command{Command: c.Command, Args: args})
	}
	return ran, nil
}

// rerun runs reified descriptors again without re-evaluating anything.
func (d *Dispatcher) rerun(ctx context.Context, ran []spec.Command) error {
	for i, c := range ran {
		if skip, ok := c.If.(bool); ok && !skip {
			continue
		}
		if _, err := d.execute(ctx, i, c.Command, spec.CloneMap(c.Args)); err != nil {
			if isArgsError(err) {
				d.ec.Report("%v", err)
				continue
			}
			return err
		}
	}
	return nil
}

func (d *Dispatcher) condition(v any, scope map[string]any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return x
	case string:
		return d.ec.Eval.Condition(x, scope)
	default:
		d.ec.Report("if: expected a boolean or expression, got %T", v)
		return false
	}
}

func (d *Dispatcher) computeArgs(computed map[string]string, scope map[string]any) map[string]any {
	out := make(map[string]any, len(computed))
	for k, src := range computed {
		if v, ok := d.ec.Eval.EvalReported(src, scope); ok {
			out[k] = v
		}
	}
	return out
}

func (d *Dispatcher) execute(ctx context.Context, index int, name string, args map[string]any) (map[string]any, error) {
	if action, ok := strings.CutPrefix(name, d.config.Namespace+"."); ok && d.registry.Has(action) {
		out, err := d.Execute(ctx, action, args)
		if err != nil && !errors.Is(err, ErrCancelled) && !isArgsError(err) {
			return nil, &CommandError{Command: name, Index: index, Err: err}
		}
		return out, err
	}

	out, err := d.ec.Host.ExecuteCommand(ctx, name, args)
	switch {
	case errors.Is(err, host.ErrCancelled):
		return nil, ErrCancelled
	case err != nil:
		return nil, &CommandError{Command: name, Index: index, Err: err}
	}
	switch r := out.(type) {
	case host.Result:
		if r.Cancelled {
			return nil, ErrCancelled
		}
		return r.Args, nil
	case *host.Result:
		if r != nil && r.Cancelled {
			return nil, ErrCancelled
		}
		if r != nil {
			return r.Args, nil
		}
	}
	return nil, nil
}

func (d *Dispatcher) prefixOnly(do []spec.Command) bool {
	return len(do) == 1 && do[0].Command == d.Command("prefix")
}

func (d *Dispatcher) record(ctx context.Context, name string, ran []spec.Command, repeat int) error {
	_, err := d.ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		e := history.NewEntry(name, ran, repeat)
		e.Recorded = state.Value(s, state.RecordKey, false)
		if d.recordsEdits(state.Value(s, state.ModeKey, "")) {
			if ed := d.ec.Host.ActiveEditor(); ed != nil {
				e.Document = ed.Document()
			}
		}
		next, evicted := history.Append(s, e, d.ec.MaxHistory)
		if evicted > 0 {
			d.logger.Debug("history evicted", "count", evicted)
		}
		return next, nil
	})
	return err
}

func (d *Dispatcher) recordsEdits(mode string) bool {
	res := d.ec.Compiled()
	if res == nil {
		return false
	}
	m, ok := res.Mode(mode)
	return ok && m.RecordEdits
}

// finalize resolves so the status shows the keys just typed, then resets
// transient keys and resolves again.
func (d *Dispatcher) finalize(ctx context.Context, reset bool) error {
	if err := d.ec.Store.Resolve(ctx); err != nil {
		return err
	}
	if !reset {
		return nil
	}
	if _, err := d.ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		return s.Reset(), nil
	}); err != nil {
		return err
	}
	return d.ec.Store.Resolve(ctx)
}

func isArgsError(err error) bool {
	var ae *handler.ArgsError
	return errors.As(err, &ae)
}
