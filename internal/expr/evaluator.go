package expr

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
	gocache "github.com/patrickmn/go-cache"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 250 * time.Millisecond

// Program is a compiled expression.
type Program struct {
	src  string
	prog *goja.Program
	err  error
}

// Source returns the expression text.
func (p *Program) Source() string {
	return p.src
}

// Evaluator compiles, caches and evaluates expressions.
// It is safe for concurrent use; each evaluation runs on a fresh runtime.
type Evaluator struct {
	cache   *gocache.Cache
	batch   *diag.Batch
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithBatch sets the diagnostic batch that receives reported errors.
func WithBatch(b *diag.Batch) Option {
	return func(e *Evaluator) {
		if b != nil {
			e.batch = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTimeout sets the per-evaluation timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		cache:   gocache.New(gocache.NoExpiration, 0),
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.batch == nil {
		e.batch = diag.NewBatch(diag.DefaultMaxBatch, e.logger)
	}
	e.logger = e.logger.With("component", "expr")
	return e
}

// Batch returns the diagnostic batch errors are reported to.
func (e *Evaluator) Batch() *diag.Batch {
	return e.batch
}

// Compile compiles src, returning a cached program when src was seen before.
// Compile failures are cached too.
func (e *Evaluator) Compile(src string) (*Program, error) {
	if v, ok := e.cache.Get(src); ok {
		p := v.(*Program)
		return p, p.err
	}

	p := &Program{src: src}
	if err := checkAssignment(src); err != nil {
		p.err = &Error{Expr: src, Err: err}
	} else {
		// Wrapping in parens restricts the source to a single expression.
		prog, err := goja.Compile("expr", "("+src+"\n)", true)
		if err != nil {
			p.err = &Error{Expr: src, Err: err}
		}
		p.prog = prog
	}
	e.cache.Set(src, p, gocache.NoExpiration)
	return p, p.err
}

// Evaluate runs a compiled program against bindings and exports the result
// to a Go value (string, bool, int64, float64, []any, map[string]any or nil).
// bindings is never modified.
func (e *Evaluator) Evaluate(p *Program, bindings map[string]any) (any, error) {
	v, err := e.run(p, bindings)
	if err != nil {
		return nil, err
	}
	return export(v), nil
}

// Eval compiles and evaluates src.
func (e *Evaluator) Eval(src string, bindings map[string]any) (any, error) {
	p, err := e.Compile(src)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(p, bindings)
}

// EvalReported is Eval with failures reported to the batch; it returns
// ok=false when evaluation failed.
func (e *Evaluator) EvalReported(src string, bindings map[string]any) (any, bool) {
	v, err := e.Eval(src, bindings)
	if err != nil {
		e.report(err)
		return nil, false
	}
	return v, true
}

// Condition evaluates src as a guard. Errors are reported and count as false.
func (e *Evaluator) Condition(src string, bindings map[string]any) bool {
	p, err := e.Compile(src)
	if err != nil {
		e.report(err)
		return false
	}
	v, err := e.run(p, bindings)
	if err != nil {
		e.report(err)
		return false
	}
	return v.ToBoolean()
}

// Number evaluates src and requires a numeric result.
func (e *Evaluator) Number(src string, bindings map[string]any) (float64, error) {
	v, err := e.Eval(src, bindings)
	if err != nil {
		return 0, err
	}
	n, ok := AsNumber(v)
	if !ok {
		return 0, &Error{Expr: src, Err: fmt.Errorf("%w: got %T", ErrNotNumber, v)}
	}
	return n, nil
}

// Template replaces each {...} span in s with the string value of its
// expression. Spans that fail are kept verbatim and reported.
func (e *Evaluator) Template(s string, bindings map[string]any) string {
	return e.template(s, bindings, true)
}

// Substitute is Template without reporting: failing spans are kept verbatim.
// The compiler uses it for placeholders whose other spans are meant for
// runtime evaluation.
func (e *Evaluator) Substitute(s string, bindings map[string]any) string {
	return e.template(s, bindings, false)
}

func (e *Evaluator) template(s string, bindings map[string]any, reportErrors bool) string {
	spans := scanSpans(s)
	if len(spans) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(s[last:sp.start])
		inner := s[sp.start+1 : sp.end-1]
		p, err := e.Compile(inner)
		var v goja.Value
		if err == nil {
			v, err = e.run(p, bindings)
		}
		if err != nil {
			if reportErrors {
				e.report(err)
			}
			b.WriteString(s[sp.start:sp.end])
		} else {
			b.WriteString(v.String())
		}
		last = sp.end
	}
	b.WriteString(s[last:])
	return b.String()
}

func (e *Evaluator) report(err error) {
	e.logger.Debug("expression failed", "err", err)
	e.batch.Report(err.Error())
}

func (e *Evaluator) run(p *Program, bindings map[string]any) (goja.Value, error) {
	if p == nil {
		return nil, errors.New("expr: nil program")
	}
	if p.err != nil {
		return nil, p.err
	}

	vm := goja.New()
	if err := bindBuiltins(vm); err != nil {
		return nil, &Error{Expr: p.src, Err: err}
	}
	for k, v := range bindings {
		if err := vm.Set(k, deepCopy(v)); err != nil {
			return nil, &Error{Expr: p.src, Err: err}
		}
	}

	timer := time.AfterFunc(e.timeout, func() { vm.Interrupt(ErrTimeout) })
	defer timer.Stop()

	v, err := vm.RunProgram(p.prog)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, &Error{Expr: p.src, Err: ErrTimeout}
		}
		return nil, &Error{Expr: p.src, Err: err}
	}
	return v, nil
}

func bindBuiltins(vm *goja.Runtime) error {
	if err := vm.Set("startsWith", func(s, prefix string) bool { return strings.HasPrefix(s, prefix) }); err != nil {
		return err
	}
	if err := vm.Set("endsWith", func(s, suffix string) bool { return strings.HasSuffix(s, suffix) }); err != nil {
		return err
	}
	return vm.Set("contains", func(s, sub string) bool { return strings.Contains(s, sub) })
}

func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// AsNumber converts a numeric Go value to float64.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Truthy applies JavaScript truthiness to an exported value.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	default:
		if n, ok := AsNumber(v); ok {
			return n != 0
		}
		return true
	}
}

// Format stringifies an exported value the way a template would.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "undefined"
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = deepCopy(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = deepCopy(val)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = val
		}
		return out
	default:
		return v
	}
}
