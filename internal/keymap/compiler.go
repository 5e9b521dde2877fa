package keymap

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/expr"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
)

// DefaultNamespace prefixes the built-in command names and the mirrored
// context keys.
const DefaultNamespace = "masterkey"

// AllPrefixes is the prefixes entry that makes a binding valid under any prefix.
const AllPrefixes = "<all-prefixes>"

// Compiler turns documents into binding sets.
type Compiler struct {
	eval          *expr.Evaluator
	logger        *slog.Logger
	namespace     string
	contextPrefix string
	tracer        trace.Tracer
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithEvaluator sets the evaluator used for {key} substitution and
// expression validation.
func WithEvaluator(e *expr.Evaluator) Option {
	return func(c *Compiler) {
		c.eval = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNamespace sets the built-in command namespace.
func WithNamespace(ns string) Option {
	return func(c *Compiler) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithContextPrefix sets the prefix of the mirrored context keys used in
// generated when clauses.
func WithContextPrefix(p string) Option {
	return func(c *Compiler) {
		if p != "" {
			c.contextPrefix = p
		}
	}
}

// NewCompiler creates a compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		logger:        slog.Default(),
		namespace:     DefaultNamespace,
		contextPrefix: DefaultNamespace,
		tracer:        otel.Tracer("github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.eval == nil {
		c.eval = expr.New(expr.WithLogger(c.logger))
	}
	c.logger = c.logger.With("component", "keymap")
	return c
}

// Command returns the fully qualified name of a built-in command.
func (c *Compiler) Command(name string) string {
	return c.namespace + "." + name
}

// Compile runs the full pipeline. It always returns a result; problems
// describe what was dropped or overridden.
func (c *Compiler) Compile(ctx context.Context, doc *spec.Document) *Result {
	_, span := c.tracer.Start(ctx, "keymap.Compile")
	defer span.End()

	var problems diag.Problems
	res := &Result{
		Codes:       NewPrefixCodes(),
		Modes:       doc.Mode,
		DefaultMode: doc.DefaultMode(),
		Definitions: spec.CloneMap(doc.Define),
	}

	entries := c.expandDefaults(doc, &problems)
	c.logger.Debug("expanded defaults", "items", len(entries))
	entries = c.expandKeys(entries, &problems)
	c.logger.Debug("expanded keys", "items", len(entries))
	entries = c.expandPrefixes(entries, &problems)
	c.logger.Debug("expanded prefixes", "items", len(entries))
	entries = c.expandModes(entries, doc, &problems)
	c.logger.Debug("expanded modes", "items", len(entries))

	cands := c.resolveSequences(entries, res.Codes, &problems)
	t := newTable(c, &problems)
	for _, m := range doc.Mode {
		if m.WhenNoBinding == spec.NoBindingIgnore {
			for _, ic := range c.ignoreCandidates(m.Name, res.Codes) {
				t.add(ic)
			}
		}
	}
	for _, cand := range cands {
		t.add(cand)
	}
	c.applyFallbacks(t, doc)

	res.Bindings = c.composeGuards(t.candidates(), res.Codes)
	sort.SliceStable(res.Bindings, func(i, j int) bool {
		return res.Bindings[i].Args.Priority < res.Bindings[j].Args.Priority
	})
	res.Problems = problems

	c.logger.Debug("compiled bindings",
		"bindings", len(res.Bindings),
		"prefixes", res.Codes.Len(),
		"problems", len(problems))
	span.SetAttributes(
		attribute.Int("keymap.bindings", len(res.Bindings)),
		attribute.Int("keymap.problems", len(problems)),
	)
	return res
}
