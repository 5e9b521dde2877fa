// Package diag collects user-facing problems and diagnostics.
//
// Specification problems and compile conflicts are accumulated as Problem
// values and never abort the caller. Runtime diagnostics (expression errors,
// argument validation failures) are queued on a Batch and flushed in one
// bounded burst so a single dispatch produces one coherent report.
package diag

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Severity classifies a problem.
type Severity uint8

const (
	// SeverityError marks an item that was dropped or could not be honored.
	SeverityError Severity = iota
	// SeverityWarning marks a recoverable oddity (e.g. a resolved conflict).
	SeverityWarning
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Problem is a single specification or compilation problem.
type Problem struct {
	Severity Severity
	// Source locates the problem, e.g. "bind[3]" or "mode[normal]".
	Source  string
	Message string
}

// String formats the problem for display.
func (p Problem) String() string {
	if p.Source == "" {
		return fmt.Sprintf("%s: %s", p.Severity, p.Message)
	}
	return fmt.Sprintf("%s: %s: %s", p.Severity, p.Source, p.Message)
}

// Problems is an ordered problem list.
type Problems []Problem

// Errorf appends an error-severity problem.
func (ps *Problems) Errorf(source, format string, args ...any) {
	*ps = append(*ps, Problem{Severity: SeverityError, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a warning-severity problem.
func (ps *Problems) Warnf(source, format string, args ...any) {
	*ps = append(*ps, Problem{Severity: SeverityWarning, Source: source, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any problem has error severity.
func (ps Problems) HasErrors() bool {
	for _, p := range ps {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Limit returns at most n problems and the number left out.
// A non-positive n returns everything.
func (ps Problems) Limit(n int) (Problems, int) {
	if n <= 0 || len(ps) <= n {
		return ps, 0
	}
	return ps[:n], len(ps) - n
}

// Summary renders the first n problems as a single message.
func (ps Problems) Summary(n int) string {
	shown, rest := ps.Limit(n)
	lines := make([]string, 0, len(shown)+1)
	for _, p := range shown {
		lines = append(lines, p.String())
	}
	if rest > 0 {
		lines = append(lines, fmt.Sprintf("...and %d more", rest))
	}
	return strings.Join(lines, "\n")
}

// Sink receives flushed diagnostics. host.Host satisfies it.
type Sink interface {
	ShowError(msg string)
}

// DefaultMaxBatch is the number of diagnostics shown per flush.
const DefaultMaxBatch = 3

// Batch queues diagnostics until Flush.
// It is safe for concurrent use.
type Batch struct {
	mu      sync.Mutex
	pending []string
	max     int
	logger  *slog.Logger
}

// NewBatch creates a batch that shows at most max messages per flush.
func NewBatch(max int, logger *slog.Logger) *Batch {
	if max <= 0 {
		max = DefaultMaxBatch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{max: max, logger: logger}
}

// Report queues a message.
func (b *Batch) Report(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, msg)
}

// Reportf queues a formatted message.
func (b *Batch) Reportf(format string, args ...any) {
	b.Report(fmt.Sprintf(format, args...))
}

// Pending returns a copy of the queued messages.
func (b *Batch) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.pending))
	copy(out, b.pending)
	return out
}

// Flush sends the first messages to sink, logs all of them, and clears the
// queue. It returns the number of messages that were queued.
func (b *Batch) Flush(sink Sink) int {
	b.mu.Lock()
	msgs := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, m := range msgs {
		b.logger.Warn("diagnostic", "msg", m)
	}
	if sink == nil {
		return len(msgs)
	}
	for i, m := range msgs {
		if i == b.max {
			break
		}
		sink.ShowError(m)
	}
	return len(msgs)
}
