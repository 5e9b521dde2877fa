package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// DefaultReplayDelay separates replayed entries so the host can settle
// selections between them.
const DefaultReplayDelay = 50 * time.Millisecond

// Runner runs a command list without recording it.
type Runner interface {
	Run(ctx context.Context, do []spec.Command, repeat int) error
}

// Replayer re-runs history entries.
type Replayer struct {
	store  *state.Store
	host   host.Host
	runner Runner
	delay  time.Duration
	logger *slog.Logger
	tracer trace.Tracer
}

// NewReplayer creates a replayer. A negative delay means no delay.
func NewReplayer(st *state.Store, h host.Host, runner Runner, delay time.Duration, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	if delay < 0 {
		delay = 0
	}
	return &Replayer{
		store:  st,
		host:   h,
		runner: runner,
		delay:  delay,
		logger: logger.With("component", "history"),
		tracer: otel.Tracer("github.com/haberdashPI/vscode-master-key-sub000/internal/history"),
	}
}

// Replay runs each entry in order, then re-inserts its recorded edits at
// the active editor's selections. Between entries the running transform
// is parked for the replay delay.
func (r *Replayer) Replay(ctx context.Context, entries []Entry) (err error) {
	ctx, span := r.tracer.Start(ctx, "history.Replay",
		trace.WithAttributes(attribute.Int("entries", len(entries))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	for i, e := range entries {
		if i > 0 && r.delay > 0 {
			if _, err := r.store.Park(ctx, r.sleep); err != nil {
				return err
			}
		}
		r.logger.Debug("replaying entry", "index", i, "name", e.Name, "commands", len(e.Do))
		if err := r.runner.Run(ctx, e.Do, e.Repeat); err != nil {
			return fmt.Errorf("replay entry %d (%s): %w", i, e.Name, err)
		}
		if len(e.Edits) == 0 {
			continue
		}
		ed := r.host.ActiveEditor()
		if ed == nil {
			r.logger.Warn("no active editor to replay edits into", "entry", i)
			continue
		}
		for _, text := range e.Edits {
			if err := host.InsertAtSelections(ed, text); err != nil {
				return fmt.Errorf("replay edits of entry %d: %w", i, err)
			}
		}
	}
	return nil
}

func (r *Replayer) sleep(ctx context.Context) error {
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
