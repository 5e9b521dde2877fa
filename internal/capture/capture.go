// Package capture takes over raw typing to read keys for commands such as
// replace-char and incremental search.
//
// At most one capture runs at a time. While it runs the session mode is
// "capture"; any write that moves the mode elsewhere ends the capture
// early with whatever was typed so far.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

var (
	// ErrBusy indicates a capture is already running.
	ErrBusy = errors.New("capture: a key capture is already running")

	// ErrUnavailable indicates typing could not be intercepted.
	ErrUnavailable = errors.New("capture: typing cannot be intercepted")
)

// Update folds one typed character into the accumulated result and
// reports whether capturing should stop.
type Update func(acc, char string) (next string, stop bool)

// Outcome describes how a capture ended.
type Outcome struct {
	Text string
	// Cancelled is set when a mode change or Cancel ended the capture.
	Cancelled bool
}

// Manager owns the single capture slot.
type Manager struct {
	host   host.Host
	store  *state.Store
	logger *slog.Logger

	mu       sync.Mutex
	active   *session
	reported bool
}

// NewManager creates a manager.
func NewManager(h host.Host, st *state.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{host: h, store: st, logger: logger.With("component", "capture")}
}

type session struct {
	mu        sync.Mutex
	update    Update
	text      string
	cancelled bool
	ended     bool
	done      chan struct{}
	finish    sync.Once
	release   []func()
}

// onEnd adds a cleanup step run when the session ends, or runs it now if
// the session already ended.
func (s *session) onEnd(fn func()) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		fn()
		return
	}
	s.release = append(s.release, fn)
	s.mu.Unlock()
}

func (s *session) feed(text string) {
	for _, r := range text {
		s.mu.Lock()
		if s.isDone() {
			s.mu.Unlock()
			return
		}
		next, stop := s.update(s.text, string(r))
		s.text = next
		s.mu.Unlock()
		if stop {
			s.end(false)
			return
		}
	}
}

func (s *session) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *session) end(cancelled bool) {
	s.finish.Do(func() {
		s.mu.Lock()
		s.cancelled = cancelled
		s.ended = true
		release := s.release
		s.mu.Unlock()
		for i := len(release) - 1; i >= 0; i-- {
			release[i]()
		}
		close(s.done)
	})
}

func (s *session) outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Outcome{Text: s.text, Cancelled: s.cancelled}
}

// Active reports whether a capture is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Cancel ends a running capture as if the mode had changed.
func (m *Manager) Cancel() {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	if s != nil {
		s.end(true)
	}
}

// Capture intercepts typing and feeds each character to update until it
// asks to stop, the mode leaves capture, or ctx ends. It must run inside a
// store transform; the transform is parked while keys are read. The prior
// mode is restored unless the capture was cancelled by a mode change.
//
// When typing cannot be intercepted the failure is shown once and every
// later capture returns ErrUnavailable quietly.
func (m *Manager) Capture(ctx context.Context, update Update) (Outcome, error) {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	s := &session{update: update, done: make(chan struct{})}
	m.active = s
	m.mu.Unlock()

	s.onEnd(func() {
		m.clear(s)
		m.logger.Debug("capture uninstalled")
	})

	disposable, err := m.host.InterceptTyping(s.feed)
	if err != nil {
		m.clear(s)
		m.mu.Lock()
		first := !m.reported
		m.reported = true
		m.mu.Unlock()
		if first {
			m.host.ShowError("Key capture is unavailable: " + err.Error())
		}
		m.logger.Warn("intercepting typing failed", "error", err)
		return Outcome{}, errors.Join(ErrUnavailable, err)
	}
	s.onEnd(disposable.Dispose)

	prior := state.Value(m.store.Latest(ctx), state.ModeKey, "")
	sub := m.store.OnSet(state.ModeKey, func(v any, _ *state.State) {
		if v != spec.CaptureMode {
			s.end(true)
		}
	})
	s.onEnd(sub.Cancel)
	m.logger.Debug("capture installed", "prior_mode", prior)

	if _, err := m.store.Do(ctx, func(_ context.Context, st *state.State) (*state.State, error) {
		return st.Set(state.ModeKey, spec.CaptureMode, state.Public()), nil
	}); err != nil {
		s.end(true)
		return s.outcome(), err
	}
	if err := m.store.Resolve(ctx); err != nil {
		s.end(true)
		return s.outcome(), err
	}

	_, err = m.store.Park(ctx, func(wctx context.Context) error {
		select {
		case <-s.done:
			return nil
		case <-wctx.Done():
			s.end(true)
			return wctx.Err()
		}
	})
	out := s.outcome()
	if err != nil {
		return out, err
	}
	if !out.Cancelled {
		_, err = m.store.Do(ctx, func(_ context.Context, st *state.State) (*state.State, error) {
			return st.Set(state.ModeKey, prior), nil
		})
	}
	return out, err
}

func (m *Manager) clear(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}
