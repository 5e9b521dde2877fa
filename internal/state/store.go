package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultContextPrefix prefixes mirrored context keys.
const DefaultContextPrefix = "masterkey"

// Transform computes the next state from the current one. Returning nil,
// or the state it was given, keeps the current one. A transform that lets
// nested calls write state should read Store.Latest after them.
type Transform func(ctx context.Context, s *State) (*State, error)

type opResult struct {
	state *State
	err   error
}

type op struct {
	ctx  context.Context
	fn   Transform
	done chan opResult

	// resume, when set, tells the loop receiving it to hand back the queue
	resume chan *State
}

// turn is the operation a loop is currently running.
type turn struct {
	store *Store
	state *State
}

type turnKey struct{}

// Store owns the live state and runs transforms one at a time.
type Store struct {
	ops    chan op
	cur    atomic.Pointer[State]
	reg    *registry
	logger *slog.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	mirror Mirror
	prefix string
	logger *slog.Logger
}

// WithMirror sets where public keys are mirrored on resolve.
func WithMirror(m Mirror) StoreOption {
	return func(c *storeConfig) {
		c.mirror = m
	}
}

// WithContextPrefix sets the prefix of mirrored keys.
func WithContextPrefix(p string) StoreOption {
	return func(c *storeConfig) {
		if p != "" {
			c.prefix = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(c *storeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewStore creates a store holding an empty state and starts its loop.
func NewStore(opts ...StoreOption) *Store {
	cfg := storeConfig{prefix: DefaultContextPrefix, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	st := &Store{
		ops:    make(chan op),
		reg:    newRegistry(cfg.mirror, cfg.prefix, cfg.logger),
		logger: cfg.logger.With("component", "state"),
		closed: make(chan struct{}),
	}
	st.cur.Store(newState(st.reg))
	go st.loop()
	return st
}

// Close stops the loop. Pending and later calls fail with ErrClosed.
func (st *Store) Close() {
	st.closeOnce.Do(func() {
		close(st.closed)
	})
}

// Snapshot returns the latest committed version without queueing.
func (st *Store) Snapshot() *State {
	return st.cur.Load()
}

// Latest returns the version the running transform should read: the
// in-progress version when ctx belongs to a transform of this store,
// otherwise the latest committed one.
func (st *Store) Latest(ctx context.Context) *State {
	if t := st.turnOf(ctx); t != nil {
		return t.state
	}
	return st.Snapshot()
}

// Do queues fn and waits for it to run. Called with the context of a
// running transform, it runs fn inline instead.
func (st *Store) Do(ctx context.Context, fn Transform) (*State, error) {
	if t := st.turnOf(ctx); t != nil {
		start := t.state
		next, err := st.call(ctx, fn, start)
		if next != nil && next != start {
			t.state = next
			st.cur.Store(next)
		}
		return t.state, err
	}

	select {
	case <-st.closed:
		return st.Snapshot(), ErrClosed
	default:
	}
	o := op{ctx: ctx, fn: fn, done: make(chan opResult, 1)}
	select {
	case st.ops <- o:
	case <-ctx.Done():
		return st.Snapshot(), ctx.Err()
	case <-st.closed:
		return st.Snapshot(), ErrClosed
	}
	select {
	case r := <-o.done:
		return r.state, r.err
	case <-st.closed:
		return st.Snapshot(), ErrClosed
	}
}

// Set is shorthand for a transform that writes one key.
func (st *Store) Set(ctx context.Context, key string, value any, opts ...Option) (*State, error) {
	return st.Do(ctx, func(_ context.Context, s *State) (*State, error) {
		return s.Set(key, value, opts...), nil
	})
}

// Get returns key as a T. An absent key is first written with def, which
// also becomes its reset value. A key holding another type yields def and
// is left alone.
func Get[T any](ctx context.Context, st *Store, key string, def T) (T, error) {
	out := def
	_, err := st.Do(ctx, func(_ context.Context, s *State) (*State, error) {
		if s.Has(key) {
			out = Value(s, key, def)
			return s, nil
		}
		return s.Set(key, def, initial(def)), nil
	})
	if err != nil {
		return def, err
	}
	return out, nil
}

// Resolve queues a resolve of the current version.
func (st *Store) Resolve(ctx context.Context) error {
	_, err := st.Do(ctx, func(_ context.Context, s *State) (*State, error) {
		s.Resolve()
		return s, nil
	})
	return err
}

// Park suspends the running transform until wait returns, letting queued
// operations run meanwhile. wait receives a context detached from the
// transform, so its own Do calls are queued normally. Park returns the
// latest version once the transform has the queue back.
//
// Outside a transform Park simply calls wait.
func (st *Store) Park(ctx context.Context, wait func(ctx context.Context) error) (*State, error) {
	t := st.turnOf(ctx)
	if t == nil {
		err := wait(ctx)
		return st.Snapshot(), err
	}

	st.cur.Store(t.state)
	st.logger.Debug("parking transform", "version", t.state.Version())
	go st.loop()

	err := wait(context.WithValue(ctx, turnKey{}, (*turn)(nil)))

	back := make(chan *State, 1)
	select {
	case st.ops <- op{resume: back}:
	case <-st.closed:
		return st.Snapshot(), ErrClosed
	}
	t.state = <-back
	st.logger.Debug("resumed transform", "version", t.state.Version())
	return t.state, err
}

// OnSet registers fn for every write to key.
func (st *Store) OnSet(key string, fn SetListener) *Subscription {
	return st.reg.onSet(key, fn)
}

// OnResolve registers fn under name, replacing an earlier listener with
// the same name.
func (st *Store) OnResolve(name string, fn ResolveListener) *Subscription {
	return st.reg.onResolve(name, fn)
}

func (st *Store) turnOf(ctx context.Context) *turn {
	t, _ := ctx.Value(turnKey{}).(*turn)
	if t == nil || t.store != st {
		return nil
	}
	return t
}

func (st *Store) loop() {
	for {
		select {
		case o := <-st.ops:
			if o.resume != nil {
				o.resume <- st.cur.Load()
				return
			}
			st.run(o)
		case <-st.closed:
			return
		}
	}
}

func (st *Store) run(o op) {
	start := st.cur.Load()
	t := &turn{store: st, state: start}
	ctx := context.WithValue(o.ctx, turnKey{}, t)
	next, err := st.call(ctx, o.fn, start)
	// returning the untouched input keeps writes made by nested calls
	if next != nil && next != start {
		t.state = next
	}
	st.cur.Store(t.state)
	o.done <- opResult{state: t.state, err: err}
}

func (st *Store) call(ctx context.Context, fn Transform, s *State) (next *State, err error) {
	defer func() {
		if r := recover(); r != nil {
			st.logger.Error("transform panicked", "panic", r)
			next, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx, s)
}
