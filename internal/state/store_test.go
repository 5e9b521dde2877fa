package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	st := NewStore(opts...)
	t.Cleanup(st.Close)
	return st
}

func TestDoCommitsInOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		st := NewStore()
		defer st.Close()

		keys := []string{"a", "b", "c"}
		n := rapid.IntRange(1, 30).Draw(rt, "ops")
		want := newState(nil)
		for i := 0; i < n; i++ {
			k := rapid.SampledFrom(keys).Draw(rt, "key")
			if rapid.Bool().Draw(rt, "update") {
				inc := func(v int) int { return v*2 + 1 }
				want = Update(want, k, 0, inc)
				_, err := st.Do(context.Background(), func(_ context.Context, s *State) (*State, error) {
					return Update(s, k, 0, inc), nil
				})
				if err != nil {
					rt.Fatal(err)
				}
				continue
			}
			v := rapid.IntRange(0, 9).Draw(rt, "value")
			want = want.Set(k, v)
			if _, err := st.Set(context.Background(), k, v); err != nil {
				rt.Fatal(err)
			}
		}
		got := st.Snapshot()
		if got.Version() != want.Version() {
			rt.Fatalf("version %d, want %d", got.Version(), want.Version())
		}
		for _, k := range keys {
			if Value(got, k, -1) != Value(want, k, -1) {
				rt.Fatalf("key %s = %v, want %v", k, Value(got, k, -1), Value(want, k, -1))
			}
		}
	})
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	st := newTestStore(t)
	const workers, each = 8, 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				_, err := st.Do(context.Background(), func(_ context.Context, s *State) (*State, error) {
					n := Value(s, "n", 0)
					// widen the window a lost update would need
					time.Sleep(time.Microsecond)
					return s.Set("n", n+1), nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, workers*each, Value(st.Snapshot(), "n", 0))
}

func TestNestedDoRunsInline(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	final, err := st.Do(ctx, func(ctx context.Context, s *State) (*State, error) {
		inner, err := st.Do(ctx, func(_ context.Context, s *State) (*State, error) {
			return s.Set("inner", 1), nil
		})
		if err != nil {
			return nil, err
		}
		assert.Equal(t, 1, Value(inner, "inner", 0))
		assert.Same(t, inner, st.Latest(ctx))
		// returning the stale input keeps the nested write
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, Value(final, "inner", 0))
	assert.Equal(t, 1, Value(st.Snapshot(), "inner", 0))
}

func TestParkLetsOthersRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	parked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan *State, 1)
	go func() {
		s, err := st.Do(ctx, func(ctx context.Context, s *State) (*State, error) {
			_, _ = st.Do(ctx, func(_ context.Context, s *State) (*State, error) { return s.Set("nested", true), nil })
			latest, err := st.Park(ctx, func(context.Context) error {
				close(parked)
				<-release
				return nil
			})
			if err != nil {
				return nil, err
			}
			return latest.Set("after", Value(latest, "other", false)), nil
		})
		assert.NoError(t, err)
		done <- s
	}()

	<-parked
	_, err := st.Set(ctx, "other", true)
	require.NoError(t, err)
	close(release)

	s := <-done
	assert.True(t, Value(s, "nested", false))
	assert.True(t, Value(s, "other", false))
	assert.True(t, Value(s, "after", false), "resumed transform sees writes made while parked")

	// the queue still works with exactly one loop
	_, err = st.Set(ctx, "again", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, Value(st.Snapshot(), "again", 0))
}

func TestPanicBecomesError(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Do(context.Background(), func(context.Context, *State) (*State, error) {
		panic("boom")
	})
	require.ErrorIs(t, err, ErrPanic)

	_, err = st.Set(context.Background(), "ok", true)
	assert.NoError(t, err)
}

func TestErrorKeepsEarlierWrites(t *testing.T) {
	st := newTestStore(t)
	fail := errors.New("fail")
	s, err := st.Do(context.Background(), func(_ context.Context, s *State) (*State, error) {
		return s.Set("partial", 1), fail
	})
	require.ErrorIs(t, err, fail)
	assert.Equal(t, 1, Value(s, "partial", 0))
}

func TestClosedStore(t *testing.T) {
	st := NewStore()
	st.Close()
	st.Close()
	_, err := st.Set(context.Background(), "a", 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStoreResolveMirrors(t *testing.T) {
	mirror := &recordingMirror{}
	st := newTestStore(t, WithMirror(mirror), WithContextPrefix("ctx"))
	ctx := context.Background()
	_, err := st.Set(ctx, ModeKey, "normal", Public())
	require.NoError(t, err)
	require.NoError(t, st.Resolve(ctx))
	assert.Equal(t, map[string]any{"ctx.mode": "normal"}, mirror.values)
}

func TestGetCreatesAbsentKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	v, err := Get(ctx, st, "count", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	s := st.Snapshot()
	require.True(t, s.Has("count"))
	assert.Equal(t, 7, s.fields["count"].reset)
	assert.False(t, s.IsTransient("count"))

	_, err = st.Set(ctx, "count", 3)
	require.NoError(t, err)
	v, err = Get(ctx, st, "count", 7)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	name, err := Get(ctx, st, "count", "none")
	require.NoError(t, err)
	assert.Equal(t, "none", name)
	assert.Equal(t, 3, Value(st.Snapshot(), "count", 0))
}

func TestGetOnClosedStore(t *testing.T) {
	st := NewStore()
	st.Close()
	v, err := Get(context.Background(), st, "count", 4)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 4, v)
}
