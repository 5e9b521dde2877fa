package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	keys   []string
	values map[string]any
}

func (m *recordingMirror) SetContext(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
}

func TestTransientReset(t *testing.T) {
	s := newState(nil)
	s = s.Set(CountKey, 5, Transient(0))
	s = s.Set(ModeKey, "normal")

	reset := s.Reset()
	assert.Equal(t, 0, Value(reset, CountKey, -1))
	assert.Equal(t, "normal", Value(reset, ModeKey, ""))
	assert.Equal(t, 5, Value(s, CountKey, -1), "reset must not touch the old version")

	same := reset.Reset()
	assert.Same(t, reset, same)
}

func TestVersionsAreImmutable(t *testing.T) {
	s0 := newState(nil)
	s1 := s0.Set("a", 1)
	s2 := Update(s1, "a", 0, func(v int) int { return v + 1 })

	assert.Equal(t, uint64(0), s0.Version())
	assert.Equal(t, uint64(1), s1.Version())
	assert.Equal(t, uint64(2), s2.Version())
	assert.False(t, s0.Has("a"))
	assert.Equal(t, 1, Value(s1, "a", 0))
	assert.Equal(t, 2, Value(s2, "a", 0))
	assert.Equal(t, "x", Value(s2, "a", "x"), "wrong type yields the default")
}

func TestOptionsAccumulate(t *testing.T) {
	s := newState(nil).Set("flag", true, Public(), Transient(false))
	s = s.Set("flag", true)
	assert.True(t, s.IsPublic("flag"))
	assert.True(t, s.IsTransient("flag"))

	s = s.Set("flag", true, Persistent())
	assert.False(t, s.IsTransient("flag"))
	assert.Equal(t, true, Value(s.Reset(), "flag", false))
}

func TestSetListeners(t *testing.T) {
	reg := newRegistry(nil, "mk", nil)
	s := newState(reg)

	var seen []any
	var sub *Subscription
	sub = reg.onSet(ModeKey, func(v any, _ *State) {
		seen = append(seen, v)
		if v == "stop" {
			sub.Cancel()
		}
	})
	require.NotEmpty(t, sub.ID())

	s = s.Set(ModeKey, "a")
	s = s.Set(CountKey, 1)
	s = s.Set(ModeKey, "stop")
	s = s.Set(ModeKey, "after")
	sub.Cancel()

	assert.Equal(t, []any{"a", "stop"}, seen)
	assert.Equal(t, "after", Value(s, ModeKey, ""))
}

func TestResolveListenersAndMirror(t *testing.T) {
	mirror := &recordingMirror{}
	reg := newRegistry(mirror, "mk", nil)
	s := newState(reg).
		Set(ModeKey, "normal", Public()).
		Set(CountKey, 2, Public(), Transient(0)).
		Set(HistoryKey, []any{"private"})

	var calls []string
	reg.onResolve("status", func(*State) { calls = append(calls, "first") })
	reg.onResolve("status", func(*State) { calls = append(calls, "second") })
	other := reg.onResolve("other", func(*State) { calls = append(calls, "other") })

	s.Resolve()
	other.Cancel()
	s.Resolve()

	assert.Equal(t, []string{"second", "other", "second"}, calls)
	assert.Equal(t, []string{"mk.count", "mk.mode", "mk.count", "mk.mode"}, mirror.keys)
	assert.Equal(t, map[string]any{"mk.count": 2, "mk.mode": "normal"}, mirror.values)
}
