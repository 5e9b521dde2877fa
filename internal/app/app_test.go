package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/config"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

const modes = `
[header]
version = "1.0"

[[mode]]
name = "normal"
default = true
`

const insertMode = `
[[mode]]
name = "insert"
whenNoBinding = "insertCharacters"
`

const moveRight = `
[[bind]]
key = "l"
name = "right"
command = "cursorMove"
args.to = "right"
`

const enterInsert = `
[[bind]]
key = "i"
name = "insert"
command = "masterkey.setMode"
args.value = "insert"
`

func writeSpec(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newApp(t *testing.T, body, text string) (*Application, *host.Memory, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bindings.toml")
	writeSpec(t, path, body)

	s := config.Defaults()
	s.SpecPath = path
	s.WatchDebounce = 10 * time.Millisecond
	h := host.NewMemory(host.WithEditor(host.NewMemoryEditor("test.txt", text)))
	a, err := New(Options{Settings: s, Host: h, Logger: DiscardLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, h, path
}

func TestNewRequiresHost(t *testing.T) {
	_, err := New(Options{Settings: config.Defaults()})
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	s := config.Defaults()
	s.MaxHistory = 0
	_, err := New(Options{Settings: s, Host: host.NewMemory()})
	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "settings", ie.Component)
	assert.ErrorIs(t, err, config.ErrValidationFailed)
}

func TestNewWithoutSpec(t *testing.T) {
	a, err := New(Options{Settings: config.Defaults(), Host: host.NewMemory(), Logger: DiscardLogger()})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Bindings())
	_, err = a.Reload(context.Background())
	assert.ErrorIs(t, err, config.ErrNoSpecPath)
	assert.ErrorIs(t, a.Watch(), config.ErrNoSpecPath)
}

func TestNewLoadsSpec(t *testing.T) {
	ctx := context.Background()
	a, h, path := newApp(t, modes+insertMode+moveRight+enterInsert, "abc")

	require.NotNil(t, a.Bindings())
	assert.Equal(t, path, a.SpecPath())
	assert.Equal(t, "normal", state.Value(a.Store().Snapshot(), state.ModeKey, ""))
	v, _ := h.Context("masterkey.mode")
	assert.Equal(t, "normal", v)

	require.NoError(t, h.PressAll(ctx, "l l"))
	assert.Equal(t, []host.Selection{host.Cursor(2)}, h.Editor().Selections())

	require.NoError(t, h.PressAll(ctx, "i x"))
	assert.Equal(t, "abxc", h.Editor().Text())

	m := a.Metrics().Snapshot()
	assert.Equal(t, uint64(1), m.Loads)
	assert.Equal(t, len(a.Bindings().Bindings), m.Bindings)
	assert.False(t, m.LastLoad.IsZero())
}

func TestNewFailsOnUnreadableSpec(t *testing.T) {
	s := config.Defaults()
	s.SpecPath = filepath.Join(t.TempDir(), "missing.toml")
	_, err := New(Options{Settings: s, Host: host.NewMemory(), Logger: DiscardLogger()})
	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "bindings", ie.Component)
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}

func TestReloadSwapsBindings(t *testing.T) {
	ctx := context.Background()
	a, h, path := newApp(t, modes+moveRight, "abc")
	before := a.Bindings()

	writeSpec(t, path, modes+`
[[bind]]
key = "h"
command = "cursorMove"
args.to = "right"
`)
	problems, err := a.Reload(ctx)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.NotSame(t, before, a.Bindings())

	// "l" is no longer bound; "h" now moves right
	require.NoError(t, h.Press(ctx, "l"))
	assert.Equal(t, []host.Selection{host.Cursor(0)}, h.Editor().Selections())
	require.NoError(t, h.Press(ctx, "h"))
	assert.Equal(t, []host.Selection{host.Cursor(1)}, h.Editor().Selections())
	assert.Equal(t, uint64(2), a.Metrics().Snapshot().Loads)
}

func TestReloadKeepsBindingsOnParseError(t *testing.T) {
	ctx := context.Background()
	a, h, path := newApp(t, modes+moveRight, "abc")
	before := a.Bindings()

	writeSpec(t, path, "[[bind]\nkey = ")
	_, err := a.Reload(ctx)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, path, le.Path)

	assert.Same(t, before, a.Bindings())
	assert.NotEmpty(t, h.Errors())
	require.NoError(t, h.Press(ctx, "l"))
	assert.Equal(t, []host.Selection{host.Cursor(1)}, h.Editor().Selections())
	assert.Equal(t, uint64(1), a.Metrics().Snapshot().Failures)
}

func TestReloadFallsBackToDefaultMode(t *testing.T) {
	ctx := context.Background()
	a, h, path := newApp(t, modes+insertMode+enterInsert, "")

	require.NoError(t, h.Press(ctx, "i"))
	assert.Equal(t, "insert", state.Value(a.Store().Snapshot(), state.ModeKey, ""))

	writeSpec(t, path, modes+moveRight)
	_, err := a.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, "normal", state.Value(a.Store().Snapshot(), state.ModeKey, ""))
	v, _ := h.Context("masterkey.mode")
	assert.Equal(t, "normal", v)
}

func TestLoadReportsProblems(t *testing.T) {
	ctx := context.Background()
	a, h, path := newApp(t, modes+moveRight, "")

	writeSpec(t, path, modes+moveRight+`
[[bind]]
key = "l"
name = "other right"
command = "cursorRight"
`)
	problems, err := a.Load(ctx, path)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, "conflicts")
	require.NotEmpty(t, h.Errors())
	assert.Contains(t, h.Errors()[len(h.Errors())-1], "conflicts")
	assert.Equal(t, 1, a.Metrics().Snapshot().Problems)
}

func TestCompileDoesNotInstall(t *testing.T) {
	ctx := context.Background()
	a, _, path := newApp(t, modes+moveRight, "")
	before := a.Bindings()

	other := filepath.Join(filepath.Dir(path), "other.toml")
	writeSpec(t, other, modes+enterInsert+insertMode)
	res, err := a.Compile(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "normal", res.DefaultMode)
	assert.Same(t, before, a.Bindings())
	assert.Equal(t, path, a.SpecPath())
}

func TestWatchReloadsOnChange(t *testing.T) {
	ctx := context.Background()
	a, h, path := newApp(t, modes+moveRight, "abc")
	require.NoError(t, a.Watch())
	assert.ErrorIs(t, a.Watch(), ErrWatching)

	writeSpec(t, path, modes+`
[[bind]]
key = "h"
command = "cursorMove"
args.to = "right"
`)
	require.Eventually(t, func() bool {
		return a.Metrics().Snapshot().Loads >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Press(ctx, "h"))
	assert.Equal(t, []host.Selection{host.Cursor(1)}, h.Editor().Selections())
}

func TestCloseIsIdempotent(t *testing.T) {
	a, _, path := newApp(t, modes, "")
	require.NoError(t, a.Watch())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err := a.Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Watch(), ErrClosed)
}

func TestHandlersCoverEveryCommand(t *testing.T) {
	a, _, _ := newApp(t, modes, "")
	actions := a.Dispatcher().Registry().List()
	for _, want := range []string{
		"do", "prefix", "updateCount", "setMode", "setFlag", "ignore",
		"captureKeys", "replaceChar", "insertChar",
		"search", "nextMatch", "previousMatch",
		"pushHistoryToStack", "replayFromHistory", "replayFromStack", "record",
	} {
		assert.Contains(t, actions, want)
	}
}
