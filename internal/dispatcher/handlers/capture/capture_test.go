package capture_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/dispatchertest"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/capture"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

const bindings = `
[[bind]]
key = "r"
name = "replace"
command = "masterkey.replaceChar"
`

func setup(t *testing.T, text string) *dispatchertest.Env {
	t.Helper()
	return dispatchertest.New(t, bindings, text, capture.NewCaptureHandler())
}

func TestCaptureKeys(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "")

	done := env.Start(t, ctx, capture.ActionCaptureKeys, map[string]any{"acceptAfter": 2})
	require.NoError(t, env.Host.Type(ctx, "xyz"))
	require.NoError(t, <-done)

	assert.Equal(t, "xy", dispatchertest.Value(env, state.CapturedKey, ""))
	assert.Equal(t, "normal", dispatchertest.Value(env, state.ModeKey, ""))
	assert.False(t, env.Host.Intercepting())
	assert.Equal(t, "", env.Host.Editor().Text())
}

func TestCaptureKeysUntilEnter(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "")

	done := env.Start(t, ctx, capture.ActionCaptureKeys, nil)
	require.NoError(t, env.Host.Type(ctx, "hello"))
	require.NoError(t, env.Host.Type(ctx, "\n"))
	require.NoError(t, <-done)
	assert.Equal(t, "hello", dispatchertest.Value(env, state.CapturedKey, ""))
}

func TestCaptureKeysWithTextSkipsTyping(t *testing.T) {
	env := setup(t, "")

	r, err := env.Run(context.Background(), capture.ActionCaptureKeys, map[string]any{"text": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Args["text"])
	assert.Equal(t, "ok", dispatchertest.Value(env, state.CapturedKey, ""))
	assert.False(t, env.Host.Intercepting())
}

func TestModeChangeCancelsCaptureKeys(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "")

	done := env.Start(t, ctx, capture.ActionCaptureKeys, nil)
	require.NoError(t, env.Host.Type(ctx, "ab"))
	_, err := env.Store.Set(ctx, state.ModeKey, "normal", state.Public())
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Equal(t, "", dispatchertest.Value(env, state.CapturedKey, ""))
	assert.False(t, env.Host.Intercepting())
}

func TestReplaceCharThroughBinding(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "abc")

	require.NoError(t, env.Host.Press(ctx, "r"))
	require.True(t, env.Host.Intercepting())
	require.NoError(t, env.Host.Type(ctx, "z"))
	env.Host.Wait()

	assert.Equal(t, "zbc", env.Host.Editor().Text())
	assert.Equal(t, []host.Selection{host.Cursor(0)}, env.Host.Editor().Selections())

	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 1)
	assert.Equal(t, "replace", entries[0].Name)
	assert.Equal(t, map[string]any{"char": "z"}, entries[0].Do[0].Args)
}

func TestReplaceCharAtLineEnd(t *testing.T) {
	env := setup(t, "ab\ncd")
	env.Host.Editor().SetSelections([]host.Selection{host.Cursor(2), host.Cursor(4)})

	_, err := env.Run(context.Background(), capture.ActionReplaceChar, map[string]any{"char": "x"})
	require.NoError(t, err)
	assert.Equal(t, "abx\ncx", env.Host.Editor().Text())
}

func TestInsertChar(t *testing.T) {
	env := setup(t, "abc")
	env.Host.Editor().SetSelections([]host.Selection{host.Cursor(1)})

	r, err := env.Run(context.Background(), capture.ActionInsertChar, map[string]any{"char": "-"})
	require.NoError(t, err)
	assert.Equal(t, "a-bc", env.Host.Editor().Text())
	assert.Equal(t, "-", r.Args["char"])
}
