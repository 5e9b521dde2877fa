package prefix_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/dispatchertest"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/prefix"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

const bindings = `
[[bind]]
key = "g g"
name = "top"
command = "cursorMove"
args = { to = "left", value = 100 }

[[bind]]
key = "l"
command = "cursorRight"
`

func TestKeySequence(t *testing.T) {
	ctx := context.Background()
	env := dispatchertest.New(t, bindings, "abcdef", prefix.NewPrefixHandler())

	require.NoError(t, env.Host.PressAll(ctx, "l l l"))
	assert.Equal(t, []host.Selection{host.Cursor(3)}, env.Host.Editor().Selections())

	require.NoError(t, env.Host.Press(ctx, "g"))
	assert.Equal(t, "g", dispatchertest.Value(env, state.PrefixKey, ""))
	assert.Equal(t, 1, dispatchertest.Value(env, state.PrefixCodeKey, 0))
	assert.Equal(t, "g", env.Host.Status("masterkey.keys"))
	code, _ := env.Host.Context("masterkey.prefixCode")
	assert.Equal(t, 1, code)

	// l is only bound without a prefix
	require.NoError(t, env.Host.Press(ctx, "g"))
	assert.Equal(t, []host.Selection{host.Cursor(0)}, env.Host.Editor().Selections())
	assert.Equal(t, "", dispatchertest.Value(env, state.PrefixKey, "x"))
	assert.Equal(t, 0, dispatchertest.Value(env, state.PrefixCodeKey, -1))
	assert.Equal(t, "", env.Host.Status("masterkey.keys"))
}

func TestPrefixOnlyBindingsSkipHistory(t *testing.T) {
	ctx := context.Background()
	env := dispatchertest.New(t, bindings, "abcdef", prefix.NewPrefixHandler())

	require.NoError(t, env.Host.PressAll(ctx, "l g g"))
	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 2)
	assert.Equal(t, "cursorRight", entries[0].Do[0].Command)
	assert.Equal(t, "top", entries[1].Name)
}

func TestPrefixFlag(t *testing.T) {
	ctx := context.Background()
	env := dispatchertest.New(t, bindings, "", prefix.NewPrefixHandler())

	_, err := env.Run(ctx, prefix.ActionPrefix, map[string]any{"code": 1, "flag": "pending"})
	require.NoError(t, err)
	assert.True(t, dispatchertest.Value(env, "pending", false))
	assert.Equal(t, "g", dispatchertest.Value(env, state.PrefixKey, ""))

	_, err = env.Run(ctx, prefix.ActionPrefix, map[string]any{"code": 99})
	require.NoError(t, err)
	require.Len(t, env.Host.Errors(), 1)
	assert.Equal(t, "g", dispatchertest.Value(env, state.PrefixKey, ""))
}
