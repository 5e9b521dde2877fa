package count_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/dispatchertest"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/count"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

const bindings = `
[[path]]
id = "count"
default.resetTransient = false
default.command = "masterkey.updateCount"

[[bind]]
path = "count"
key = "1"
args.value = 1

[[bind]]
path = "count"
key = "3"
args.value = 3

[[bind]]
key = "l"
command = "cursorMove"
args.to = "right"
computedArgs.value = "count"
`

func TestCountPrefixesMotion(t *testing.T) {
	ctx := context.Background()
	env := dispatchertest.New(t, bindings, "abcdefghijklmnop", count.NewCountHandler())

	require.NoError(t, env.Host.Press(ctx, "3"))
	assert.Equal(t, 3, dispatchertest.Value(env, state.CountKey, 0))
	assert.Equal(t, "3", env.Host.Status("masterkey.keys"))

	require.NoError(t, env.Host.Press(ctx, "l"))
	assert.Equal(t, []host.Selection{host.Cursor(3)}, env.Host.Editor().Selections())
	assert.Equal(t, 0, dispatchertest.Value(env, state.CountKey, -1))
	assert.Equal(t, "", env.Host.Status("masterkey.keys"))

	require.NoError(t, env.Host.PressAll(ctx, "1 3 l"))
	assert.Equal(t, []host.Selection{host.Cursor(16)}, env.Host.Editor().Selections())

	// no count moves one
	require.NoError(t, env.Host.PressAll(ctx, "l"))
	assert.Equal(t, []host.Selection{host.Cursor(16)}, env.Host.Editor().Selections())
}

func TestUpdateCountRejectsNonDigits(t *testing.T) {
	ctx := context.Background()
	env := dispatchertest.New(t, bindings, "", count.NewCountHandler())

	_, err := env.Run(ctx, count.ActionUpdateCount, map[string]any{"value": 12})
	require.NoError(t, err)
	assert.Equal(t, 0, dispatchertest.Value(env, state.CountKey, 0))
	require.Len(t, env.Host.Errors(), 1)
	assert.Contains(t, env.Host.Errors()[0], "digit")
}
