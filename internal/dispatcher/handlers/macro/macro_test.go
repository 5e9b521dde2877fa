package macro_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/dispatchertest"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/macro"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/mode"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

const bindings = `
[[bind]]
key = "l"
name = "right"
command = "cursorRight"

[[bind]]
key = "i"
name = "insert"
command = "masterkey.setMode"
args.value = "insert"

[[bind]]
key = "escape"
mode = "insert"
name = "normal"
command = "masterkey.setMode"
args.value = "normal"

[[bind]]
key = "shift+2"
name = "replay"
command = "masterkey.replayFromStack"
args.keep = true
`


func setup(t *testing.T, text string) *dispatchertest.Env {
	t.Helper()
	return dispatchertest.New(t, bindings, text, macro.NewMacroHandler(), mode.NewModeHandler())
}

func pushInsert(t *testing.T, env *dispatchertest.Env) {
	t.Helper()
	_, err := env.Run(context.Background(), macro.ActionPushHistory, map[string]any{
		"range": map[string]any{
			"from": "commandHistory[index].name == 'insert'",
			"to":   "commandHistory[index].name == 'normal'",
		},
	})
	require.NoError(t, err)
}

func TestInsertMacro(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "")

	require.NoError(t, env.Host.Press(ctx, "i"))
	require.NoError(t, env.Host.PressAll(ctx, "h i"))
	require.NoError(t, env.Host.Press(ctx, "escape"))
	require.NoError(t, env.Host.Press(ctx, "l"))
	assert.Equal(t, "hi", env.Host.Editor().Text())

	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"h", "i"}, entries[0].Edits)
	assert.Equal(t, "test.txt", entries[0].Document)

	pushInsert(t, env)
	macros := history.Macros(env.Store.Snapshot())
	require.Len(t, macros, 1)
	require.Len(t, macros[0], 2)
	assert.Equal(t, "insert", macros[0][0].Name)
	assert.Equal(t, "normal", macros[0][1].Name)

	_, err := env.Run(ctx, macro.ActionReplayStack, nil)
	require.NoError(t, err)
	assert.Equal(t, "hihi", env.Host.Editor().Text())
	assert.Equal(t, "normal", dispatchertest.Value(env, state.ModeKey, ""))
	assert.Empty(t, history.Macros(env.Store.Snapshot()))
	// replay is not itself recorded
	assert.Len(t, history.Entries(env.Store.Snapshot()), 3)
}

func TestReplayBindingKeepsMacroAndRecordsCommands(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "")

	require.NoError(t, env.Host.Press(ctx, "i"))
	require.NoError(t, env.Host.PressAll(ctx, "a b"))
	require.NoError(t, env.Host.Press(ctx, "escape"))
	pushInsert(t, env)

	require.NoError(t, env.Host.Press(ctx, "shift+2"))
	assert.Equal(t, "abab", env.Host.Editor().Text())
	assert.Len(t, history.Macros(env.Store.Snapshot()), 1)

	// the history entry replays the same commands even if the stack changes
	entries := history.Entries(env.Store.Snapshot())
	last := entries[len(entries)-1]
	assert.Equal(t, "replay", last.Name)
	value, ok := last.Do[0].Args["value"].([]history.Entry)
	require.True(t, ok)
	assert.Len(t, value, 2)
}

func TestReplayFromHistory(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "abcdef")

	require.NoError(t, env.Host.PressAll(ctx, "l l"))
	_, err := env.Run(ctx, macro.ActionReplayHistory, map[string]any{"at": "commandHistory[index].name == 'right'"})
	require.NoError(t, err)
	assert.Equal(t, []host.Selection{host.Cursor(3)}, env.Host.Editor().Selections())

	_, err = env.Run(ctx, macro.ActionReplayHistory, map[string]any{"at": "commandHistory[index].name == 'missing'"})
	require.NoError(t, err)
	assert.Equal(t, []string{"No matching commands in history"}, env.Host.Infos())
}

func TestSelectorErrors(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "")

	_, err := env.Run(ctx, macro.ActionPushHistory, map[string]any{})
	require.NoError(t, err)
	_, err = env.Run(ctx, macro.ActionReplayStack, map[string]any{"index": -1})
	require.NoError(t, err)
	assert.Len(t, env.Host.Errors(), 2)

	_, err = env.Run(ctx, macro.ActionReplayStack, map[string]any{"index": 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"No macro at that position"}, env.Host.Infos())
}

func TestRecordFlag(t *testing.T) {
	ctx := context.Background()
	env := setup(t, "abc")

	_, err := env.Run(ctx, macro.ActionRecord, map[string]any{"on": true})
	require.NoError(t, err)
	v, _ := env.Host.Context("masterkey.record")
	assert.Equal(t, true, v)

	require.NoError(t, env.Host.Press(ctx, "l"))
	_, err = env.Run(ctx, macro.ActionRecord, map[string]any{"on": false})
	require.NoError(t, err)
	require.NoError(t, env.Host.Press(ctx, "l"))

	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Recorded)
	assert.False(t, entries[1].Recorded)

	_, err = env.Run(ctx, macro.ActionPushHistory, map[string]any{
		"range": map[string]any{"from": "commandHistory[index].recorded", "to": "commandHistory[index].recorded"},
	})
	require.NoError(t, err)
	require.Len(t, history.Macros(env.Store.Snapshot()), 1)
}
