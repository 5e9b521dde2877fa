package dispatcher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/dispatchertest"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/capture"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handlers/mode"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

const bindings = `
[[bind]]
key = "a"
name = "sum"
command = "cursorRight"
repeat = "1+2"

[[bind]]
key = "b"
name = "text"
command = "cursorRight"
repeat = '"a"+"b"'

[[bind]]
key = "c"
name = "literal"
command = "cursorRight"
repeat = 2

[[bind]]
key = "d"
name = "guarded"
command = "runCommands"
args.commands = [
	{ command = "cursorRight", if = "mode == 'insert'" },
	{ command = "cursorRight", args = { by = "one" } },
]

[[bind]]
key = "e"
name = "bad args"
command = "runCommands"
args.commands = [
	{ command = "masterkey.setMode", args = { bogus = true } },
	{ command = "cursorRight" },
]

[[bind]]
key = "f"
name = "fails"
command = "runCommands"
args.commands = [
	{ command = "noSuchCommand" },
	{ command = "cursorRight" },
]

[[bind]]
key = "g"
name = "captures"
command = "runCommands"
args.commands = [
	{ command = "masterkey.captureKeys", args = { acceptAfter = 1 } },
	{ command = "cursorRight" },
]

[[bind]]
key = "h"
name = "computed"
command = "cursorMove"
computedArgs.value = "1 + 1"
args.to = "right"

[[bind]]
key = "i"
name = "infinite"
command = "cursorRight"
repeat = "1/0"

[[bind]]
key = "j"
name = "huge"
command = "cursorRight"
repeat = "1e300"
`

func setup(t *testing.T) *dispatchertest.Env {
	t.Helper()
	return dispatchertest.New(t, bindings, "abcdefghij",
		mode.NewModeHandler(), capture.NewCaptureHandler())
}

func cursor(env *dispatchertest.Env) int {
	return env.Host.Editor().Selections()[0].Active
}

func calls(env *dispatchertest.Env, name string) int {
	n := 0
	for _, c := range env.Host.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

func TestRepeat(t *testing.T) {
	tests := []struct {
		key    string
		want   int
		errors int
	}{
		{"a", 4, 0},
		{"b", 1, 1},
		{"c", 3, 0},
		{"i", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			env := setup(t)
			require.NoError(t, env.Host.Press(context.Background(), tt.key))
			assert.Equal(t, tt.want, calls(env, "cursorRight"))
			assert.Equal(t, tt.want, cursor(env))
			assert.Len(t, env.Host.Errors(), tt.errors)

			entries := history.Entries(env.Store.Snapshot())
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want-1, entries[0].Repeat)
		})
	}
}

func TestRepeatIsClamped(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.Host.Press(context.Background(), "j"))
	assert.Empty(t, env.Host.Errors())

	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 1)
	assert.Equal(t, dispatcher.DefaultConfig().MaxRepeatCount, entries[0].Repeat)
	assert.Equal(t, dispatcher.DefaultConfig().MaxRepeatCount+1, calls(env, "cursorRight"))
}

func TestSkippedCommandIsRecorded(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.Host.Press(context.Background(), "d"))
	assert.Equal(t, 1, cursor(env))

	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 1)
	assert.Equal(t, []spec.Command{
		{Command: "cursorRight", If: false},
		{Command: "cursorRight", Args: map[string]any{"by": "one"}},
	}, entries[0].Do)
}

func TestComputedArgs(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.Host.Press(context.Background(), "h"))
	assert.Equal(t, 2, cursor(env))

	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].Do[0].Args["value"])
	assert.Equal(t, "right", entries[0].Do[0].Args["to"])
}

func TestArgumentErrorSkipsCommand(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.Host.Press(context.Background(), "e"))
	assert.Equal(t, 1, cursor(env))
	require.Len(t, env.Host.Errors(), 1)
	assert.Contains(t, env.Host.Errors()[0], "setMode")
	assert.Equal(t, "normal", dispatchertest.Value(env, state.ModeKey, ""))
	assert.Len(t, history.Entries(env.Store.Snapshot()), 1)
}

func TestCommandFailureAbortsDispatch(t *testing.T) {
	env := setup(t)
	err := env.Host.Press(context.Background(), "f")
	require.Error(t, err)

	var ce *dispatcher.CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "noSuchCommand", ce.Command)
	assert.Equal(t, 0, ce.Index)
	assert.ErrorIs(t, err, host.ErrUnknownCommand)

	assert.Equal(t, 0, cursor(env))
	assert.Empty(t, history.Entries(env.Store.Snapshot()))
}

func TestCancelledCaptureAbortsDispatch(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	require.NoError(t, env.Host.Press(ctx, "g"))
	require.True(t, env.Host.Intercepting())
	_, err := env.Store.Set(ctx, state.ModeKey, "normal", state.Public())
	require.NoError(t, err)
	env.Host.Wait()

	assert.Equal(t, 0, cursor(env))
	assert.Empty(t, history.Entries(env.Store.Snapshot()))
	assert.Empty(t, env.Host.Errors())
	assert.False(t, env.Host.Intercepting())
}

func TestCompletedCaptureRecordsText(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	require.NoError(t, env.Host.Press(ctx, "g"))
	require.NoError(t, env.Host.Type(ctx, "q"))
	env.Host.Wait()

	assert.Equal(t, 1, cursor(env))
	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 1)
	assert.Equal(t, "q", entries[0].Do[0].Args["text"])
	assert.Equal(t, "q", dispatchertest.Value(env, state.CapturedKey, ""))
}

func TestHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	env.Dispatcher.Context().WithMaxHistory(2)

	require.NoError(t, env.Host.PressAll(ctx, "a c h"))
	entries := history.Entries(env.Store.Snapshot())
	require.Len(t, entries, 2)
	assert.Equal(t, "literal", entries[0].Name)
	assert.Equal(t, "computed", entries[1].Name)
}

func TestExecuteUnknownAction(t *testing.T) {
	env := setup(t)
	_, err := env.Dispatcher.Execute(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, dispatcher.ErrUnknownAction)
}

func TestInstalledCommands(t *testing.T) {
	env := setup(t)
	list := env.Dispatcher.Registry().List()
	assert.Contains(t, list, "do")
	assert.Contains(t, list, mode.ActionSetMode)
	assert.Contains(t, list, capture.ActionCaptureKeys)

	err := env.Dispatcher.Register(mode.NewModeHandler())
	assert.ErrorIs(t, err, dispatcher.ErrHandlerExists)

	env.Dispatcher.Close()
	_, err = env.Host.ExecuteCommand(context.Background(), "masterkey.setMode", map[string]any{"value": "insert"})
	assert.ErrorIs(t, err, host.ErrUnknownCommand)
}

func TestDecodeDoArgs(t *testing.T) {
	args, err := dispatcher.DecodeDoArgs(map[string]any{
		"do":         []any{map[string]any{"command": "x", "args": map[string]any{"n": 1}}},
		"prefixCode": 2.0,
		"mode":       "normal",
		"key":        "g g",
	})
	require.NoError(t, err)
	assert.True(t, args.ResetTransient)
	assert.Equal(t, 2, args.PrefixCode)
	assert.Equal(t, []spec.Command{{Command: "x", Args: map[string]any{"n": 1}}}, args.Do)

	args, err = dispatcher.DecodeDoArgs(map[string]any{"resetTransient": false})
	require.NoError(t, err)
	assert.False(t, args.ResetTransient)

	_, err = dispatcher.DecodeDoArgs(map[string]any{"unknown": 1})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := dispatcher.NewRegistry()
	tbl := handler.Table{
		"b": func(context.Context, map[string]any, *execctx.ExecutionContext) handler.Result { return handler.Success() },
		"a": func(context.Context, map[string]any, *execctx.ExecutionContext) handler.Result { return handler.Success() },
	}
	require.NoError(t, r.Register(tbl))
	assert.Equal(t, []string{"a", "b"}, r.List())
	assert.Equal(t, 2, r.Count())
	assert.ErrorIs(t, r.Register(tbl), dispatcher.ErrHandlerExists)

	r.Unregister("a")
	assert.False(t, r.Has("a"))
	assert.True(t, r.Has("b"))
	assert.Nil(t, r.Get("a"))
}

func TestStatusItems(t *testing.T) {
	env := setup(t)
	assert.Equal(t, "normal", env.Host.Status("masterkey.mode"))
	assert.Equal(t, "", env.Host.Status("masterkey.keys"))

	_, err := env.Run(context.Background(), mode.ActionSetMode, map[string]any{"value": "insert"})
	require.NoError(t, err)
	assert.Equal(t, "insert", env.Host.Status("masterkey.mode"))
}
