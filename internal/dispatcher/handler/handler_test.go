package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
)

func TestTable(t *testing.T) {
	var got map[string]any
	tbl := Table{
		"echo": func(_ context.Context, args map[string]any, _ *execctx.ExecutionContext) Result {
			got = args
			return SuccessWithArgs(args)
		},
	}
	assert.Equal(t, []string{"echo"}, tbl.Actions())

	r := tbl.HandleAction(context.Background(), Action{Name: "echo", Args: map[string]any{"a": 1}}, nil)
	assert.True(t, r.IsOK())
	assert.Equal(t, map[string]any{"a": 1}, got)
	assert.Equal(t, got, r.Args)

	r = tbl.HandleAction(context.Background(), Action{Name: "missing"}, nil)
	assert.True(t, r.IsError())
}

func TestDecodeArgs(t *testing.T) {
	type args struct {
		Value int    `mapstructure:"value"`
		Name  string `mapstructure:"name"`
	}
	var a args
	require.NoError(t, DecodeArgs("x", map[string]any{"value": "3", "name": "n"}, &a))
	assert.Equal(t, args{Value: 3, Name: "n"}, a)

	err := DecodeArgs("x", map[string]any{"value": 1, "extra": true}, &a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgs)
	var ae *ArgsError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "x", ae.Action)

	err = DecodeArgs("x", map[string]any{"value": map[string]any{"a": 1}}, &a)
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, "ok", Success().Status.String())
	assert.Equal(t, "no-op", NoOp().Status.String())
	assert.Equal(t, "cancelled", Cancelled().Status.String())
	r := Errorf("bad %d", 1)
	assert.EqualError(t, r.Error, "bad 1")
	assert.Equal(t, "hi", NoOp().WithMessage("hi").Message)

	ir := InvalidArgs("prefix", "unknown code %d", 9)
	assert.ErrorIs(t, ir.Error, ErrInvalidArgs)
}
