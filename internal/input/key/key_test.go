package key

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"l", "l"},
		{"L", "shift+l"},
		{"Shift+L", "shift+l"},
		{"alt+ctrl+x", "ctrl+alt+x"},
		{"<C-s>", "ctrl+s"},
		{"<C-S-p>", "ctrl+shift+p"},
		{"<CR>", "enter"},
		{"Esc", "escape"},
		{"cmd+shift+k", "shift+meta+k"},
		{"ctrl++", "ctrl++"},
		{"+", "+"},
		{"shift+=", "shift+="},
		{"F5", "f5"},
		{"space", "space"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Canonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{"", "hyper+a", "<X-a>", "notakey"}
	for _, in := range tests {
		_, err := Parse(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrEmptySpec) || errors.Is(err, ErrInvalidSpec), in)
	}
}

func TestParseSequence(t *testing.T) {
	seq, err := ParseSequence("g  G ctrl+k")
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "shift+g", "ctrl+k"}, seq.Strings())
	assert.Equal(t, "g shift+g ctrl+k", seq.String())

	_, err = ParseSequence("   ")
	assert.ErrorIs(t, err, ErrEmptySpec)

	_, err = ParseSequence("g bogus+x")
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestJoinPrefix(t *testing.T) {
	assert.Equal(t, "g", JoinPrefix("", "g"))
	assert.Equal(t, "g g", JoinPrefix("g", "g"))
}

func TestExpandPattern(t *testing.T) {
	keys, ok, err := ExpandPattern("<all-keys>")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, keys, len(ReferenceLayout()))
	assert.Equal(t, "a", keys[0])

	keys, ok, err = ExpandPattern("Shift+<all-keys>")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "shift+a", keys[0])
	assert.Contains(t, keys, "shift+/")

	_, ok, err = ExpandPattern("a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ExpandPattern("bogus+<all-keys>")
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrInvalidSpec)
}
