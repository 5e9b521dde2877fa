package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/config"
)

const spec = `
[header]
version = "1.0"

[[mode]]
name = "normal"
default = true

[[mode]]
name = "insert"
whenNoBinding = "insertCharacters"

[[bind]]
key = "l"
name = "right"
description = "move right"
command = "cursorMove"
args.to = "right"

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
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCompile(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec)
	out, _, err := execute(t, "", "compile", path)
	require.NoError(t, err)

	var bindings []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &bindings))
	require.NotEmpty(t, bindings)
	var keys []string
	for _, b := range bindings {
		assert.Equal(t, "masterkey.do", b["command"])
		keys = append(keys, b["key"].(string))
	}
	assert.Contains(t, keys, "l")
	assert.Contains(t, keys, "escape")
}

func TestCompileToFile(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec)
	dest := filepath.Join(t.TempDir(), "keybindings.json")
	out, _, err := execute(t, "", "compile", path, "-o", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestCompileUsesConfiguredSpec(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec)
	t.Setenv("MASTERKEY_SPECPATH", path)
	out, _, err := execute(t, "", "compile")
	require.NoError(t, err)
	assert.Contains(t, out, `"key": "l"`)
}

func TestCompileWithoutSpec(t *testing.T) {
	_, _, err := execute(t, "", "compile")
	assert.ErrorIs(t, err, config.ErrNoSpecPath)
}

func TestCheck(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec)
	out, errOut, err := execute(t, "", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok:")
	assert.Contains(t, out, "in 3 modes")
	assert.Empty(t, errOut)
}

func TestCheckWarnings(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec+`
[[bind]]
key = "l"
name = "also right"
command = "cursorRight"
`)
	_, errOut, err := execute(t, "", "check", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "conflicts")

	_, _, err = execute(t, "", "check", "--strict", path)
	assert.EqualError(t, err, "1 problems")
}

func TestCheckErrors(t *testing.T) {
	path := writeFile(t, "bindings.toml", strings.Replace(spec, `whenNoBinding = "insertCharacters"`, `whenNoBinding = "sometimes"`, 1))
	_, errOut, err := execute(t, "", "check", path)
	require.Error(t, err)
	assert.Contains(t, errOut, `unknown whenNoBinding "sometimes"`)
}

func TestDocs(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec)
	out, _, err := execute(t, "", "docs", "--title", "Test keys", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# Test keys")
	assert.Contains(t, out, "move right")
}

func TestSimulate(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec)
	out, _, err := execute(t, "", "simulate", path, "--text", "abc", "--keys", "l l i x escape")
	require.NoError(t, err)

	var got session
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "abxc", got.Text)
	assert.Equal(t, "normal", got.Mode)
	require.Len(t, got.Selections, 1)
	assert.Equal(t, 3, got.Selections[0].Active)
	assert.Equal(t, []string{"right", "right", "insert", "normal"}, got.History)
}

func TestSimulateReadsStdin(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec)
	out, _, err := execute(t, "# move twice\nl\n\nl\n", "simulate", path, "--text", "abc")
	require.NoError(t, err)

	var got session
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Selections[0].Active)
}

func TestInvalidSettings(t *testing.T) {
	path := writeFile(t, "bindings.toml", spec)
	_, _, err := execute(t, "", "check", "--logFormat", "xml", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrValidationFailed)
}
