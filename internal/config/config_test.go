package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := Load(New(""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
	assert.Equal(t, 1024, s.MaxHistory)
	assert.Equal(t, 50*time.Millisecond, s.ReplayDelay)
	assert.Equal(t, "masterkey", s.ContextPrefix)
	assert.Equal(t, 3, s.MaxExpressionErrors)
}

func TestSettingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "masterkey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
specPath: larkin.toml
maxHistory: 16
replayDelay: 5ms
logFormat: json
`), 0o644))

	s, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, "larkin.toml", s.SpecPath)
	assert.Equal(t, 16, s.MaxHistory)
	assert.Equal(t, 5*time.Millisecond, s.ReplayDelay)
	assert.Equal(t, "json", s.LogFormat)
	assert.Equal(t, "info", s.LogLevel)
}

func TestSettingsFileLookup(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "masterkey.toml"), []byte(`maxProblems = 4`), 0o644))

	s, err := Load(New(""))
	require.NoError(t, err)
	assert.Equal(t, 4, s.MaxProblems)
}

func TestEnvironmentAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MASTERKEY_MAXHISTORY", "8")
	t.Setenv("MASTERKEY_LOGLEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(KeySpecPath, "", "")
	flags.String(KeyLogLevel, "info", "")
	flags.Bool("unrelated", false, "")
	require.NoError(t, flags.Parse([]string{"--specPath=keys.yaml", "--logLevel=warn"}))

	v := New("")
	require.NoError(t, BindFlags(v, flags))
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 8, s.MaxHistory)
	assert.Equal(t, "keys.yaml", s.SpecPath)
	// flags override the environment
	assert.Equal(t, "warn", s.LogLevel)
}

func TestValidate(t *testing.T) {
	s := Defaults()
	s.MaxHistory = 0
	s.LogFormat = "xml"
	s.LogLevel = "loud"
	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), KeyMaxHistory)
	assert.Contains(t, err.Error(), KeyLogFormat)
	assert.Contains(t, err.Error(), KeyLogLevel)

	require.NoError(t, Defaults().Validate())
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(New(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}
