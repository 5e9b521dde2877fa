package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
)

// EnvPrefix prefixes environment variables, e.g. MASTERKEY_SPECPATH.
const EnvPrefix = "MASTERKEY"

// Setting keys.
const (
	KeySpecPath            = "specPath"
	KeyMaxHistory          = "maxHistory"
	KeyReplayDelay         = "replayDelay"
	KeyNamespace           = "namespace"
	KeyContextPrefix       = "contextPrefix"
	KeyMaxProblems         = "maxProblems"
	KeyMaxExpressionErrors = "maxExpressionErrors"
	KeyLogLevel            = "logLevel"
	KeyLogFormat           = "logFormat"
	KeyTrace               = "trace"
	KeyWatchDebounce       = "watchDebounce"
)

// Settings holds every masterkey setting.
type Settings struct {
	// SpecPath is the binding specification file.
	SpecPath string `mapstructure:"specPath"`

	// MaxHistory bounds the command history.
	MaxHistory int `mapstructure:"maxHistory"`

	// ReplayDelay separates replayed history entries.
	ReplayDelay time.Duration `mapstructure:"replayDelay"`

	// Namespace prefixes built-in command names.
	Namespace string `mapstructure:"namespace"`

	// ContextPrefix prefixes the mirrored context keys.
	ContextPrefix string `mapstructure:"contextPrefix"`

	// MaxProblems bounds how many specification problems are shown.
	MaxProblems int `mapstructure:"maxProblems"`

	// MaxExpressionErrors bounds how many expression errors one
	// dispatch shows.
	MaxExpressionErrors int `mapstructure:"maxExpressionErrors"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"logLevel"`

	// LogFormat is text or json.
	LogFormat string `mapstructure:"logFormat"`

	// Trace enables span export to stdout.
	Trace bool `mapstructure:"trace"`

	// WatchDebounce coalesces bursts of specification file changes.
	WatchDebounce time.Duration `mapstructure:"watchDebounce"`
}

// Defaults returns the default settings.
func Defaults() Settings {
	return Settings{
		MaxHistory:          history.DefaultMaxHistory,
		ReplayDelay:         history.DefaultReplayDelay,
		Namespace:           keymap.DefaultNamespace,
		ContextPrefix:       keymap.DefaultNamespace,
		MaxProblems:         10,
		MaxExpressionErrors: diag.DefaultMaxBatch,
		LogLevel:            "info",
		LogFormat:           "text",
		WatchDebounce:       100 * time.Millisecond,
	}
}

// New returns a viper instance with defaults and environment binding set
// up. configFile, when non-empty, names the settings file explicitly;
// otherwise masterkey.{yaml,toml,json} is looked up in the working
// directory and then the user config directory.
func New(configFile string) *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault(KeySpecPath, d.SpecPath)
	v.SetDefault(KeyMaxHistory, d.MaxHistory)
	v.SetDefault(KeyReplayDelay, d.ReplayDelay)
	v.SetDefault(KeyNamespace, d.Namespace)
	v.SetDefault(KeyContextPrefix, d.ContextPrefix)
	v.SetDefault(KeyMaxProblems, d.MaxProblems)
	v.SetDefault(KeyMaxExpressionErrors, d.MaxExpressionErrors)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyTrace, d.Trace)
	v.SetDefault(KeyWatchDebounce, d.WatchDebounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v
	}
	v.SetConfigName("masterkey")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "masterkey"))
	}
	return v
}

// BindFlags binds command-line flags whose names match setting keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case KeySpecPath, KeyMaxHistory, KeyReplayDelay, KeyNamespace, KeyContextPrefix,
			KeyMaxProblems, KeyMaxExpressionErrors, KeyLogLevel, KeyLogFormat, KeyTrace, KeyWatchDebounce:
			err = v.BindPFlag(f.Name, f)
		}
	})
	return err
}

// Load reads the settings file, if any, and decodes the merged settings.
// A missing settings file is not an error.
func Load(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, err
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every setting.
func (s Settings) Validate() error {
	var errs []error
	check := func(ok bool, key string, value any, msg string) {
		if !ok {
			errs = append(errs, &ValidationError{Setting: key, Value: value, Message: msg})
		}
	}
	check(s.MaxHistory > 0, KeyMaxHistory, s.MaxHistory, "must be positive")
	check(s.ReplayDelay >= 0, KeyReplayDelay, s.ReplayDelay, "must not be negative")
	check(s.Namespace != "", KeyNamespace, s.Namespace, "must not be empty")
	check(s.ContextPrefix != "", KeyContextPrefix, s.ContextPrefix, "must not be empty")
	check(s.MaxProblems > 0, KeyMaxProblems, s.MaxProblems, "must be positive")
	check(s.MaxExpressionErrors > 0, KeyMaxExpressionErrors, s.MaxExpressionErrors, "must be positive")
	_, err := ParseLevel(s.LogLevel)
	check(err == nil, KeyLogLevel, s.LogLevel, "must be debug, info, warn or error")
	check(s.LogFormat == "text" || s.LogFormat == "json", KeyLogFormat, s.LogFormat, "must be text or json")
	check(s.WatchDebounce >= 0, KeyWatchDebounce, s.WatchDebounce, "must not be negative")
	return errors.Join(errs...)
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}
