package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/config"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	// Level is the minimum level written.
	Level slog.Level
	// Format is LogFormatText or LogFormatJSON.
	Format string
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
}

// LoggerConfigFrom reads the log level and format from settings.
func LoggerConfigFrom(s config.Settings, w io.Writer) (LoggerConfig, error) {
	level, err := config.ParseLevel(s.LogLevel)
	if err != nil {
		return LoggerConfig{}, err
	}
	return LoggerConfig{Level: level, Format: s.LogFormat, Output: w}, nil
}

// NewLogger creates a structured logger tagged with the application name.
func NewLogger(cfg LoggerConfig) (*slog.Logger, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	switch cfg.Format {
	case "", LogFormatText:
		h = slog.NewTextHandler(cfg.Output, opts)
	case LogFormatJSON:
		h = slog.NewJSONHandler(cfg.Output, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(h).With("app", "masterkey"), nil
}

// DiscardLogger returns a logger that writes nothing.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
