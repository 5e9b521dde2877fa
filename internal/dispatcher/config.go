package dispatcher

import (
	"time"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
)

// Config holds dispatcher configuration options.
type Config struct {
	// Namespace prefixes the built-in command names.
	Namespace string

	// MaxHistory bounds the command history.
	MaxHistory int

	// ReplayDelay separates replayed history entries.
	ReplayDelay time.Duration

	// MaxRepeatCount limits the resolved repeat count.
	// Zero means no limit.
	MaxRepeatCount int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Namespace:      keymap.DefaultNamespace,
		MaxHistory:     history.DefaultMaxHistory,
		ReplayDelay:    history.DefaultReplayDelay,
		MaxRepeatCount: 10000,
	}
}

// WithNamespace returns a copy of the config with the namespace set.
func (c Config) WithNamespace(ns string) Config {
	if ns != "" {
		c.Namespace = ns
	}
	return c
}

// WithMaxHistory returns a copy of the config with the history bound set.
func (c Config) WithMaxHistory(n int) Config {
	if n > 0 {
		c.MaxHistory = n
	}
	return c
}

// WithReplayDelay returns a copy of the config with the replay delay set.
func (c Config) WithReplayDelay(d time.Duration) Config {
	c.ReplayDelay = d
	return c
}

// WithMaxRepeatCount returns a copy of the config with the max repeat count set.
func (c Config) WithMaxRepeatCount(max int) Config {
	c.MaxRepeatCount = max
	return c
}
