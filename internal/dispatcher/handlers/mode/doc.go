// Package mode provides handlers that switch modes and set flags.
package mode
