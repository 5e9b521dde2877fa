// Package count provides the numeric count prefix handler.
package count
