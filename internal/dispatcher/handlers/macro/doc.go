// Package macro implements history replay and the macro stack.
package macro
