// Package prefix provides the handler that advances the key prefix.
//
// Compiled multi-key bindings install one prefix command per leading key.
// It records the new prefix code, and the prefix text for display, as
// transient public state so the next key's guards see it.
package prefix
