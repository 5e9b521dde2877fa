// Package key canonicalizes key specifications.
//
// A key is written as optional modifiers joined to a base key with "+",
// and a sequence is a space separated list of keys:
//
//	"l"            - single character
//	"Shift+L"      - canonical form "shift+l"
//	"L"            - uppercase implies shift: "shift+l"
//	"<C-s>"        - Vim notation: "ctrl+s"
//	"g g"          - two-key sequence
//	"ctrl+k ctrl+c"
//
// Canonical strings are lowercase with modifiers in a fixed order
// (ctrl, shift, alt, meta, win) so they can be compared and hashed directly.
//
// The reference layout (ReferenceLayout) lists the physical keys the
// "<all-keys>" wildcard expands to.
package key
