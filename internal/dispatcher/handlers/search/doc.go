// Package search implements in-document search: search, nextMatch and
// previousMatch.
//
// A search without text reads it from the keyboard, moving the
// selections to the first match after each key. Settings are saved per
// register so later nextMatch and previousMatch calls repeat them.
package search
