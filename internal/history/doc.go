// Package history records top-level dispatches and replays them.
//
// The command history lives in session state as an immutable slice that is
// replaced on every append, bounded by a maximum length with the oldest
// entries evicted first. Slices of history can be selected with
// expressions, pushed onto a macro stack, and replayed through a Runner
// with a fixed delay between entries. Edits typed while a recording mode is
// active are attached to the entry that entered that mode so replay can
// re-insert them.
package history
