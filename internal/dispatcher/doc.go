// Package dispatcher runs the command lists attached to compiled bindings.
//
// A binding's arguments (keymap.DoArgs) carry an ordered list of command
// descriptors. Dispatch runs them against the live session state as one
// store transform, so nothing else touches state while a key is handled
// unless a command explicitly parks the transform (key capture, replay
// delays).
//
// # Dispatch
//
// For each top-level dispatch:
//
//  1. Edits typed since the last dispatch are attached to the newest
//     history entry.
//  2. The repeat count is resolved: a number is used directly, an
//     expression is evaluated and must yield a number (otherwise it is
//     reported and treated as 0).
//  3. Base pass: each descriptor's "if" is evaluated, computed arguments
//     are merged over literal ones and the command runs. The resulting
//     reified descriptor list is what repeats and history see.
//  4. Repeat pass: the reified list runs again repeat more times.
//  5. Finalization: state is resolved so the status shows the typed key,
//     then transient keys are reset (unless the binding opts out) and
//     resolved again.
//  6. The dispatch is appended to history unless it only advanced a prefix.
//
// # Commands
//
// Commands named "<namespace>.<action>" whose action has a registered
// handler.Handler run in-process; everything else goes to the host. A
// handler failing argument validation is reported and skipped. Any other
// failure aborts the dispatch and is returned as a *CommandError.
// Cancellation (host.ErrCancelled, a cancelled host.Result or handler
// result) stops the dispatch with ErrCancelled.
package dispatcher
