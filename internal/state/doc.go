// Package state provides the versioned session state and the queue that
// serializes every change to it.
//
// A State is immutable: Set, Update and Reset return a new version and
// leave the receiver untouched, so a reader holding an older version keeps
// a consistent snapshot. Each key carries two flags. Public keys are
// mirrored into the host's condition context on every resolve. Transient
// keys snap back to their reset value on Reset.
//
// A Store owns the single live State. Mutations are submitted to it as
// Transform closures and run one at a time, in submission order, by one
// worker loop:
//
//	st.Do(ctx, func(ctx context.Context, s *state.State) (*state.State, error) {
//		return s.Set(state.CountKey, 3, state.Public(), state.Transient(0)), nil
//	})
//
// A Transform may call Do again with the context it was given; the nested
// call runs inline on the current version instead of deadlocking. A
// Transform that must wait for outside input (key capture, replay delays)
// calls Park, which lets other operations run until the wait ends.
package state
