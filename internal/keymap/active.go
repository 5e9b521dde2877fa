package keymap

import "sync/atomic"

// Active holds the binding set currently installed. Recompilation swaps the
// whole set; readers see either the old or the new one.
type Active struct {
	cur atomic.Pointer[Result]
}

// Load returns the current result, or nil before the first Store.
func (a *Active) Load() *Result {
	return a.cur.Load()
}

// Store installs res and returns the previous result.
func (a *Active) Store(res *Result) *Result {
	return a.cur.Swap(res)
}
