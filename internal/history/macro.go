package history

import "github.com/haberdashPI/vscode-master-key-sub000/internal/state"

// Macros returns the macro stack, top first.
func Macros(s *state.State) [][]Entry {
	return state.Value[[][]Entry](s, state.MacroKey, nil)
}

// PushMacro puts entries on top of the macro stack.
func PushMacro(s *state.State, entries []Entry) *state.State {
	old := Macros(s)
	macro := make([]Entry, len(entries))
	for i, e := range entries {
		macro[i] = e.clone()
	}
	next := make([][]Entry, 0, len(old)+1)
	next = append(next, macro)
	next = append(next, old...)
	return s.Set(state.MacroKey, next)
}

// TakeMacro returns the macro index positions from the top. Unless keep
// is set the macro is removed from the stack.
func TakeMacro(s *state.State, index int, keep bool) ([]Entry, *state.State, bool) {
	old := Macros(s)
	if index < 0 || index >= len(old) {
		return nil, s, false
	}
	macro := old[index]
	if keep {
		return macro, s, true
	}
	next := make([][]Entry, 0, len(old)-1)
	next = append(next, old[:index]...)
	next = append(next, old[index+1:]...)
	return macro, s.Set(state.MacroKey, next), true
}
