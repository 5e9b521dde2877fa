package history

import (
	"github.com/google/uuid"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// DefaultMaxHistory bounds the history when no limit is configured.
const DefaultMaxHistory = 1024

// Entry is one recorded dispatch.
type Entry struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Do is the command list as it actually ran: computed arguments merged
	// into Args and skipped commands marked with If=false.
	Do     []spec.Command `json:"do" mapstructure:"do"`
	Repeat int            `json:"repeat" mapstructure:"repeat"`

	// Recorded is the value of the record flag when the entry was made.
	Recorded bool `json:"recorded" mapstructure:"recorded"`

	// Document is set when the entry ran in a mode that records edits.
	Document string   `json:"document,omitempty" mapstructure:"document"`
	Edits    []string `json:"edits,omitempty" mapstructure:"edits"`
}

// NewEntry creates an entry with a fresh id.
func NewEntry(name string, do []spec.Command, repeat int) Entry {
	return Entry{ID: uuid.NewString(), Name: name, Do: do, Repeat: repeat}
}

func (e Entry) clone() Entry {
	out := e
	out.Do = make([]spec.Command, len(e.Do))
	for i, c := range e.Do {
		out.Do[i] = c.Clone()
	}
	out.Edits = append([]string(nil), e.Edits...)
	return out
}

// Entries returns the recorded history, oldest first. The slice must not
// be modified.
func Entries(s *state.State) []Entry {
	return state.Value[[]Entry](s, state.HistoryKey, nil)
}

// Append adds e to the history, evicting from the front so at most max
// entries remain. It returns the new state and the number evicted.
func Append(s *state.State, e Entry, max int) (*state.State, int) {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	old := Entries(s)
	drop := 0
	if len(old)+1 > max {
		drop = len(old) + 1 - max
	}
	next := make([]Entry, 0, len(old)-drop+1)
	next = append(next, old[drop:]...)
	next = append(next, e)
	return s.Set(state.HistoryKey, next), drop
}

// updateLast replaces the newest entry with fn's result.
func updateLast(s *state.State, fn func(Entry) Entry) *state.State {
	old := Entries(s)
	if len(old) == 0 {
		return s
	}
	next := make([]Entry, len(old))
	copy(next, old)
	next[len(next)-1] = fn(next[len(next)-1].clone())
	return s.Set(state.HistoryKey, next)
}

// Values converts entries to the plain maps and slices expressions see,
// e.g. commandHistory[index].name.
func Values(entries []Entry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		do := make([]any, len(e.Do))
		for j, c := range e.Do {
			cmd := map[string]any{"command": c.Command, "args": spec.CloneMap(c.Args)}
			if c.Args == nil {
				cmd["args"] = map[string]any{}
			}
			if len(c.ComputedArgs) > 0 {
				ca := make(map[string]any, len(c.ComputedArgs))
				for k, v := range c.ComputedArgs {
					ca[k] = v
				}
				cmd["computedArgs"] = ca
			}
			if c.If != nil {
				cmd["if"] = c.If
			}
			do[j] = cmd
		}
		edits := make([]any, len(e.Edits))
		for j, t := range e.Edits {
			edits[j] = t
		}
		out[i] = map[string]any{
			"id":       e.ID,
			"name":     e.Name,
			"do":       do,
			"repeat":   e.Repeat,
			"recorded": e.Recorded,
			"document": e.Document,
			"edits":    edits,
		}
	}
	return out
}
