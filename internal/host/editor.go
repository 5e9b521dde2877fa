package host

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrBadEdit indicates an edit outside the document or overlapping another.
var ErrBadEdit = errors.New("host: invalid edit")

// MemoryEditor is an Editor over an in-memory string.
type MemoryEditor struct {
	mu     sync.Mutex
	doc    string
	text   string
	sels   []Selection
	notify func(DocumentChange)
}

// NewMemoryEditor creates an editor with the cursor at offset 0.
func NewMemoryEditor(doc, text string) *MemoryEditor {
	return &MemoryEditor{doc: doc, text: text, sels: []Selection{Cursor(0)}}
}

// Document returns the document name.
func (e *MemoryEditor) Document() string {
	return e.doc
}

// Text returns the whole document.
func (e *MemoryEditor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// Selections returns a copy of the selections.
func (e *MemoryEditor) Selections() []Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.sels)
}

// SetSelections replaces the selections, clamped to the document.
func (e *MemoryEditor) SetSelections(sels []Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sels = e.sels[:0]
	for _, s := range sels {
		e.sels = append(e.sels, Selection{Anchor: e.clamp(s.Anchor), Active: e.clamp(s.Active)})
	}
}

// Replace applies edits and moves selections past inserted text.
func (e *MemoryEditor) Replace(edits []Edit) error {
	if len(edits) == 0 {
		return nil
	}
	e.mu.Lock()
	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b Edit) int { return a.Start - b.Start })
	for i, ed := range sorted {
		if ed.Start < 0 || ed.End < ed.Start || ed.End > len(e.text) {
			e.mu.Unlock()
			return fmt.Errorf("%w: [%d,%d) in %d bytes", ErrBadEdit, ed.Start, ed.End, len(e.text))
		}
		if i > 0 && ed.Start < sorted[i-1].End {
			e.mu.Unlock()
			return fmt.Errorf("%w: overlapping edits", ErrBadEdit)
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		ed := sorted[i]
		e.text = e.text[:ed.Start] + ed.Text + e.text[ed.End:]
		for j := range e.sels {
			e.sels[j].Anchor = shift(e.sels[j].Anchor, ed)
			e.sels[j].Active = shift(e.sels[j].Active, ed)
		}
	}
	notify := e.notify
	change := DocumentChange{Document: e.doc, Changes: slices.Clone(edits)}
	e.mu.Unlock()

	if notify != nil {
		notify(change)
	}
	return nil
}

// shift maps an offset through one edit. Offsets inside the replaced
// range land after the inserted text.
func shift(off int, ed Edit) int {
	switch {
	case off < ed.Start:
		return off
	case off <= ed.End:
		return ed.Start + len(ed.Text)
	default:
		return off + len(ed.Text) - (ed.End - ed.Start)
	}
}

func (e *MemoryEditor) clamp(off int) int {
	return max(0, min(off, len(e.text)))
}

// InsertAtSelections replaces every selection with text.
func InsertAtSelections(ed Editor, text string) error {
	sels := ed.Selections()
	edits := make([]Edit, len(sels))
	for i, s := range sels {
		edits[i] = Edit{Start: s.Start(), End: s.End(), Text: text}
	}
	return ed.Replace(edits)
}
