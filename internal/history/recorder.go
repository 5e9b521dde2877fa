package history

import (
	"sync"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Recorder buffers document changes until the dispatcher attributes them
// to a history entry. Host callbacks only append to the buffer; state is
// touched only by Attach, which runs inside a store transform.
type Recorder struct {
	mu      sync.Mutex
	pending []host.DocumentChange
	sub     host.Disposable
}

// NewRecorder starts observing document changes on h.
func NewRecorder(h host.Host) *Recorder {
	r := &Recorder{}
	r.sub = h.OnDocumentChange(r.observe)
	return r
}

func (r *Recorder) observe(ch host.DocumentChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, ch)
}

func (r *Recorder) take() []host.DocumentChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

// Attach adds buffered changes to the newest entry when it recorded the
// changed document. Changes to other documents are dropped.
func (r *Recorder) Attach(s *state.State) *state.State {
	changes := r.take()
	if len(changes) == 0 {
		return s
	}
	entries := Entries(s)
	if len(entries) == 0 || entries[len(entries)-1].Document == "" {
		return s
	}
	doc := entries[len(entries)-1].Document
	var edits []string
	for _, ch := range changes {
		if ch.Document != doc {
			continue
		}
		if text, ok := Collapse(ch); ok {
			edits = append(edits, text)
		}
	}
	if len(edits) == 0 {
		return s
	}
	return updateLast(s, func(e Entry) Entry {
		e.Edits = append(e.Edits, edits...)
		return e
	})
}

// Discard drops buffered changes. The dispatcher calls it for changes its
// own commands made, since replaying the commands reproduces them.
func (r *Recorder) Discard() {
	r.take()
}

// Close stops observing.
func (r *Recorder) Close() {
	if r.sub != nil {
		r.sub.Dispose()
	}
}

// Collapse reduces one change event to the text it inserted. Events from
// several cursors normally repeat one text; when they disagree the primary
// cursor's text is kept. Pure deletions yield nothing.
func Collapse(ch host.DocumentChange) (string, bool) {
	if len(ch.Changes) == 0 {
		return "", false
	}
	text := ch.Changes[0].Text
	return text, text != ""
}
