package host

import (
	"context"
	"errors"
)

var (
	// ErrCancelled is returned by a command to abort the dispatch that ran it.
	ErrCancelled = errors.New("host: command cancelled")

	// ErrUnknownCommand indicates no command is registered under a name.
	ErrUnknownCommand = errors.New("host: unknown command")

	// ErrInterceptorTaken indicates raw typing is already intercepted.
	ErrInterceptorTaken = errors.New("host: typing is already intercepted")

	// ErrCommandExists indicates a command name is already registered.
	ErrCommandExists = errors.New("host: command already registered")
)

// Result may be returned by a command to report cancellation or the
// arguments it actually used (e.g. the captured text).
type Result struct {
	Cancelled bool
	Args      map[string]any
}

// CommandFunc implements a command.
type CommandFunc func(ctx context.Context, args map[string]any) (any, error)

// Disposable releases a registration.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

// Dispose calls f.
func (f DisposeFunc) Dispose() {
	f()
}

// Host is the editor the engine runs in.
type Host interface {
	// ExecuteCommand runs a command by name.
	ExecuteCommand(ctx context.Context, name string, args map[string]any) (any, error)

	// RegisterCommand makes fn callable by name.
	RegisterCommand(name string, fn CommandFunc) (Disposable, error)

	// SetContext sets a key of the condition context used by when clauses.
	SetContext(key string, value any)

	ShowError(msg string)
	ShowInfo(msg string)

	// SetStatus sets the status item id; empty text hides it.
	SetStatus(id, text string)

	// InterceptTyping routes raw typed text to fn until disposed.
	InterceptTyping(fn func(text string)) (Disposable, error)

	// ActiveEditor returns the focused editor, or nil.
	ActiveEditor() Editor

	// OnDocumentChange observes every text change.
	OnDocumentChange(fn func(DocumentChange)) Disposable
}

// Selection is a range of byte offsets. Active is the cursor end.
type Selection struct {
	Anchor int `json:"anchor"`
	Active int `json:"active"`
}

// Cursor returns an empty selection at off.
func Cursor(off int) Selection {
	return Selection{Anchor: off, Active: off}
}

// Start returns the lower offset.
func (s Selection) Start() int {
	return min(s.Anchor, s.Active)
}

// End returns the higher offset.
func (s Selection) End() int {
	return max(s.Anchor, s.Active)
}

// Empty reports whether the selection is a bare cursor.
func (s Selection) Empty() bool {
	return s.Anchor == s.Active
}

// Edit replaces the bytes [Start, End) with Text.
type Edit struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// DocumentChange reports the edits applied to a document in one step.
type DocumentChange struct {
	Document string `json:"document"`
	Changes  []Edit `json:"changes"`
}

// Editor is a text editor showing one document.
type Editor interface {
	// Document identifies the open document.
	Document() string
	Text() string
	Selections() []Selection
	SetSelections(sels []Selection)
	// Replace applies edits atomically; offsets refer to the text before
	// any of them.
	Replace(edits []Edit) error
}
