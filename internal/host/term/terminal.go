// Package term drives an in-memory host from a terminal: key presses go to
// the host, and the editor text, selections and status items are drawn
// after every change.
package term

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
)

// DefaultQuitKey ends Run.
const DefaultQuitKey = "ctrl+q"

// Terminal renders a host.Memory on a tcell screen.
type Terminal struct {
	screen tcell.Screen
	host   *host.Memory
	logger *slog.Logger

	quit   string
	status []string

	mu      sync.Mutex
	message string
	shape   func() string
	docSub  host.Disposable
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithQuitKey sets the key that ends Run.
func WithQuitKey(k string) Option {
	return func(t *Terminal) {
		if k != "" {
			t.quit = k
		}
	}
}

// WithStatusItems sets the host status items shown on the bottom line, in
// order.
func WithStatusItems(ids ...string) Option {
	return func(t *Terminal) {
		t.status = ids
	}
}

// WithCursorShape sets a function naming the cursor shape to draw, as in a
// mode's cursorShape.
func WithCursorShape(fn func() string) Option {
	return func(t *Terminal) {
		t.shape = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a terminal over screen. Call Init before Run.
func New(screen tcell.Screen, h *host.Memory, opts ...Option) *Terminal {
	t := &Terminal{
		screen: screen,
		host:   h,
		quit:   DefaultQuitKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "term")
	return t
}

// Init initializes the screen and redraws whenever the document changes.
func (t *Terminal) Init() error {
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnablePaste()
	t.docSub = t.host.OnDocumentChange(func(host.DocumentChange) {
		// redraw from the event loop
		_ = t.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	return nil
}

// Shutdown restores the terminal.
func (t *Terminal) Shutdown() {
	if t.docSub != nil {
		t.docSub.Dispose()
	}
	t.screen.Fini()
}

// Run handles terminal events until the quit key is pressed or ctx ends.
func (t *Terminal) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	t.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				k, ok := KeyString(ev)
				if !ok {
					continue
				}
				if k == t.quit {
					return nil
				}
				t.press(ctx, k)
			case *tcell.EventResize:
				t.screen.Sync()
			}
			t.Draw()
		}
	}
}

func (t *Terminal) press(ctx context.Context, k string) {
	nErr, nInfo := len(t.host.Errors()), len(t.host.Infos())
	if err := t.host.Press(ctx, k); err != nil {
		t.logger.Debug("key press failed", "key", k, "error", err)
		t.setMessage(err.Error())
		return
	}
	if errs := t.host.Errors(); len(errs) > nErr {
		t.setMessage(errs[len(errs)-1])
	} else if infos := t.host.Infos(); len(infos) > nInfo {
		t.setMessage(infos[len(infos)-1])
	}
}

func (t *Terminal) setMessage(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// multi-line messages keep their first line
	msg, _, _ = strings.Cut(msg, "\n")
	t.message = msg
}

// Message returns the message shown above the status line.
func (t *Terminal) Message() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message
}

// Draw renders the editor text, the message line and the status line.
func (t *Terminal) Draw() {
	t.screen.Clear()
	w, h := t.screen.Size()
	ed := t.host.Editor()
	text := ed.Text()
	sels := ed.Selections()

	selected := tcell.StyleDefault.Reverse(true)
	x, y := 0, 0
	cursorX, cursorY := -1, -1
	for off, r := range text {
		if len(sels) > 0 && off == sels[0].Active {
			cursorX, cursorY = x, y
		}
		if r == '\n' {
			x, y = 0, y+1
			continue
		}
		if y < h-2 && x < w {
			style := tcell.StyleDefault
			if inSelection(sels, off) {
				style = selected
			}
			t.screen.SetContent(x, y, r, nil, style)
		}
		x++
	}
	if len(sels) > 0 && sels[0].Active >= len(text) {
		cursorX, cursorY = x, y
	}

	if h >= 2 {
		t.drawLine(h-2, t.Message(), tcell.StyleDefault.Foreground(tcell.ColorYellow))
	}
	if h >= 1 {
		t.drawLine(h-1, t.statusLine(), tcell.StyleDefault.Reverse(true))
	}

	if cursorY >= 0 && cursorY < h-2 && cursorX < w {
		t.screen.SetCursorStyle(t.cursorStyle())
		t.screen.ShowCursor(cursorX, cursorY)
	} else {
		t.screen.HideCursor()
	}
	t.screen.Show()
}

// inSelection reports whether the rune at off is inside a non-empty
// selection, or under a secondary cursor.
func inSelection(sels []host.Selection, off int) bool {
	for i, s := range sels {
		if s.Empty() {
			if i > 0 && s.Active == off {
				return true
			}
			continue
		}
		if off >= s.Start() && off < s.End() {
			return true
		}
	}
	return false
}

func (t *Terminal) statusLine() string {
	parts := make([]string, 0, len(t.status))
	for _, id := range t.status {
		if s := t.host.Status(id); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}

func (t *Terminal) drawLine(y int, s string, style tcell.Style) {
	w, _ := t.screen.Size()
	x := 0
	for _, r := range s {
		if x >= w {
			break
		}
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
	for ; x < w; x++ {
		t.screen.SetContent(x, y, ' ', nil, style)
	}
}

func (t *Terminal) cursorStyle() tcell.CursorStyle {
	if t.shape == nil {
		return tcell.CursorStyleDefault
	}
	switch t.shape() {
	case "Line", "LineThin":
		return tcell.CursorStyleSteadyBar
	case "Block", "BlockOutline":
		return tcell.CursorStyleSteadyBlock
	case "Underline", "UnderlineThin":
		return tcell.CursorStyleSteadyUnderline
	}
	return tcell.CursorStyleDefault
}
