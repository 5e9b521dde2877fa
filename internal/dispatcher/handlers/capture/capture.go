package capture

import (
	"context"
	"errors"
	"unicode/utf8"

	keycapture "github.com/haberdashPI/vscode-master-key-sub000/internal/capture"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/execctx"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Action names for capture operations.
const (
	ActionCaptureKeys = "captureKeys"
	ActionReplaceChar = "replaceChar"
	ActionInsertChar  = "insertChar"
)

type captureArgs struct {
	Text string `mapstructure:"text"`
	// AcceptAfter stops after that many characters; zero reads until enter.
	AcceptAfter int `mapstructure:"acceptAfter"`
}

type charArgs struct {
	Char string `mapstructure:"char"`
}

// CaptureHandler handles the key-reading commands.
type CaptureHandler struct{}

// NewCaptureHandler creates a capture handler.
func NewCaptureHandler() *CaptureHandler {
	return &CaptureHandler{}
}

// Actions returns the handled action names.
func (h *CaptureHandler) Actions() []string {
	return []string{ActionCaptureKeys, ActionReplaceChar, ActionInsertChar}
}

// HandleAction processes a capture action.
func (h *CaptureHandler) HandleAction(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext) handler.Result {
	switch action.Name {
	case ActionCaptureKeys:
		return h.captureKeys(ctx, action.Args, ec)
	case ActionReplaceChar:
		return h.editChar(ctx, action, ec, replaceChar)
	case ActionInsertChar:
		return h.editChar(ctx, action, ec, host.InsertAtSelections)
	}
	return handler.Errorf("unknown capture action: %s", action.Name)
}

func (h *CaptureHandler) captureKeys(ctx context.Context, raw map[string]any, ec *execctx.ExecutionContext) handler.Result {
	var args captureArgs
	if err := handler.DecodeArgs(ActionCaptureKeys, raw, &args); err != nil {
		return handler.Error(err)
	}
	if args.AcceptAfter < 0 {
		return handler.InvalidArgs(ActionCaptureKeys, "acceptAfter must not be negative")
	}
	if args.Text == "" {
		text, res, ok := Read(ctx, ec, Accept(args.AcceptAfter, nil))
		if !ok {
			return res
		}
		args.Text = text
	}
	_, err := ec.Store.Do(ctx, func(_ context.Context, s *state.State) (*state.State, error) {
		return s.Set(state.CapturedKey, args.Text), nil
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.SuccessWithArgs(map[string]any{"text": args.Text, "acceptAfter": args.AcceptAfter})
}

func (h *CaptureHandler) editChar(ctx context.Context, action handler.Action, ec *execctx.ExecutionContext, apply func(host.Editor, string) error) handler.Result {
	var args charArgs
	if err := handler.DecodeArgs(action.Name, action.Args, &args); err != nil {
		return handler.Error(err)
	}
	if args.Char == "" {
		text, res, ok := Read(ctx, ec, Accept(1, nil))
		if !ok {
			return res
		}
		args.Char = text
	}
	ed := ec.Host.ActiveEditor()
	if ed == nil {
		return handler.NoOpWithMessage("No active editor")
	}
	if err := apply(ed, args.Char); err != nil {
		return handler.Error(err)
	}
	return handler.SuccessWithArgs(map[string]any{"char": args.Char})
}

// replaceChar replaces the character under each cursor, leaving the
// cursors in place. At a line end the character is inserted.
func replaceChar(ed host.Editor, char string) error {
	text := ed.Text()
	sels := ed.Selections()
	seen := make(map[int]bool, len(sels))
	edits := make([]host.Edit, 0, len(sels))
	for _, sel := range sels {
		at := sel.Active
		if seen[at] {
			continue
		}
		seen[at] = true
		end := at
		if at < len(text) && text[at] != '\n' {
			_, size := utf8.DecodeRuneInString(text[at:])
			end = at + size
		}
		edits = append(edits, host.Edit{Start: at, End: end, Text: char})
	}
	if err := ed.Replace(edits); err != nil {
		return err
	}
	ed.SetSelections(sels)
	return nil
}

// Accept returns a capture update that stops after n characters, or at
// enter when n is zero. onChange, if set, sees every intermediate result.
func Accept(n int, onChange func(string)) keycapture.Update {
	return func(acc, c string) (string, bool) {
		if n == 0 && (c == "\n" || c == "\r") {
			return acc, true
		}
		acc += c
		if onChange != nil {
			onChange(acc)
		}
		return acc, n > 0 && utf8.RuneCountInString(acc) >= n
	}
}

// Read captures keys with update. When ok is false res is the result the
// command should return: cancelled, a quiet no-op when typing cannot be
// intercepted, or an error.
func Read(ctx context.Context, ec *execctx.ExecutionContext, update keycapture.Update) (text string, res handler.Result, ok bool) {
	if ec.Capture == nil {
		return "", handler.Error(execctx.ErrMissingCapture), false
	}
	out, err := ec.Capture.Capture(ctx, update)
	switch {
	case errors.Is(err, keycapture.ErrUnavailable):
		return "", handler.NoOp(), false
	case err != nil:
		return "", handler.Error(err), false
	case out.Cancelled:
		return out.Text, handler.Cancelled(), false
	}
	return out.Text, handler.Result{}, true
}
