package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/expr"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/input/key"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
)

// Call records one ExecuteCommand invocation.
type Call struct {
	Name string
	Args map[string]any
}

type installed struct {
	key     string
	command string
	when    string
	args    map[string]any
}

// Memory is an in-process Host.
type Memory struct {
	mu          sync.Mutex
	commands    map[string]CommandFunc
	context     map[string]any
	bindings    []installed
	calls       []Call
	errors      []string
	infos       []string
	status      map[string]string
	interceptor func(string)
	intercepted chan struct{}
	editor      *MemoryEditor
	docSubs     map[int]func(DocumentChange)
	nextSub     int
	inflight    sync.WaitGroup

	eval   *expr.Evaluator
	logger *slog.Logger
}

// MemoryOption configures a Memory host.
type MemoryOption func(*Memory)

// WithEditor sets the active editor.
func WithEditor(e *MemoryEditor) MemoryOption {
	return func(m *Memory) {
		m.editor = e
	}
}

// WithHostLogger sets the logger.
func WithHostLogger(l *slog.Logger) MemoryOption {
	return func(m *Memory) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithWhenEvaluator sets the evaluator for when clauses.
func WithWhenEvaluator(e *expr.Evaluator) MemoryOption {
	return func(m *Memory) {
		m.eval = e
	}
}

// NewMemory creates a host with an empty editor focused and the basic
// editing commands registered.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		commands:    make(map[string]CommandFunc),
		context:     map[string]any{"editorTextFocus": true},
		status:      make(map[string]string),
		docSubs:     make(map[int]func(DocumentChange)),
		intercepted: make(chan struct{}, 1),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.eval == nil {
		m.eval = expr.New(expr.WithLogger(m.logger))
	}
	if m.editor == nil {
		m.editor = NewMemoryEditor("untitled", "")
	}
	m.editor.notify = m.emit
	m.registerEditing()
	return m
}

// ExecuteCommand runs a registered command and records the call.
func (m *Memory) ExecuteCommand(ctx context.Context, name string, args map[string]any) (any, error) {
	m.mu.Lock()
	fn, ok := m.commands[name]
	m.calls = append(m.calls, Call{Name: name, Args: maps.Clone(args)})
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return fn(ctx, args)
}

// RegisterCommand registers fn under name.
func (m *Memory) RegisterCommand(name string, fn CommandFunc) (Disposable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commands[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandExists, name)
	}
	m.commands[name] = fn
	var once sync.Once
	return DisposeFunc(func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.commands, name)
			m.mu.Unlock()
		})
	}), nil
}

// SetContext sets a condition context key.
func (m *Memory) SetContext(k string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.context[k] = value
}

// Context returns a condition context key.
func (m *Memory) Context(k string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.context[k]
	return v, ok
}

// ShowError records an error message.
func (m *Memory) ShowError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Debug("host error message", "message", msg)
	m.errors = append(m.errors, msg)
}

// ShowInfo records an information message.
func (m *Memory) ShowInfo(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

// SetStatus sets a status item.
func (m *Memory) SetStatus(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if text == "" {
		delete(m.status, id)
		return
	}
	m.status[id] = text
}

// Status returns a status item's text.
func (m *Memory) Status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[id]
}

// Errors returns the error messages shown so far.
func (m *Memory) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

// Infos returns the information messages shown so far.
func (m *Memory) Infos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.infos...)
}

// Calls returns every command executed so far.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// ResetCalls forgets recorded calls.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// InterceptTyping routes typed text to fn. Only one interceptor may be
// installed at a time.
func (m *Memory) InterceptTyping(fn func(text string)) (Disposable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interceptor != nil {
		return nil, ErrInterceptorTaken
	}
	m.interceptor = fn
	select {
	case m.intercepted <- struct{}{}:
	default:
	}
	var once sync.Once
	return DisposeFunc(func() {
		once.Do(func() {
			m.mu.Lock()
			m.interceptor = nil
			m.mu.Unlock()
		})
	}), nil
}

// Intercepting reports whether typing is intercepted.
func (m *Memory) Intercepting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interceptor != nil
}

// ActiveEditor returns the focused editor.
func (m *Memory) ActiveEditor() Editor {
	return m.editor
}

// Editor returns the focused editor with its concrete type.
func (m *Memory) Editor() *MemoryEditor {
	return m.editor
}

// OnDocumentChange registers fn for every document change.
func (m *Memory) OnDocumentChange(fn func(DocumentChange)) Disposable {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.docSubs[id] = fn
	return DisposeFunc(func() {
		m.mu.Lock()
		delete(m.docSubs, id)
		m.mu.Unlock()
	})
}

func (m *Memory) emit(ch DocumentChange) {
	m.mu.Lock()
	subs := make([]func(DocumentChange), 0, len(m.docSubs))
	for id := 1; id <= m.nextSub; id++ {
		if fn, ok := m.docSubs[id]; ok {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(ch)
	}
}

// Install replaces the installed bindings. Arguments pass through JSON as
// they would through a keybinding file.
func (m *Memory) Install(bindings []keymap.Binding) error {
	out := make([]installed, 0, len(bindings))
	for _, b := range bindings {
		raw, err := json.Marshal(b.Args)
		if err != nil {
			return fmt.Errorf("install %s: %w", b.Key, err)
		}
		var args map[string]any
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("install %s: %w", b.Key, err)
		}
		out = append(out, installed{key: b.Key, command: b.Command, when: b.When, args: args})
	}
	m.mu.Lock()
	m.bindings = out
	m.mu.Unlock()
	return nil
}

// Press simulates a key press. A matching binding's command runs; Press
// returns when it finishes or when it takes over typing (as a key capture
// does), whichever comes first. Unbound printable keys are typed.
func (m *Memory) Press(ctx context.Context, k string) error {
	canon, err := key.Canonical(k)
	if err != nil {
		return err
	}
	command, args, ok := m.match(canon)
	if !ok {
		if text := keyText(canon); text != "" {
			return m.Type(ctx, text)
		}
		return nil
	}

	select {
	case <-m.intercepted:
	default:
	}
	done := make(chan error, 1)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		_, err := m.ExecuteCommand(ctx, command, args)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-m.intercepted:
		go func() {
			if err := <-done; err != nil {
				m.ShowError(err.Error())
			}
		}()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PressAll presses each space-separated key in turn.
func (m *Memory) PressAll(ctx context.Context, keys string) error {
	for _, k := range strings.Fields(keys) {
		if err := m.Press(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until every command started by Press has finished.
func (m *Memory) Wait() {
	m.inflight.Wait()
}

// Type delivers text to the typing interceptor, or inserts it in the editor.
func (m *Memory) Type(ctx context.Context, text string) error {
	_, err := m.ExecuteCommand(ctx, "type", map[string]any{"text": text})
	return err
}

func (m *Memory) match(k string) (string, map[string]any, bool) {
	m.mu.Lock()
	bindings := m.bindings
	scope := whenScope(m.context)
	m.mu.Unlock()

	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		if b.key != k {
			continue
		}
		if b.when != "" {
			declareUnknown(scope, b.when)
			v, err := m.eval.Eval(b.when, scope)
			if err != nil || !expr.Truthy(v) {
				continue
			}
		}
		return b.command, b.args, true
	}
	return "", nil, false
}

var shifted = map[string]string{
	"1": "!", "2": "@", "3": "#", "4": "$", "5": "%", "6": "^", "7": "&", "8": "*", "9": "(", "0": ")",
	"`": "~", "-": "_", "=": "+", "[": "{", "]": "}", "\\": "|", ";": ":", "'": "\"", ",": "<", ".": ">", "/": "?",
}

// keyText returns the text an unbound key types, or "".
func keyText(canon string) string {
	switch canon {
	case "space":
		return " "
	case "enter":
		return "\n"
	case "tab":
		return "\t"
	}
	name, isShift := strings.CutPrefix(canon, "shift+")
	if len(name) != 1 {
		return ""
	}
	if !isShift {
		return name
	}
	if name[0] >= 'a' && name[0] <= 'z' {
		return strings.ToUpper(name)
	}
	return shifted[name]
}
