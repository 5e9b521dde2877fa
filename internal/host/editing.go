package host

import (
	"context"

	"github.com/go-viper/mapstructure/v2"
)

type typeArgs struct {
	Text string `mapstructure:"text"`
}

type moveArgs struct {
	To     string `mapstructure:"to"`
	Value  int    `mapstructure:"value"`
	Select bool   `mapstructure:"select"`
	By     string `mapstructure:"by"`
}

// registerEditing installs the few editing commands the simulator supports:
// type, cursorMove, cursorLeft, cursorRight and deleteLeft.
func (m *Memory) registerEditing() {
	cmds := map[string]CommandFunc{
		"type":        m.cmdType,
		"cursorMove":  m.cmdCursorMove,
		"cursorLeft":  m.moveBy(-1),
		"cursorRight": m.moveBy(1),
		"deleteLeft":  m.cmdDeleteLeft,
	}
	for name, fn := range cmds {
		m.commands[name] = fn
	}
}

func (m *Memory) cmdType(_ context.Context, args map[string]any) (any, error) {
	var a typeArgs
	if err := mapstructure.Decode(args, &a); err != nil {
		return nil, err
	}
	m.mu.Lock()
	fn := m.interceptor
	m.mu.Unlock()
	if fn != nil {
		fn(a.Text)
		return nil, nil
	}
	return nil, InsertAtSelections(m.editor, a.Text)
}

func (m *Memory) cmdCursorMove(_ context.Context, args map[string]any) (any, error) {
	a := moveArgs{Value: 1}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &a, WeaklyTypedInput: true})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(args); err != nil {
		return nil, err
	}
	n := max(a.Value, 1)
	if a.To == "left" {
		n = -n
	}
	m.move(n, a.Select)
	return nil, nil
}

func (m *Memory) moveBy(n int) CommandFunc {
	return func(context.Context, map[string]any) (any, error) {
		m.move(n, false)
		return nil, nil
	}
}

func (m *Memory) move(n int, extend bool) {
	sels := m.editor.Selections()
	for i, s := range sels {
		active := s.Active + n
		if extend {
			sels[i].Active = active
		} else {
			sels[i] = Cursor(active)
		}
	}
	m.editor.SetSelections(sels)
}

func (m *Memory) cmdDeleteLeft(context.Context, map[string]any) (any, error) {
	sels := m.editor.Selections()
	edits := make([]Edit, 0, len(sels))
	for _, s := range sels {
		switch {
		case !s.Empty():
			edits = append(edits, Edit{Start: s.Start(), End: s.End()})
		case s.Active > 0:
			edits = append(edits, Edit{Start: s.Active - 1, End: s.Active})
		}
	}
	return nil, m.editor.Replace(edits)
}
