package dispatcher

import (
	"strconv"
	"strings"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// Status item ids, relative to the namespace.
const (
	StatusMode = "mode"
	StatusKeys = "keys"
)

// showStatus shows the mode and the pending count and prefix.
func (d *Dispatcher) showStatus(s *state.State) {
	d.ec.Host.SetStatus(d.Command(StatusMode), state.Value(s, state.ModeKey, ""))

	var keys []string
	if n := state.Value(s, state.CountKey, 0); n > 0 {
		keys = append(keys, strconv.Itoa(n))
	}
	if p := state.Value(s, state.PrefixKey, ""); p != "" {
		keys = append(keys, p)
	}
	d.ec.Host.SetStatus(d.Command(StatusKeys), strings.Join(keys, " "))
}
