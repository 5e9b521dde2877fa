package keymap

import (
	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/spec"
)

// Binding is a compiled binding as installed into the host.
type Binding struct {
	Key     string `json:"key"`
	Command string `json:"command"`
	When    string `json:"when"`
	Args    DoArgs `json:"args"`
}

// DoArgs are the arguments of the dispatch command.
type DoArgs struct {
	Do             []spec.Command `json:"do"`
	PrefixCode     int            `json:"prefixCode"`
	Name           string         `json:"name,omitempty"`
	Description    string         `json:"description,omitempty"`
	HideInPalette  bool           `json:"hideInPalette,omitempty"`
	HideInDocs     bool           `json:"hideInDocs,omitempty"`
	ResetTransient bool           `json:"resetTransient"`
	Repeat         any            `json:"repeat,omitempty"`
	Mode           string         `json:"mode"`
	// Key is the full key sequence including any prefix, e.g. "g g".
	Key      string `json:"key"`
	Priority int    `json:"priority,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Result is the output of a compilation.
type Result struct {
	Bindings    []Binding
	Codes       *PrefixCodes
	Modes       []spec.Mode
	DefaultMode string
	Definitions map[string]any
	Problems    diag.Problems
}

// Mode returns the named mode definition.
func (r *Result) Mode(name string) (spec.Mode, bool) {
	for _, m := range r.Modes {
		if m.Name == name {
			return m, true
		}
	}
	return spec.Mode{}, false
}
