package keymap

import "fmt"

// PrefixCodes maps prefix strings to small integers. Code 0 is always the
// empty prefix. Codes are assigned in discovery order and never removed.
type PrefixCodes struct {
	codes map[string]int
	names []string
}

// NewPrefixCodes returns a table containing only the empty prefix.
func NewPrefixCodes() *PrefixCodes {
	return &PrefixCodes{
		codes: map[string]int{"": 0},
		names: []string{""},
	}
}

// CodeFor returns the code of prefix, assigning the next one if needed.
func (p *PrefixCodes) CodeFor(prefix string) int {
	if code, ok := p.codes[prefix]; ok {
		return code
	}
	code := len(p.names)
	p.codes[prefix] = code
	p.names = append(p.names, prefix)
	return code
}

// Lookup returns the code of a known prefix.
func (p *PrefixCodes) Lookup(prefix string) (int, bool) {
	code, ok := p.codes[prefix]
	return code, ok
}

// NameFor returns the prefix string of a code.
func (p *PrefixCodes) NameFor(code int) (string, error) {
	if code < 0 || code >= len(p.names) {
		return "", fmt.Errorf("keymap: unknown prefix code %d", code)
	}
	return p.names[code], nil
}

// Len returns the number of assigned codes.
func (p *PrefixCodes) Len() int {
	return len(p.names)
}

// Names returns prefixes ordered by code.
func (p *PrefixCodes) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}
