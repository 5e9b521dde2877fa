package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Key is a single canonical chord.
type Key struct {
	Mods Modifier
	// Name is the lowercase base key: a single character or a named key.
	Name string
}

// String returns the canonical form, e.g. "ctrl+shift+a".
func (k Key) String() string {
	if k.Mods == ModNone {
		return k.Name
	}
	return k.Mods.String() + "+" + k.Name
}

// namedKeys maps accepted key names and aliases to canonical names.
var namedKeys = map[string]string{
	"escape": "escape", "esc": "escape",
	"enter": "enter", "return": "enter", "cr": "enter",
	"tab":       "tab",
	"backspace": "backspace", "bs": "backspace",
	"delete": "delete", "del": "delete",
	"insert": "insert", "ins": "insert",
	"space": "space", "spc": "space",
	"up": "up", "down": "down", "left": "left", "right": "right",
	"home": "home", "end": "end",
	"pageup": "pageup", "pgup": "pageup",
	"pagedown": "pagedown", "pgdn": "pagedown",
	"lt": "<", "gt": ">", "bar": "|", "bslash": "\\",
}

func init() {
	for i := 1; i <= 19; i++ {
		name := fmt.Sprintf("f%d", i)
		namedKeys[name] = name
	}
}

// Parse parses a key specification into a canonical Key.
//
// Supported formats:
//   - Single character: "a", "A" (implies shift), "1", "@"
//   - Named keys: "Enter", "Escape", "Tab", "Space", "F5"
//   - With modifiers: "Ctrl+S", "alt+shift+p"
//   - Vim-style: "<C-s>", "<A-f>", "<C-S-p>", "<CR>", "<Esc>"
func Parse(spec string) (Key, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Key{}, ErrEmptySpec
	}

	if len(spec) > 2 && strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") {
		return parseVimStyle(spec[1 : len(spec)-1])
	}

	// "+" alone, or a trailing "++" (modifier plus the "+" key)
	if spec == "+" {
		return Key{Name: "+"}, nil
	}
	if strings.Contains(spec, "+") {
		return parseModifierStyle(spec)
	}
	return parseKeyWithModifiers(spec, ModNone)
}

// parseVimStyle parses Vim-style notation like "C-s", "A-F4", "CR", "Esc".
func parseVimStyle(inner string) (Key, error) {
	parts := strings.Split(inner, "-")
	if len(parts) == 1 {
		return parseKeyWithModifiers(parts[0], ModNone)
	}
	keyPart := parts[len(parts)-1]
	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		mod := ModifierFromName(strings.TrimSpace(p))
		if mod == ModNone {
			return Key{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods = mods.With(mod)
	}
	return parseKeyWithModifiers(keyPart, mods)
}

// parseModifierStyle parses "Ctrl+S" style notation.
func parseModifierStyle(spec string) (Key, error) {
	var keyPart string
	var modParts []string
	if strings.HasSuffix(spec, "++") {
		keyPart = "+"
		modParts = strings.Split(strings.TrimSuffix(spec, "++"), "+")
	} else {
		parts := strings.Split(spec, "+")
		keyPart = parts[len(parts)-1]
		modParts = parts[:len(parts)-1]
	}

	var mods Modifier
	for _, p := range modParts {
		p = strings.TrimSpace(p)
		mod := ModifierFromName(p)
		if mod == ModNone {
			return Key{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods = mods.With(mod)
	}
	return parseKeyWithModifiers(keyPart, mods)
}

// parseKeyWithModifiers parses a key part with already-known modifiers.
func parseKeyWithModifiers(keyPart string, mods Modifier) (Key, error) {
	keyPart = strings.TrimSpace(keyPart)
	if keyPart == "" {
		return Key{}, ErrInvalidSpec
	}

	if name, ok := namedKeys[strings.ToLower(keyPart)]; ok {
		return Key{Mods: mods, Name: name}, nil
	}

	if utf8.RuneCountInString(keyPart) == 1 {
		r, _ := utf8.DecodeRuneInString(keyPart)
		if unicode.IsUpper(r) {
			mods = mods.With(ModShift)
			r = unicode.ToLower(r)
		}
		return Key{Mods: mods, Name: string(r)}, nil
	}

	return Key{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, keyPart)
}

// Canonical parses and re-formats a single key.
func Canonical(spec string) (string, error) {
	k, err := Parse(spec)
	if err != nil {
		return "", err
	}
	return k.String(), nil
}
