package key

import "strings"

// AllKeys is the wildcard that expands to every key of the reference layout.
const AllKeys = "<all-keys>"

// referenceLayout is a US keyboard: alphanumerics and standard punctuation.
var referenceLayout = []string{
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"`", "-", "=", "[", "]", "\\", ";", "'", ",", ".", "/",
}

// ReferenceLayout returns a copy of the reference key list.
func ReferenceLayout() []string {
	out := make([]string, len(referenceLayout))
	copy(out, referenceLayout)
	return out
}

// ExpandPattern expands "<all-keys>" or "<modifiers>+<all-keys>" into one
// canonical key per reference-layout key. ok is false when spec is not a
// wildcard pattern.
func ExpandPattern(spec string) (keys []string, ok bool, err error) {
	spec = strings.TrimSpace(spec)
	if !strings.HasSuffix(strings.ToLower(spec), AllKeys) {
		return nil, false, nil
	}
	modPart := strings.TrimSuffix(spec[:len(spec)-len(AllKeys)], "+")

	var mods Modifier
	if modPart != "" {
		for _, p := range strings.Split(modPart, "+") {
			mod := ModifierFromName(strings.TrimSpace(p))
			if mod == ModNone {
				return nil, true, ErrInvalidSpec
			}
			mods = mods.With(mod)
		}
	}

	keys = make([]string, 0, len(referenceLayout))
	for _, name := range referenceLayout {
		keys = append(keys, Key{Mods: mods, Name: name}.String())
	}
	return keys, true, nil
}
