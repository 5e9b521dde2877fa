package term

import (
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/input/key"
)

var namedKeys = map[tcell.Key]string{
	tcell.KeyEscape:     "escape",
	tcell.KeyEnter:      "enter",
	tcell.KeyTab:        "tab",
	tcell.KeyBacktab:    "shift+tab",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace",
	tcell.KeyDelete:     "delete",
	tcell.KeyInsert:     "insert",
	tcell.KeyHome:       "home",
	tcell.KeyEnd:        "end",
	tcell.KeyPgUp:       "pageup",
	tcell.KeyPgDn:       "pagedown",
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyF1:         "f1",
	tcell.KeyF2:         "f2",
	tcell.KeyF3:         "f3",
	tcell.KeyF4:         "f4",
	tcell.KeyF5:         "f5",
	tcell.KeyF6:         "f6",
	tcell.KeyF7:         "f7",
	tcell.KeyF8:         "f8",
	tcell.KeyF9:         "f9",
	tcell.KeyF10:        "f10",
	tcell.KeyF11:        "f11",
	tcell.KeyF12:        "f12",
}

// unshifted maps the shifted symbols of a US layout to the key that types
// them, so "@" is reported as shift+2 like a keyboard layout would.
var unshifted = map[rune]string{
	'!': "1", '@': "2", '#': "3", '$': "4", '%': "5", '^': "6", '&': "7", '*': "8", '(': "9", ')': "0",
	'~': "`", '_': "-", '+': "=", '{': "[", '}': "]", '|': "\\", ':': ";", '"': "'", '<': ",", '>': ".", '?': "/",
}

// KeyString converts a terminal key event to a canonical key string. It
// reports false for keys with no canonical name.
func KeyString(ev *tcell.EventKey) (string, bool) {
	mods := ev.Modifiers()
	var name string
	switch k := ev.Key(); {
	case k == tcell.KeyRune:
		name = runeKey(ev.Rune(), &mods)
	case namedKeys[k] != "":
		name = namedKeys[k]
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		name = string(rune('a' + int(k-tcell.KeyCtrlA)))
		mods |= tcell.ModCtrl
	case k == tcell.KeyCtrlSpace:
		name = "space"
		mods |= tcell.ModCtrl
	default:
		return "", false
	}
	if name == "" {
		return "", false
	}

	var prefix []string
	if mods&tcell.ModCtrl != 0 {
		prefix = append(prefix, "ctrl")
	}
	if mods&tcell.ModShift != 0 && !strings.HasPrefix(name, "shift+") {
		prefix = append(prefix, "shift")
	}
	if mods&tcell.ModAlt != 0 {
		prefix = append(prefix, "alt")
	}
	if mods&tcell.ModMeta != 0 {
		prefix = append(prefix, "meta")
	}
	if len(prefix) > 0 {
		name = strings.Join(prefix, "+") + "+" + name
	}
	canon, err := key.Canonical(name)
	if err != nil {
		return "", false
	}
	return canon, true
}

func runeKey(r rune, mods *tcell.ModMask) string {
	switch {
	case r == ' ':
		return "space"
	case unicode.IsUpper(r):
		*mods |= tcell.ModShift
		return string(unicode.ToLower(r))
	}
	if base, ok := unshifted[r]; ok {
		*mods |= tcell.ModShift
		return base
	}
	if !unicode.IsPrint(r) {
		return ""
	}
	return string(r)
}
