package keymap

import "errors"

var (
	// ErrUndefined indicates a {defined = name} reference to a missing define.
	ErrUndefined = errors.New("keymap: undefined command reference")

	// ErrDefineDepth indicates defined commands nested too deeply, usually a cycle.
	ErrDefineDepth = errors.New("keymap: defined commands nest too deeply")

	// ErrRunCommands indicates a runCommands item without an args.commands list.
	ErrRunCommands = errors.New("keymap: runCommands requires args.commands")

	// ErrModeMix indicates positive and negated modes in one item.
	ErrModeMix = errors.New("keymap: cannot mix !mode and mode")

	// ErrUnknownMode indicates an item naming an undeclared mode.
	ErrUnknownMode = errors.New("keymap: unknown mode")
)
