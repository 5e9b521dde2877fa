// Package host defines the editor surface the engine drives and an
// in-memory implementation of it.
//
// The engine never edits text itself. It asks the host to run commands by
// name, mirrors public state into the host's condition context, reads the
// active editor's text and selections, and may take over raw typing while
// it captures keys.
//
// Memory is a complete host kept in process. It installs compiled
// bindings, resolves a key press the way an editor's keybinding service
// does (the last installed binding whose when clause holds wins), and
// routes unbound printable keys to the typing interceptor or the editor.
package host
