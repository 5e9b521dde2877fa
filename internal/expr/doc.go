// Package expr compiles and evaluates the small, side-effect-free expression
// language used by conditional bindings, computed arguments, computed repeat
// counts and history range selection.
//
// Expressions use JavaScript syntax and are executed by goja:
//
//	count > 0 && mode === 'normal'
//	commandHistory[index].name === 'q'
//	key.startsWith('shift+') ? 'upper' : 'lower'
//
// Every name in the bindings map is visible as a global. Bindings are deep
// copied before evaluation so an expression can never mutate session state,
// and any expression containing a bare assignment operator is rejected at
// compile time.
//
// # Templates
//
// Template strings embed expressions in braces. Each {...} span is evaluated
// and replaced by its string value; a span that fails to evaluate is left as
// literal text and reported on the evaluator's diagnostic batch:
//
//	ev.Template("cursor {count} lines", map[string]any{"count": 3})
//	// "cursor 3 lines"
package expr
