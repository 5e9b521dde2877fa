package execctx

import "errors"

// Context validation errors.
var (
	// ErrMissingStore indicates the state store is required but not set.
	ErrMissingStore = errors.New("execution context: state store is required")

	// ErrMissingHost indicates the host is required but not set.
	ErrMissingHost = errors.New("execution context: host is required")

	// ErrMissingEvaluator indicates the evaluator is required but not set.
	ErrMissingEvaluator = errors.New("execution context: evaluator is required")

	// ErrMissingCapture indicates a capture command ran without a capture manager.
	ErrMissingCapture = errors.New("execution context: capture manager is required")

	// ErrMissingReplayer indicates a replay command ran without a replayer.
	ErrMissingReplayer = errors.New("execution context: replayer is required")

	// ErrNoBindings indicates a command needed the compiled bindings before
	// any were loaded.
	ErrNoBindings = errors.New("execution context: no bindings are loaded")
)
