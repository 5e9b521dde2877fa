// Package capture provides the commands that read keys directly:
// captureKeys, replaceChar and insertChar.
//
// Each reports what it read as replacement arguments, so history and
// repeats run with the captured text instead of reading keys again.
package capture
