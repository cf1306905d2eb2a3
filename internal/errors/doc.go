// Package errors provides the coded, structured errors raised by the engine.
//
// Every error the engine raises on purpose carries a stable code (e.g. "L004")
// that maps to a short message, a category and a longer explanation. Codes
// make log lines greppable and let callers match failures with errors.Is
// without comparing strings:
//
//	if errors.Is(err, errors.New(errors.CodeHookMismatch)) { ... }
//
// # Categories
//
//   - runtime: misuse detected while rendering or delivering events
//   - protocol: malformed or oversized messages at the session boundary
//   - config: invalid configuration files or values
//
// Format renders an error for terminals (the CLI uses it); FormatCompact and
// FormatJSON are meant for log lines and machine consumers.
package errors
