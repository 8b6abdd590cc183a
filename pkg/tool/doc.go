// Package tool implements the tool registry and dispatch core: parameter
// schemas, the Tool interface, a startup-populated registry, and a dispatcher
// that validates, executes and wraps every outcome into a normalized
// success/failure envelope with timing. Batch dispatch runs a sequence of
// requests with per-item failure isolation.
package tool
