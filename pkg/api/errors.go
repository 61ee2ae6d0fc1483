package api

import "fmt"

// RegistrationError reports a tool name registered by more than one
// capability server. It is the only error in the taxonomy that aborts
// startup: a catalog with ambiguous routing must never serve traffic.
type RegistrationError struct {
	Tool    string
	ServerA string
	ServerB string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("tool %q registered by both %q and %q", e.Tool, e.ServerA, e.ServerB)
}

// PathEscapeError reports a caller-supplied relative path that resolves
// outside a worker's sandbox root. It is returned before any I/O happens.
type PathEscapeError struct {
	Path string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("path %q escapes the server root", e.Path)
}

// ReasoningEngineError wraps a failed or malformed reasoning-engine
// exchange. The agent loop returns it to the caller as the turn's sole
// outcome; the stored history is left exactly as before the turn.
type ReasoningEngineError struct {
	Err error
}

func (e *ReasoningEngineError) Error() string {
	return "reasoning engine: " + e.Err.Error()
}

func (e *ReasoningEngineError) Unwrap() error {
	return e.Err
}
