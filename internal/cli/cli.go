// Package cli defines the process-level error contract between commands and
// main: commands return an ExitError and main turns it into an exit code.
package cli

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}
