// internal/models/failure.go
package models

import "fmt"

// FailureKind names why no search path produced a usable result.
type FailureKind string

const (
	FailureInsufficientParameters FailureKind = "INSUFFICIENT_PARAMETERS"
	FailureNoResults              FailureKind = "NO_RESULTS"
	FailureBackendUnavailable     FailureKind = "BACKEND_UNAVAILABLE"
)

// SearchFailure is the terminal, recoverable failure of the orchestrator.
type SearchFailure struct {
	Kind   FailureKind
	Intent Intent
	Cause  error
}

func NewSearchFailure(kind FailureKind, intent Intent, cause error) *SearchFailure {
	return &SearchFailure{Kind: kind, Intent: intent, Cause: cause}
}

func (f *SearchFailure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("search failure %s for %s: %v", f.Kind, f.Intent, f.Cause)
	}
	return fmt.Sprintf("search failure %s for %s", f.Kind, f.Intent)
}

func (f *SearchFailure) Unwrap() error {
	return f.Cause
}
