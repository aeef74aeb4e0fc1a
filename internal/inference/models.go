package inference

import "fmt"

// FailureKind classifies why a completion call did not produce text
type FailureKind string

const (
	// FailureTimeout means the configured per-call deadline elapsed
	FailureTimeout FailureKind = "timeout"
	// FailureUnreachable means the transport could not reach the endpoint
	FailureUnreachable FailureKind = "unreachable"
	// FailureUnauthorized means the endpoint rejected the credentials
	FailureUnauthorized FailureKind = "unauthorized"
	// FailureServer means the endpoint answered with a non-success status
	FailureServer FailureKind = "server"
)

// Failure is the typed error returned by Complete. Callers are expected to
// absorb it and switch to fallback analysis; nothing about it is fatal.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("inference %s failure (status %d): %v", f.Kind, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("inference %s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Request carries the per-call completion parameters. Zero values fall back
// to the client's configured defaults.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}
