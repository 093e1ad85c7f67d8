package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a required backend capability is
	// missing or misconfigured. It is fatal to provider construction.
	ErrConfiguration = errors.New("provider: configuration error")

	// ErrCredential is returned when credential or namespace resolution fails
	// before a client is constructed.
	ErrCredential = errors.New("provider: credential error")

	// ErrBackendInvocation is returned when the backend rejects or fails a
	// generation request, or fails to build a client for reasons other than
	// configuration or credentials.
	ErrBackendInvocation = errors.New("provider: backend invocation error")
)

// GenerationError carries the identity and modality of a failed operation.
// It unwraps to the underlying error, which in turn wraps one of the
// sentinels above.
type GenerationError struct {
	Op       string
	Source   string
	Model    string
	Modality Modality
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s %s/%s (%s): %v", e.Op, e.Source, e.Model, e.Modality, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// classify makes sure err matches one of the taxonomy sentinels. Errors that
// already carry a sentinel are returned unchanged; anything else is treated
// as a backend failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrCredential) || errors.Is(err, ErrBackendInvocation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendInvocation, err)
}

// Outcome names the result of a generation for metrics and logs: "ok",
// "canceled", "configuration", "credential" or "backend".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrCredential):
		return "credential"
	default:
		return "backend"
	}
}
