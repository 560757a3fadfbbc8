// Package errs classifies errors so retry policy can tell transient failures
// (retry with backoff) from permanent ones (fail the sample, keep the batch).
package errs

import (
	"errors"
	"fmt"
)

// Category determines how an error is handled by retry logic.
type Category int

const (
	// Recoverable errors are retried with exponential backoff: 5xx, 408/429,
	// network timeouts, connection failures.
	Recoverable Category = iota

	// Irrecoverable errors fail immediately: 400/401/403/404, unknown record
	// types, malformed samples.
	Irrecoverable
)

func (c Category) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ClassifiedError wraps an error with categorization metadata.
type ClassifiedError struct {
	Category   Category
	StatusCode int    // HTTP status (0 for non-HTTP errors)
	Body       string // response body for debugging
	Underlying error
}

func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] HTTP %d: %v", e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("[%s] %v", e.Category, e.Underlying)
}

func (e *ClassifiedError) Unwrap() error { return e.Underlying }

// IsIrrecoverable reports whether err (anywhere in its chain) is classified
// as not worth retrying.
func IsIrrecoverable(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category == Irrecoverable
	}
	return false
}

// Permanent marks err irrecoverable without HTTP context.
func Permanent(err error) *ClassifiedError {
	return &ClassifiedError{Category: Irrecoverable, Underlying: err}
}
