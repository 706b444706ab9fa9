package client

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a failure worth retrying: rate limits, timeouts,
// temporary platform outages.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure that must not be retried: invalid credentials,
// banned account, policy violation.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal reports whether err is terminal.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// classifyStatus wraps an HTTP-level failure into the transient/fatal
// taxonomy. 429 and 5xx are retryable; 401/403 are terminal; everything
// else is left as a plain error.
func classifyStatus(op string, status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return &TransientError{Op: op, Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &FatalError{Op: op, Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
