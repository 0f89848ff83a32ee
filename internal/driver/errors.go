package driver

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds shared by every adapter and the pool.
// Callers classify failures with errors.Is.
var (
	// ErrConfig indicates a malformed or unsupported connection URI.
	ErrConfig = errors.New("driver: configuration error")

	// ErrConnection indicates a transport or handshake failure.
	ErrConnection = errors.New("driver: connection error")

	// ErrAuth indicates rejected credentials.
	ErrAuth = errors.New("driver: authentication error")

	// ErrQuery indicates a statement the backend rejected.
	ErrQuery = errors.New("driver: query error")

	// ErrBusy indicates an operation on a connection that already has one in flight.
	ErrBusy = errors.New("driver: connection busy")

	// ErrPoolTimeout indicates no connection became available in time.
	ErrPoolTimeout = errors.New("pool: checkout timed out")

	// ErrPoolClosed indicates a checkout against a pool that is shutting down.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrReleased indicates use of a pooled connection after it was returned.
	ErrReleased = errors.New("pool: connection already released")
)

// QueryError carries the backend's own message and error code.
type QueryError struct {
	Message string
	Code    string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("query error [%s]: %s", e.Code, e.Message)
	}
	return "query error: " + e.Message
}

// Is reports ErrQuery so callers can classify without a type assertion.
func (e *QueryError) Is(target error) bool { return target == ErrQuery }

func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError wraps a backend failure.
func NewQueryError(code string, err error) *QueryError {
	return &QueryError{Message: err.Error(), Code: code, Err: err}
}

// Retryable reports whether retrying the same operation later may succeed.
// Query errors are deterministic and never retryable.
func Retryable(err error) bool {
	if errors.Is(err, ErrQuery) || errors.Is(err, ErrBusy) {
		return false
	}
	return errors.Is(err, ErrPoolTimeout) || errors.Is(err, ErrConnection)
}

// Kind returns the sentinel classifying err, or nil if err is not one of ours.
// Context errors are reported as-is.
func Kind(err error) error {
	for _, k := range []error{ErrBusy, ErrQuery, ErrAuth, ErrConnection, ErrConfig, ErrPoolTimeout, ErrPoolClosed, ErrReleased, context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
