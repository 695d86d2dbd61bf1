package client

import (
	"errors"
	"fmt"
)

type resultKind int

const (
	kindResolved resultKind = iota
	kindCancelled
	kindFailed
)

// Result is the outcome of a state fetch: resolved with a state, cancelled
// because navigation went elsewhere, or failed.
type Result struct {
	kind   resultKind
	state  any
	reason string
	err    error
}

// Resolved returns a result carrying state.
func Resolved(state any) Result {
	return Result{kind: kindResolved, state: state}
}

// Cancelled returns a result for an initializer that was cut short on
// purpose, e.g. by a redirect.
func Cancelled(reason string) Result {
	return Result{kind: kindCancelled, reason: reason}
}

// Failed returns a result carrying err.
func Failed(err error) Result {
	return Result{kind: kindFailed, err: err}
}

// IsResolved reports whether the fetch produced a state.
func (r Result) IsResolved() bool { return r.kind == kindResolved }

// IsCancelled reports whether the fetch was cancelled.
func (r Result) IsCancelled() bool { return r.kind == kindCancelled }

// State returns the resolved state, or nil.
func (r Result) State() any { return r.state }

// Reason returns the cancellation reason.
func (r Result) Reason() string { return r.reason }

// Err returns the failure, or nil.
func (r Result) Err() error { return r.err }

// Unwrap converts the result to the usual (value, error) pair. A cancelled
// result yields a *CancelledError.
func (r Result) Unwrap() (any, error) {
	switch r.kind {
	case kindCancelled:
		return nil, &CancelledError{Reason: r.reason}
	case kindFailed:
		return nil, r.err
	default:
		return r.state, nil
	}
}

// String describes the result for logs.
func (r Result) String() string {
	switch r.kind {
	case kindCancelled:
		return "cancelled: " + r.reason
	case kindFailed:
		return "failed: " + r.err.Error()
	default:
		return "resolved"
	}
}

// =============================================================================
// Errors
// =============================================================================

// CancelledError marks an initializer aborted without a failure. Callers
// should stop quietly: the response or navigation is already handled.
type CancelledError struct {
	Reason string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("client: cancelled (%s)", e.Reason)
}

// IsCancelled reports whether err is, or wraps, a *CancelledError.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}

// RemoteError is an error snapshot returned by the server.
type RemoteError struct {
	StatusCode int
	Message    string
	Code       string
	// Data holds the remaining fields of the error body.
	Data map[string]any
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("client: %d %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("client: %d %s", e.StatusCode, e.Message)
}

// Status returns the HTTP status of the error response.
func (e *RemoteError) Status() int { return e.StatusCode }
