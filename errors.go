package nextgo

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

// ErrEngineNotReady wraps the engine's preparation failure. Every request
// waiting on (or arriving after) a failed preparation gets it.
var ErrEngineNotReady = errors.New("nextgo: engine not ready")

// ErrNestedRender is returned when a render operation is started on a
// Context while another one is still running on it.
var ErrNestedRender = errors.New("nextgo: nested render on the same context")

// ErrNoContext is returned when a request did not pass through
// App.Middleware.
var ErrNoContext = errors.New("nextgo: request has no render context")

// =============================================================================
// HTTP Errors
// =============================================================================

// HTTPError is an error carrying a response status.
// Return it from a Handle handler (or panic with it) to answer with an error
// page or error snapshot of that status:
//
//	if post == nil {
//	    return nextgo.NotFound()
//	}
type HTTPError struct {
	Code    int    // HTTP status code (e.g., 400, 403, 404, 418)
	Message string // Message shown to clients when exposed
	ErrCode string // Application error code, exposed with the message
	Expose  bool   // Show Message and ErrCode to clients outside DevMode
	Data    map[string]any
	Err     error // Optional underlying error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for this error.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// Exposed reports whether the message may be shown outside DevMode.
func (e *HTTPError) Exposed() bool {
	return e.Expose
}

// ErrorCode returns the application error code.
func (e *HTTPError) ErrorCode() string {
	return e.ErrCode
}

// WithData attaches extra fields to the error snapshot body.
func (e *HTTPError) WithData(data map[string]any) *HTTPError {
	e.Data = data
	return e
}

// NewHTTPError creates an error with the given status. Client errors (4xx)
// are exposed by default; server errors are not.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message, Expose: code < 500}
}

// Errorf creates an error with the given status and a formatted message.
func Errorf(code int, format string, args ...any) *HTTPError {
	return NewHTTPError(code, fmt.Sprintf(format, args...))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(err error) *HTTPError {
	msg := "bad request"
	if err != nil {
		msg = err.Error()
	}
	return &HTTPError{Code: http.StatusBadRequest, Message: msg, Expose: true, Err: err}
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message ...string) *HTTPError {
	msg := "forbidden"
	if len(message) > 0 {
		msg = message[0]
	}
	return NewHTTPError(http.StatusForbidden, msg)
}

// NotFound creates a 404 Not Found error.
func NotFound(message ...string) *HTTPError {
	msg := "not found"
	if len(message) > 0 {
		msg = message[0]
	}
	return NewHTTPError(http.StatusNotFound, msg)
}

// InternalError creates a 500 Internal Server Error wrapping err.
// The underlying message is never exposed outside DevMode.
func InternalError(err error) *HTTPError {
	return &HTTPError{Code: http.StatusInternalServerError, Message: "internal server error", Err: err}
}

// =============================================================================
// Error inspection
// =============================================================================

// Exposable is implemented by errors that decide for themselves whether
// their message may reach clients.
type Exposable interface {
	Exposed() bool
}

type statusCoder interface {
	StatusCode() int
}

type errorCoder interface {
	ErrorCode() string
}

type dataCarrier interface {
	ErrorData() map[string]any
}

// ErrorData returns the extra snapshot fields attached to the error.
func (e *HTTPError) ErrorData() map[string]any {
	return e.Data
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 100 && code <= 999 {
			return code
		}
	}
	return http.StatusInternalServerError
}

func isExposed(err error) bool {
	var ex Exposable
	return errors.As(err, &ex) && ex.Exposed()
}

func errorCodeOf(err error) string {
	var ec errorCoder
	if errors.As(err, &ec) {
		return ec.ErrorCode()
	}
	return ""
}

func errorDataOf(err error) map[string]any {
	var dc dataCarrier
	if errors.As(err, &dc) {
		return dc.ErrorData()
	}
	return nil
}

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

type stackTracer interface {
	StackTrace() string
}

// StackTrace returns the goroutine stack captured at recovery.
func (e *PanicError) StackTrace() string {
	return string(e.Stack)
}

func stackOf(err error) string {
	var st stackTracer
	if errors.As(err, &st) {
		return st.StackTrace()
	}
	return fmt.Sprintf("%+v", err)
}
