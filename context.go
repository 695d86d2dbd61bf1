package nextgo

import (
	"context"
	"log/slog"
	"maps"
	"net/http"

	"github.com/google/uuid"

	"github.com/xinpianchang/nextgo/pkg/negotiate"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

type contextKey struct{}

// Context is the per-request render context created by App.Middleware.
// Downstream handlers reach it with FromRequest.
//
// A Context is not safe for concurrent use; it belongs to the goroutine
// serving its request.
type Context struct {
	w    *responseWriter
	r    *http.Request
	caps *capabilities

	originalURI string
	requestID   string
	state       map[string]any

	rendering bool
	detached  bool
	outcome   Outcome
	err       error
}

func newContext(w http.ResponseWriter, r *http.Request, caps *capabilities) *Context {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c := &Context{
		w:           newResponseWriter(w),
		caps:        caps,
		originalURI: r.RequestURI,
		requestID:   id,
		state:       make(map[string]any),
	}
	if c.originalURI == "" {
		c.originalURI = r.URL.RequestURI()
	}
	c.r = r.WithContext(context.WithValue(r.Context(), contextKey{}, c))
	c.w.Header().Set(RequestIDHeader, id)
	return c
}

// FromRequest returns the render context bound to r, or nil when r did not
// pass through App.Middleware.
func FromRequest(r *http.Request) *Context {
	return FromContext(r.Context())
}

// FromContext returns the render context stored in ctx, or nil.
func FromContext(ctx context.Context) *Context {
	c, _ := ctx.Value(contextKey{}).(*Context)
	return c
}

// Request returns the request as the middleware bound it. During a render
// operation its URL is the substituted one.
func (c *Context) Request() *http.Request { return c.r }

// ResponseWriter returns the status-tracking writer for the response.
func (c *Context) ResponseWriter() http.ResponseWriter { return c.w }

// BuildID returns the build id of the prepared engine.
func (c *Context) BuildID() string { return c.caps.buildID }

// Engine returns the prepared engine.
func (c *Context) Engine() Engine { return c.caps.engine }

// RequestID returns the id of the request.
func (c *Context) RequestID() string { return c.requestID }

// OriginalURI returns the request URI as received, before any substitution.
func (c *Context) OriginalURI() string { return c.originalURI }

// DevMode reports whether the app runs in development mode.
func (c *Context) DevMode() bool { return c.caps.config.DevMode }

// Logger returns the app logger annotated with the request id.
func (c *Context) Logger() *slog.Logger {
	return c.caps.logger.With("request_id", c.requestID)
}

// Negotiator returns the snapshot negotiator in use.
func (c *Context) Negotiator() negotiate.Negotiator { return c.caps.negotiator }

// PublicConfig returns the settings a browser client must mirror.
func (c *Context) PublicConfig() PublicConfig { return c.caps.public }

// PublicConfigFrom returns the public configuration of the app serving r.
func PublicConfigFrom(r *http.Request) (PublicConfig, bool) {
	c := FromRequest(r)
	if c == nil {
		return PublicConfig{}, false
	}
	return c.caps.public, true
}

// =============================================================================
// State
// =============================================================================

// State returns the per-request state shared with the engine. The map is
// live: it is the object snapshot responses encode.
func (c *Context) State() map[string]any { return c.state }

// Set stores a state value.
func (c *Context) Set(key string, value any) { c.state[key] = value }

// Get returns a state value.
func (c *Context) Get(key string) any { return c.state[key] }

// Merge copies data into the state. Later keys win.
func (c *Context) Merge(data map[string]any) {
	maps.Copy(c.state, data)
}

// =============================================================================
// Response status
// =============================================================================

// Status sets an explicit response status. Render keeps an explicit status
// instead of its default 200, and an explicit status marks the response as
// addressed.
func (c *Context) Status(code int) { c.w.setExplicitStatus(code) }

// StatusCode returns the pending or written status.
func (c *Context) StatusCode() int { return c.w.status }

// HeaderSent reports whether the status line was written.
func (c *Context) HeaderSent() bool { return c.w.wroteHeader }

// Writable reports whether the response can still be written: the
// connection was not hijacked and the client is still there.
func (c *Context) Writable() bool {
	return !c.w.hijacked && c.r.Context().Err() == nil
}

// Detach marks the response as handled outside the middleware's view, for
// handlers that answer through some other channel.
func (c *Context) Detach() { c.detached = true }

// Vary adds field to the Vary response header.
func (c *Context) Vary(field string) { negotiate.Vary(c.w.Header(), field) }

// Addressed reports whether something already answered the request. Any
// one of these suffices: the header was written, the response is no longer
// writable, the context was detached, a status was set explicitly, or the
// pending status is no longer 404.
func (c *Context) Addressed() bool {
	return c.w.wroteHeader ||
		!c.Writable() ||
		c.detached ||
		c.w.explicit ||
		c.w.status != http.StatusNotFound
}

// IsSnapshot reports whether the request negotiates a snapshot. In header
// mode it declares the negotiation header in Vary.
func (c *Context) IsSnapshot() bool {
	return c.caps.negotiator.IsSnapshot(c.w.Header(), c.r)
}

// Outcome returns the outcome of the last dispatched operation.
func (c *Context) Outcome() Outcome { return c.outcome }

// Err returns the error recorded by Fail or a Handle handler.
func (c *Context) Err() error { return c.err }

// Fail records err for the middleware to turn into an error response once
// the downstream chain returns. Only the first error is kept.
func Fail(r *http.Request, err error) {
	if c := FromRequest(r); c != nil && err != nil && c.err == nil {
		c.err = err
	}
}
