package nextgo

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/xinpianchang/nextgo/pkg/negotiate"
)

// =============================================================================
// Handler Wrappers
// =============================================================================

// HandlerFunc is an application handler with access to the render context.
// A returned error is turned into an error response by the middleware, with
// the status the error carries.
type HandlerFunc func(c *Context) error

// Handle adapts fn to an http.Handler for routes behind App.Middleware:
//
//	r.Method(http.MethodGet, "/posts/{id}", nextgo.Handle(func(c *nextgo.Context) error {
//	    post, err := store.Post(c.Request().Context(), chi.URLParam(c.Request(), "id"))
//	    if err != nil {
//	        return err
//	    }
//	    return c.Render("/post", map[string]any{"post": post}, nil)
//	}))
//
// Requests that did not pass through the middleware get a 500.
func Handle(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := FromRequest(r)
		if c == nil {
			http.Error(w, ErrNoContext.Error(), http.StatusInternalServerError)
			return
		}
		if err := fn(c); err != nil {
			Fail(r, err)
		}
	})
}

// HandleFunc adapts a net/http style handler that returns an error.
func HandleFunc(fn func(w http.ResponseWriter, r *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			if FromRequest(r) == nil {
				http.Error(w, http.StatusText(StatusOf(err)), StatusOf(err))
				return
			}
			Fail(r, err)
		}
	})
}

// =============================================================================
// Request bodies
// =============================================================================

// DefaultMaxBodyBytes bounds request bodies read by DecodeBody.
const DefaultMaxBodyBytes = 1 << 20 // 1 MiB

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	return contentType == "application/json" || strings.HasSuffix(contentType, "+json")
}

// DecodeBody decodes the request body into v. JSON and MessagePack bodies
// are accepted; a missing Content-Type is read as JSON. Failures are
// *HTTPError values with a 4xx status, ready to be returned from a handler.
func (c *Context) DecodeBody(v any) error {
	r := c.r
	if r.Body == nil || r.Body == http.NoBody {
		return &HTTPError{Code: http.StatusBadRequest, Message: "missing request body", Expose: true}
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.w, r.Body, DefaultMaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &HTTPError{Code: http.StatusRequestEntityTooLarge, Message: "request body too large", Expose: true, Err: err}
		}
		return &HTTPError{Code: http.StatusBadRequest, Message: "unreadable request body", Expose: true, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &HTTPError{Code: http.StatusBadRequest, Message: "missing request body", Expose: true}
	}

	contentType := r.Header.Get("Content-Type")
	codec := negotiate.JSON
	if contentType != "" && !isJSONContentType(contentType) {
		var ok bool
		codec, ok = negotiate.CodecForContentType(contentType)
		if !ok {
			return &HTTPError{Code: http.StatusUnsupportedMediaType, Message: "unsupported content type", Expose: true}
		}
	}
	if err := codec.Unmarshal(raw, v); err != nil {
		return &HTTPError{Code: http.StatusBadRequest, Message: "invalid request body", Expose: true, Err: err}
	}
	return nil
}
