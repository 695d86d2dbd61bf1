package nextgo

import (
	"io"
	"maps"
	"net/http"
	"net/url"

	"github.com/xinpianchang/nextgo/pkg/location"
	"github.com/xinpianchang/nextgo/pkg/middleware"
	"github.com/xinpianchang/nextgo/pkg/negotiate"
	"github.com/xinpianchang/nextgo/pkg/redirect"
)

// =============================================================================
// Scoped URL substitution
// =============================================================================

type renderStep func(query url.Values, parsed *location.URL) error

// withURL runs step with the request URL replaced by the path component of
// parsed (the original request URI when parsed is nil) and data merged into
// the state. The request URL is restored on every exit path, panics
// included.
func (c *Context) withURL(data map[string]any, parsed *location.URL, step renderStep) error {
	if c.rendering {
		return ErrNestedRender
	}
	c.rendering = true
	defer func() { c.rendering = false }()

	if parsed == nil {
		parsed = location.Parse(c.originalURI)
	}

	savedURL, savedURI := c.r.URL, c.r.RequestURI
	defer func() {
		c.r.URL = savedURL
		c.r.RequestURI = savedURI
	}()

	substituted := parsed.RequestURL()
	c.r.URL = substituted
	c.r.RequestURI = substituted.RequestURI()

	c.Merge(data)
	return step(substituted.Query(), parsed)
}

func (c *Context) record(o Outcome) {
	c.outcome = o
	middleware.Annotate(c.r.Context(), string(o))
}

func (c *Context) writeSnapshot(v any) error {
	return negotiate.Write(c.w, negotiate.CodecFor(c.r), c.w.status, v)
}

// =============================================================================
// Render operations
// =============================================================================

// Render answers with page pageID. The status is 200 unless one was set
// explicitly. A snapshot request gets the merged state; anything else gets
// the engine's document. When the engine fails before sending anything the
// response is left unaddressed, so the error answers with its own status.
func (c *Context) Render(pageID string, data map[string]any, parsed *location.URL) error {
	return c.withURL(data, parsed, func(query url.Values, parsed *location.URL) error {
		pending, set := c.w.status, c.w.set
		if !c.w.explicit {
			c.w.setStatus(http.StatusOK)
		}
		if c.IsSnapshot() {
			c.record(OutcomeSnapshot)
			return c.writeSnapshot(c.state)
		}
		c.record(OutcomeDocument)
		err := c.caps.engine.RenderPage(c.w, c.r, pageID, query, parsed)
		if err != nil && !c.w.wroteHeader {
			// Nothing was sent, so the failure picks the status.
			c.w.status, c.w.set = pending, set
		}
		return err
	})
}

// notFoundBody is the snapshot body of a 404.
type notFoundBody struct {
	Message string `json:"message" msgpack:"message"`
}

// Render404 answers with status 404.
func (c *Context) Render404(parsed *location.URL) error {
	return c.withURL(nil, parsed, func(_ url.Values, parsed *location.URL) error {
		c.w.setStatus(http.StatusNotFound)
		c.record(OutcomeNotFound)
		if c.IsSnapshot() {
			return c.writeSnapshot(notFoundBody{Message: "Not Found"})
		}
		return c.caps.engine.Render404(c.w, c.r, parsed)
	})
}

// RenderError answers with an error page for err. The status is the one err
// carries (500 when none) unless a status was set explicitly.
//
// A snapshot request gets {message, code, stack} merged with the state. The
// message and code are only revealed when err is exposable or in DevMode;
// otherwise the message is the status text. The stack is DevMode only. A nil
// err yields the state alone.
func (c *Context) RenderError(err error, data map[string]any, parsed *location.URL) error {
	return c.withURL(data, parsed, func(query url.Values, _ *location.URL) error {
		if !c.w.explicit {
			status := http.StatusInternalServerError
			if err != nil {
				status = StatusOf(err)
			}
			c.w.setStatus(status)
		}
		c.record(OutcomeError)
		if c.IsSnapshot() {
			body := c.state
			if err != nil {
				body = c.errorBody(err)
			}
			return c.writeSnapshot(body)
		}
		return c.caps.engine.RenderErrorPage(err, c.w, c.r, c.caps.config.ErrorPage, query)
	})
}

func (c *Context) errorBody(err error) map[string]any {
	dev := c.caps.config.DevMode
	reveal := dev || isExposed(err)

	body := make(map[string]any, len(c.state)+3)
	message := ""
	if reveal {
		message = err.Error()
	}
	if message == "" {
		message = http.StatusText(c.w.status)
	}
	if message == "" {
		message = "Server Internal Error"
	}
	body["message"] = message
	if reveal {
		if code := errorCodeOf(err); code != "" {
			body["code"] = code
		}
		maps.Copy(body, errorDataOf(err))
	}
	if dev {
		body["stack"] = stackOf(err)
	}
	maps.Copy(body, c.state)
	return body
}

// RenderToHTML renders page pageID to a string. Nothing is written to the
// response.
func (c *Context) RenderToHTML(pageID string, data map[string]any) (string, error) {
	var html string
	err := c.withURL(data, nil, func(query url.Values, _ *location.URL) error {
		var err error
		html, err = c.caps.engine.RenderToHTML(c.r, pageID, query)
		return err
	})
	return html, err
}

// RenderErrorToHTML renders the error page for err to a string. Nothing is
// written to the response.
func (c *Context) RenderErrorToHTML(err error, data map[string]any) (string, error) {
	var html string
	rerr := c.withURL(data, nil, func(query url.Values, _ *location.URL) error {
		var err2 error
		html, err2 = c.caps.engine.RenderErrorToHTML(err, c.r, c.caps.config.ErrorPage, query)
		return err2
	})
	return html, rerr
}

// RenderRedirect redirects to target.
//
// A document request gets a 302. A snapshot request gets a 200 whose
// Content-Location names the target and whose body is either "back" or the
// structured location, so the client can navigate without another round
// trip.
func (c *Context) RenderRedirect(target redirect.Target) error {
	res := redirect.Resolve(target, redirect.Referrer(c.r.Header))

	if c.IsSnapshot() {
		c.w.setStatus(http.StatusOK)
		c.w.Header().Set("Content-Location", res.Location)
		c.record(OutcomeRedirect)
		if res.Back {
			c.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			c.w.WriteHeader(http.StatusOK)
			_, err := io.WriteString(c.w, redirect.BackSentinel)
			return err
		}
		return negotiate.Write(c.w, negotiate.CodecFor(c.r), http.StatusOK, res.URL)
	}

	c.record(OutcomeRedirect)
	http.Redirect(c.w, c.r, res.Location, http.StatusFound)
	return nil
}

// Redirect sends a plain 302 to the given location and detaches the context, whatever
// the negotiation. Page initializers use it to abort a server render.
func (c *Context) Redirect(to string) {
	c.record(OutcomeRedirect)
	http.Redirect(c.w, c.r, to, http.StatusFound)
	c.Detach()
}

// HandleNext hands the request to the engine's own request handling.
func (c *Context) HandleNext(parsed *location.URL) error {
	return c.withURL(nil, parsed, func(_ url.Values, parsed *location.URL) error {
		c.record(OutcomePassThrough)
		return c.caps.engine.HandleRequest(c.w, c.r, parsed)
	})
}
