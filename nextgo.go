// Package nextgo serves server-rendered pages in two modes from the same
// routes: a full HTML document for first loads, and a structured state
// snapshot for in-app navigation.
//
// Mount the middleware in front of the application handlers:
//
//	engine := pages.New(pages.Options{Pages: site.Pages, Layouts: &site.Layouts})
//	app := nextgo.New(engine, nextgo.DefaultConfig())
//
//	r := chi.NewRouter()
//	r.Use(app.Middleware)
//	r.Method(http.MethodGet, "/", nextgo.Handle(func(c *nextgo.Context) error {
//	    return c.Render("/", map[string]any{"title": "hello world"}, nil)
//	}))
//	http.ListenAndServe(":3000", r)
//
// The same GET / answers with the rendered document, or, when the client
// sends "X-Requested-With: Next-Fetch", with {"title":"hello world"} as JSON.
// Requests no handler answered fall through to the engine, and errors become
// error pages or error snapshots with the status they carry.
package nextgo

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xinpianchang/nextgo/pkg/location"
	"github.com/xinpianchang/nextgo/pkg/redirect"
)

// =============================================================================
// Engine
// =============================================================================

// Engine is the rendering engine the middleware dispatches to.
//
// Engines write response bodies through w. They may leave the status to the
// middleware: the first Write applies the status the operation chose (200,
// 404 or the error status). Per-request state is available to engines via
// FromRequest(r).State().
type Engine interface {
	// Prepare initializes the engine. It is called once per process.
	Prepare(ctx context.Context) error

	// BuildID identifies the build being served. It is read after Prepare.
	BuildID() string

	RenderPage(w http.ResponseWriter, r *http.Request, pageID string, query url.Values, parsed *location.URL) error
	Render404(w http.ResponseWriter, r *http.Request, parsed *location.URL) error
	RenderErrorPage(err error, w http.ResponseWriter, r *http.Request, errorPageID string, query url.Values) error
	RenderToHTML(r *http.Request, pageID string, query url.Values) (string, error)
	RenderErrorToHTML(err error, r *http.Request, errorPageID string, query url.Values) (string, error)

	// HandleRequest resolves anything else the engine owns: static assets
	// and its own page routes.
	HandleRequest(w http.ResponseWriter, r *http.Request, parsed *location.URL) error
}

// =============================================================================
// Outcomes
// =============================================================================

// Outcome is the result class of a dispatched operation.
type Outcome string

const (
	OutcomeDocument    Outcome = "document"
	OutcomeSnapshot    Outcome = "snapshot"
	OutcomeRedirect    Outcome = "redirect"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeError       Outcome = "error"
	OutcomeStatic      Outcome = "static"
	OutcomePassThrough Outcome = "pass_through"
)

// =============================================================================
// Re-exports
// =============================================================================

// URL is a parsed location.
type URL = location.URL

// ParseURL parses a raw URL or request URI.
func ParseURL(raw string) *URL { return location.Parse(raw) }

// Target is a redirect destination.
type Target = redirect.Target

// RedirectTo parses a redirect target string; "back" returns to the referrer.
func RedirectTo(s string) Target { return redirect.Parse(s) }

// RedirectURL targets a structured location.
func RedirectURL(u *URL) Target { return redirect.Structured(u) }

// RedirectBack targets the referring page.
func RedirectBack() Target { return redirect.Back() }
