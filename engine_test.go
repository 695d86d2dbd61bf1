package nextgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/xinpianchang/nextgo/pkg/location"
)

// fakeEngine records what the middleware asks of it.
type fakeEngine struct {
	prepareCalls atomic.Int32
	prepareErr   error
	release      chan struct{} // Prepare blocks until closed, when set

	mu        sync.Mutex
	calls     []string
	seenURIs  []string
	seenQuery url.Values
	failWith  error
	pageErr   error // RenderPage only
	panicWith any
	during    func(r *http.Request)
}

func newFakeEngine() *fakeEngine { return &fakeEngine{} }

func (e *fakeEngine) Prepare(ctx context.Context) error {
	e.prepareCalls.Add(1)
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.prepareErr
}

func (e *fakeEngine) BuildID() string { return "build-1" }

func (e *fakeEngine) record(call string, r *http.Request) error {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.seenURIs = append(e.seenURIs, r.RequestURI)
	during, failWith, panicWith := e.during, e.failWith, e.panicWith
	e.mu.Unlock()

	if during != nil {
		during(r)
	}
	if panicWith != nil {
		panic(panicWith)
	}
	return failWith
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *fakeEngine) LastURI() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.seenURIs) == 0 {
		return ""
	}
	return e.seenURIs[len(e.seenURIs)-1]
}

func (e *fakeEngine) RenderPage(w http.ResponseWriter, r *http.Request, pageID string, query url.Values, parsed *location.URL) error {
	if err := e.record("page:"+pageID, r); err != nil {
		return err
	}
	e.mu.Lock()
	e.seenQuery = query
	pageErr := e.pageErr
	e.mu.Unlock()
	if pageErr != nil {
		return pageErr
	}
	title, _ := FromRequest(r).State()["title"].(string)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := fmt.Fprintf(w, "<html><title>%s</title></html>", title)
	return err
}

func (e *fakeEngine) Render404(w http.ResponseWriter, r *http.Request, parsed *location.URL) error {
	if err := e.record("404", r); err != nil {
		return err
	}
	_, err := io.WriteString(w, "<h1>not found</h1>")
	return err
}

func (e *fakeEngine) RenderErrorPage(err error, w http.ResponseWriter, r *http.Request, errorPageID string, query url.Values) error {
	if rerr := e.record("error:"+errorPageID, r); rerr != nil {
		return rerr
	}
	_, werr := io.WriteString(w, "<h1>error page</h1>")
	return werr
}

func (e *fakeEngine) RenderToHTML(r *http.Request, pageID string, query url.Values) (string, error) {
	if err := e.record("html:"+pageID, r); err != nil {
		return "", err
	}
	return "<p>" + pageID + "</p>", nil
}

func (e *fakeEngine) RenderErrorToHTML(err error, r *http.Request, errorPageID string, query url.Values) (string, error) {
	if rerr := e.record("errorhtml:"+errorPageID, r); rerr != nil {
		return "", rerr
	}
	return "<p>" + err.Error() + "</p>", nil
}

func (e *fakeEngine) HandleRequest(w http.ResponseWriter, r *http.Request, parsed *location.URL) error {
	if err := e.record("next:"+r.URL.Path, r); err != nil {
		return err
	}
	if strings.HasPrefix(r.URL.Path, "/_next/") || strings.HasPrefix(r.URL.Path, "/static/") {
		_, err := io.WriteString(w, "asset")
		return err
	}
	w.WriteHeader(http.StatusNotFound)
	_, err := io.WriteString(w, "engine 404")
	return err
}

// =============================================================================
// Test helpers
// =============================================================================

func newTestApp(t *testing.T, e *fakeEngine, mutate func(*Config)) *App {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return New(e, cfg)
}

func do(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func snapshotHeader() http.Header {
	return http.Header{"X-Requested-With": {"Next-Fetch"}}
}

// mount returns the middleware in front of a single handler.
func mount(app *App, h http.Handler) http.Handler {
	return app.Middleware(h)
}
