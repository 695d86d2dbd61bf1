package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinpianchang/nextgo"
	"github.com/xinpianchang/nextgo/pkg/assets"
	"github.com/xinpianchang/nextgo/pkg/client"
	"github.com/xinpianchang/nextgo/pkg/layout"
	"github.com/xinpianchang/nextgo/pkg/location"
	"github.com/xinpianchang/nextgo/pkg/pages"
)

var _ client.ServerContext = (*nextgo.Context)(nil)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func view(format, key string) func(map[string]any) templ.Component {
	return func(state map[string]any) templ.Component {
		return layout.Text(fmt.Sprintf(format, state[key]))
	}
}

// newSite mounts the middleware on a chi router the way an application
// would: chi middleware first, nextgo next, application routes last.
func newSite(t *testing.T, cfg nextgo.Config) *httptest.Server {
	t.Helper()

	engine := pages.New(pages.Options{
		Pages: []*pages.Page{
			{ID: "/", View: view("<h1>%v</h1>", "title")},
			{ID: "/new", Title: "New", View: view("<p>new %v</p>", "title")},
		},
		Assets: assets.NewFS(fstest.MapFS{
			"build-manifest.json":                  {Data: []byte(`{"buildId":"it-1","files":{}}`)},
			"_next/static/chunks/main.0a1b2c3d.js": {Data: []byte("main()")},
		}),
		Logger: discard,
	})
	cfg.Logger = discard
	app := nextgo.New(engine, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(app.Middleware)

	r.Method(http.MethodGet, "/", nextgo.Handle(func(c *nextgo.Context) error {
		return c.Render("/", map[string]any{"title": "hello world", "homepage": true}, nil)
	}))
	r.Method(http.MethodGet, "/teapot", nextgo.Handle(func(c *nextgo.Context) error {
		return nextgo.Errorf(http.StatusTeapot, "short and stout")
	}))
	r.Method(http.MethodGet, "/secret", nextgo.Handle(func(c *nextgo.Context) error {
		return nextgo.InternalError(fmt.Errorf("db password is hunter2"))
	}))
	r.Method(http.MethodGet, "/old", nextgo.Handle(func(c *nextgo.Context) error {
		return c.RenderRedirect(nextgo.RedirectTo("/new"))
	}))
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "pong")
	})
	// Leave unmatched routes unaddressed.
	r.NotFound(func(http.ResponseWriter, *http.Request) {})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func fetch(t *testing.T, target string, snapshot bool) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	if snapshot {
		req.Header.Set("X-Requested-With", "Next-Fetch")
	}
	hc := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := hc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestDocumentAndSnapshot(t *testing.T) {
	srv := newSite(t, nextgo.DefaultConfig())

	resp, body := fetch(t, srv.URL+"/", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "<h1>hello world</h1>")
	assert.Contains(t, body, `"buildId":"it-1"`)

	resp, body = fetch(t, srv.URL+"/", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"title":"hello world","homepage":true}`, body)
	assert.Contains(t, resp.Header.Values("Vary"), "X-Requested-With")
}

func TestRouterHandlersWin(t *testing.T) {
	srv := newSite(t, nextgo.DefaultConfig())

	resp, body := fetch(t, srv.URL+"/api/ping", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", body)
}

func TestNotFound(t *testing.T) {
	srv := newSite(t, nextgo.DefaultConfig())

	resp, body := fetch(t, srv.URL+"/missing-path", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "This page could not be found.")

	resp, body = fetch(t, srv.URL+"/missing-path", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Not Found"}`, body)

	cfg := nextgo.DefaultConfig()
	cfg.UseFileSystemPublicRoutes = false
	srv = newSite(t, cfg)
	resp, _ = fetch(t, srv.URL+"/new", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "engine routes are off")
}

func TestEngineRoutes(t *testing.T) {
	srv := newSite(t, nextgo.DefaultConfig())

	resp, body := fetch(t, srv.URL+"/new", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<title>New</title>")

	resp, body = fetch(t, srv.URL+"/_next/static/chunks/main.0a1b2c3d.js", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "main()", body)
	assert.Equal(t, assets.CacheImmutable, resp.Header.Get("Cache-Control"))

	resp, _ = fetch(t, srv.URL+"/_next/static/chunks/main.0a1b2c3d.exe", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrorExposure(t *testing.T) {
	srv := newSite(t, nextgo.DefaultConfig())

	resp, body := fetch(t, srv.URL+"/teapot", true)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.JSONEq(t, `{"message":"short and stout"}`, body)

	resp, body = fetch(t, srv.URL+"/secret", true)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, body, "hunter2")

	cfg := nextgo.DefaultConfig()
	cfg.DevMode = true
	srv = newSite(t, cfg)
	_, body = fetch(t, srv.URL+"/secret", true)
	assert.Contains(t, body, "hunter2")
}

func TestRedirect(t *testing.T) {
	srv := newSite(t, nextgo.DefaultConfig())

	resp, _ := fetch(t, srv.URL+"/old", false)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/new", resp.Header.Get("Location"))

	resp, _ = fetch(t, srv.URL+"/old", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/new", resp.Header.Get("Content-Location"))
}

type recordingNavigator struct{ visits []string }

func (n *recordingNavigator) Back() { n.visits = append(n.visits, "back") }
func (n *recordingNavigator) Push(_ *location.URL, as string) { n.visits = append(n.visits, "push "+as) }
func (n *recordingNavigator) Replace(_ *location.URL, as string) { n.visits = append(n.visits, "replace "+as) }
func (n *recordingNavigator) Assign(href string) { n.visits = append(n.visits, "assign "+href) }

func TestClientFetcher(t *testing.T) {
	srv := newSite(t, nextgo.DefaultConfig())

	// The fetcher mirrors the settings embedded in the document.
	cfg := nextgo.DefaultConfig()
	nav := &recordingNavigator{}
	f := client.New(srv.URL, client.Config{
		Fetch:  cfg.Fetch.Mode,
		Header: cfg.Fetch.Header,
		Value:  cfg.Fetch.Value,
	})
	f.Navigator = nav
	f.Logger = discard

	ctx := context.Background()
	state, err := f.GetInitialState(ctx, client.Navigation{AsPath: "/"}, client.Options{}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "hello world", "homepage": true}, state)

	state, err = f.GetInitialState(ctx, client.Navigation{AsPath: "/"}, client.Options{MsgPack: true}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "hello world", state.(map[string]any)["title"])

	_, err = f.GetInitialState(ctx, client.Navigation{AsPath: "/teapot"}, client.Options{}).Unwrap()
	var re *client.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusTeapot, re.StatusCode)
	assert.Equal(t, "short and stout", re.Message)

	res := f.GetInitialState(ctx, client.Navigation{AsPath: "/old"}, client.Options{})
	assert.True(t, res.IsCancelled())
	require.Len(t, nav.visits, 1)
	assert.True(t, strings.HasSuffix(nav.visits[0], "/new"), nav.visits[0])
}

func TestParamNegotiation(t *testing.T) {
	cfg := nextgo.DefaultConfig()
	cfg.Fetch.Mode = "param"
	srv := newSite(t, cfg)

	resp, body := fetch(t, srv.URL+"/?"+cfg.Fetch.Param+"=json", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"title":"hello world","homepage":true}`, body)

	f := client.New(srv.URL, client.Config{Fetch: "param", Param: cfg.Fetch.Param})
	state, err := f.GetInitialState(context.Background(), client.Navigation{AsPath: "/"}, client.Options{}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, true, state.(map[string]any)["homepage"])
}
