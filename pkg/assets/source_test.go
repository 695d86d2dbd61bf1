package assets

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/_next/static/chunks/main.js", "_next/static/chunks/main.js", true},
		{"/static/logo.png", "static/logo.png", true},
		{"/", "", false},
		{"/static/../secret", "", false},
		{"/static/./a.js", "", false},
		{"//etc/passwd", "", false},
		{"/static/a\\b.js", "", false},
		{"/static/a\x00.js", "", false},
	}
	for _, tt := range tests {
		got, ok := RelPath(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestIsFingerprinted(t *testing.T) {
	assert.True(t, IsFingerprinted("_next/static/chunks/main.3c4d5e6f.js"))
	assert.True(t, IsFingerprinted("app.A1B2C3D4E5.css"))
	assert.False(t, IsFingerprinted("main.js"))
	assert.False(t, IsFingerprinted("main.abc.js"))
	assert.False(t, IsFingerprinted("main.zzzzzzzz.js"))
}

func TestFS_Open(t *testing.T) {
	src := NewFS(fstest.MapFS{
		"static/logo.png": {Data: []byte("png"), ModTime: time.Unix(1700000000, 0)},
		"static/dir":      {Mode: fs.ModeDir | 0o755},
	})

	a, err := src.Open(context.Background(), "static/logo.png")
	require.NoError(t, err)
	defer a.Body.Close()
	assert.Equal(t, int64(3), a.Size)
	assert.Equal(t, "image/png", a.ContentType)

	_, err = src.Open(context.Background(), "static/missing.png")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = src.Open(context.Background(), "static/dir")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// fakeS3 answers path-style GetObject requests.
func fakeS3(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("Last-Modified", "Tue, 14 Nov 2023 22:13:20 GMT")
		w.Header().Set("Content-Length", "13")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestS3_Open(t *testing.T) {
	srv := fakeS3(t, map[string]string{
		"/builds/site/_next/static/chunks/main.js": "console.log()",
	})
	src := NewS3(NewAnonymousS3Client("us-east-1", srv.URL), "builds", "site/")

	a, err := src.Open(context.Background(), "_next/static/chunks/main.js")
	require.NoError(t, err)
	defer a.Body.Close()

	body, err := io.ReadAll(a.Body)
	require.NoError(t, err)
	assert.Equal(t, "console.log()", string(body))
	assert.Equal(t, `"abc"`, a.ETag)
	assert.Equal(t, "application/javascript", a.ContentType)
	assert.Equal(t, int64(13), a.Size)

	_, err = src.Open(context.Background(), "_next/static/chunks/missing.js")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestServer_Serve(t *testing.T) {
	s := &Server{Source: NewFS(fstest.MapFS{
		"_next/static/chunks/main.3c4d5e6f.js": {Data: []byte("main()")},
		"static/robots.txt":                    {Data: []byte("User-agent: *")},
	})}

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_next/static/chunks/main.3c4d5e6f.js", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "main()", rr.Body.String())
	assert.Equal(t, CacheImmutable, rr.Header().Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/javascript") ||
		strings.HasPrefix(rr.Header().Get("Content-Type"), "application/javascript"))

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/robots.txt", nil))
	assert.Equal(t, CacheRevalidate, rr.Header().Get("Cache-Control"))

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/missing.txt", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/static/robots.txt", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	err := s.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/missing.txt", nil))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServer_ServeStreamingSource(t *testing.T) {
	srv := fakeS3(t, map[string]string{"/b/static/app.js": "console.log()"})
	s := &Server{Source: NewS3(NewAnonymousS3Client("us-east-1", srv.URL), "b", ""), Dev: true}

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "console.log()", rr.Body.String())
	assert.Equal(t, CacheDevelopment, rr.Header().Get("Cache-Control"))
	assert.Equal(t, `"abc"`, rr.Header().Get("ETag"))

	req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
	req.Header.Set("If-None-Match", `"abc"`)
	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotModified, rr.Code)
}
