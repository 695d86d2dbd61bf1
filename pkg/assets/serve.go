package assets

import (
	"errors"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// Cache-Control values for served assets.
const (
	CacheImmutable   = "public, max-age=31536000, immutable"
	CacheRevalidate  = "public, max-age=3600, must-revalidate"
	CacheDevelopment = "no-store, no-cache, must-revalidate"
)

// RelPath returns the sanitized source name for a request path, rejecting
// traversal and absolute-path tricks.
func RelPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", false
	}

	// %00 decodes to NUL.
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}
	if strings.Contains(rel, "\\") {
		return "", false
	}
	// "/static//etc/passwd" strips to "/etc/passwd".
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	return clean, true
}

// IsFingerprinted reports whether a file name carries a content hash,
// e.g. "app.a1b2c3d4.css".
func IsFingerprinted(name string) bool {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// Server serves a Source over HTTP.
type Server struct {
	Source Source
	// Dev disables caching.
	Dev bool
}

// ServeHTTP implements http.Handler. Missing assets get a plain 404; use
// Serve to answer those differently.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := s.Serve(w, r); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
}

// Serve writes the asset named by r's path. Nothing is written when it
// returns ErrNotFound or another error from the Source.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return nil
	}
	name, ok := RelPath(r.URL.Path)
	if !ok {
		return ErrNotFound
	}

	a, err := s.Source.Open(r.Context(), name)
	if err != nil {
		return err
	}
	defer a.Body.Close()

	h := w.Header()
	if h.Get("Cache-Control") == "" {
		switch {
		case s.Dev:
			h.Set("Cache-Control", CacheDevelopment)
		case IsFingerprinted(name):
			h.Set("Cache-Control", CacheImmutable)
		default:
			h.Set("Cache-Control", CacheRevalidate)
		}
	}
	h.Set("Content-Type", a.ContentType)
	if a.ETag != "" {
		h.Set("ETag", a.ETag)
	}

	if rs, ok := a.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, a.ModTime, rs)
		return nil
	}

	if a.ETag != "" && r.Header.Get("If-None-Match") == a.ETag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	if !a.ModTime.IsZero() {
		h.Set("Last-Modified", a.ModTime.UTC().Format(http.TimeFormat))
	}
	if a.Size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return nil
	}
	_, err = io.Copy(w, a.Body)
	return err
}
