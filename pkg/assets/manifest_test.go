package assets

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

func TestManifestResolve(t *testing.T) {
	m := NewManifest("b1")
	m.Set("main.js", "_next/static/chunks/main.3c4d5e6f.js")
	m.Set("app.css", "_next/static/css/app.1a2b3c4d.css")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"found entry", "main.js", "_next/static/chunks/main.3c4d5e6f.js"},
		{"found entry css", "app.css", "_next/static/css/app.1a2b3c4d.css"},
		{"missing entry returns original", "unknown.js", "unknown.js"},
		{"empty string returns empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Resolve(tt.source)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestManifestHasLenAll(t *testing.T) {
	m := NewManifest("")
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	m.Set("a.js", "a.12345678.js")
	m.Set("b.js", "b.87654321.js")

	if !m.Has("a.js") || m.Has("c.js") {
		t.Error("Has() mismatch")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	all := m.All()
	all["c.js"] = "c.js"
	if m.Has("c.js") {
		t.Error("All() should return a copy, but modification affected original")
	}
}

func TestLoad(t *testing.T) {
	src := NewFS(fstest.MapFS{
		ManifestName: {Data: []byte(`{"buildId":"k3j2h1","files":{"main.js":"_next/static/chunks/main.3c4d5e6f.js"}}`)},
	})

	m, err := Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.BuildID() != "k3j2h1" {
		t.Errorf("BuildID() = %q", m.BuildID())
	}
	if got := m.Resolve("main.js"); got != "_next/static/chunks/main.3c4d5e6f.js" {
		t.Errorf("Resolve(main.js) = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	src := NewFS(fstest.MapFS{})

	if _, err := Load(context.Background(), src); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}

	m, err := LoadOptional(context.Background(), src)
	if err != nil {
		t.Fatalf("LoadOptional() error = %v", err)
	}
	if m.Len() != 0 || m.BuildID() != "" {
		t.Error("LoadOptional() should return an empty manifest")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	src := NewFS(fstest.MapFS{ManifestName: {Data: []byte("not json")}})

	if _, err := Load(context.Background(), src); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("Load() error = %v, want ErrInvalidManifest", err)
	}
	if _, err := LoadOptional(context.Background(), src); err == nil {
		t.Error("LoadOptional() should only forgive a missing manifest")
	}
}

func TestResolverWithPrefix(t *testing.T) {
	m := NewManifest("")
	m.Set("main.js", "_next/static/chunks/main.3c4d5e6f.js")

	tests := []struct {
		name     string
		prefix   string
		source   string
		expected string
	}{
		{"cdn", "https://cdn.example.com/", "main.js", "https://cdn.example.com/_next/static/chunks/main.3c4d5e6f.js"},
		{"same origin", "", "main.js", "/_next/static/chunks/main.3c4d5e6f.js"},
		{"path prefix", "/site", "main.js", "/site/_next/static/chunks/main.3c4d5e6f.js"},
		{"missing entry gets prefix", "/site", "static/logo.png", "/site/static/logo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewResolver(m, tt.prefix).Asset(tt.source)
			if got != tt.expected {
				t.Errorf("Asset(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestResolverAbsoluteEntry(t *testing.T) {
	m := NewManifest("")
	m.Set("analytics.js", "https://analytics.example.com/a.js")

	if got := NewResolver(m, "/site").Asset("analytics.js"); got != "https://analytics.example.com/a.js" {
		t.Errorf("Asset(analytics.js) = %q", got)
	}
}

func TestPassthroughResolver(t *testing.T) {
	tests := []struct {
		prefix   string
		source   string
		expected string
	}{
		{"/assets/", "main.js", "/assets/main.js"},
		{"/assets", "images/logo.png", "/assets/images/logo.png"},
		{"", "main.js", "/main.js"},
	}

	for _, tt := range tests {
		got := NewPassthroughResolver(tt.prefix).Asset(tt.source)
		if got != tt.expected {
			t.Errorf("Asset(%q) with prefix %q = %q, want %q", tt.source, tt.prefix, got, tt.expected)
		}
	}
}
