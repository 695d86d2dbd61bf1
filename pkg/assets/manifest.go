// Package assets resolves and serves the build output behind the reserved
// asset prefixes.
//
// A build writes a build-manifest.json at the root of its output, naming the
// build and mapping logical asset names to their fingerprinted files:
//
//	{
//	  "buildId": "k3j2h1",
//	  "files": {
//	    "main.js": "_next/static/chunks/main.3c4d5e6f.js",
//	    "app.css": "_next/static/css/app.1a2b3c4d.css"
//	  }
//	}
//
// Engines resolve names through a Resolver when writing documents and serve
// the files from a Source: a local or embedded fs.FS, or an S3 bucket.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ManifestName is the manifest's file name at the root of a build.
const ManifestName = "build-manifest.json"

// ErrInvalidManifest is returned for a manifest that is not valid JSON.
var ErrInvalidManifest = errors.New("assets: invalid manifest")

// Manifest holds the build id and the mapping from logical asset names to
// fingerprinted paths. It is safe for concurrent use.
type Manifest struct {
	mu      sync.RWMutex
	buildID string
	entries map[string]string
}

type manifestFile struct {
	BuildID string            `json:"buildId"`
	Files   map[string]string `json:"files"`
}

// NewManifest creates an empty manifest.
func NewManifest(buildID string) *Manifest {
	return &Manifest{
		buildID: buildID,
		entries: make(map[string]string),
	}
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var f manifestFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if f.Files == nil {
		f.Files = make(map[string]string)
	}
	return &Manifest{buildID: f.BuildID, entries: f.Files}, nil
}

// Load reads the manifest from src. A build without a manifest yields
// ErrNotFound.
func Load(ctx context.Context, src Source) (*Manifest, error) {
	a, err := src.Open(ctx, ManifestName)
	if err != nil {
		return nil, err
	}
	defer a.Body.Close()

	data, err := io.ReadAll(a.Body)
	if err != nil {
		return nil, fmt.Errorf("assets: read manifest: %w", err)
	}
	return Parse(data)
}

// LoadOptional is Load, but a missing manifest yields an empty one.
func LoadOptional(ctx context.Context, src Source) (*Manifest, error) {
	m, err := Load(ctx, src)
	if errors.Is(err, ErrNotFound) {
		return NewManifest(""), nil
	}
	return m, err
}

// BuildID returns the id of the build the manifest describes.
func (m *Manifest) BuildID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buildID
}

// Resolve returns the fingerprinted path for name, or name unchanged.
func (m *Manifest) Resolve(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[name]; ok {
		return resolved
	}
	return name
}

// Has reports whether the manifest lists name.
func (m *Manifest) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[name]
	return ok
}

// Set adds or updates an entry.
func (m *Manifest) Set(name, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[name] = resolved
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// All returns a copy of the entries.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}
