package assets

import "strings"

// Resolver maps a logical asset name to the URL a document references.
type Resolver interface {
	// Asset resolves name, e.g. "main.js" to
	// "https://cdn.example.com/_next/static/chunks/main.3c4d5e6f.js".
	Asset(name string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver resolves names through m and joins them to prefix, the asset
// prefix of the deployment ("" for same-origin assets).
//
//	r := assets.NewResolver(m, "https://cdn.example.com")
//	r.Asset("main.js") // "https://cdn.example.com/_next/static/chunks/main.3c4d5e6f.js"
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{manifest: m, prefix: strings.TrimSuffix(prefix, "/")}
}

func (r *manifestResolver) Asset(name string) string {
	return join(r.prefix, r.manifest.Resolve(name))
}

type passthrough struct {
	prefix string
}

// NewPassthroughResolver joins names to prefix unchanged. Development builds
// are not fingerprinted.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: strings.TrimSuffix(prefix, "/")}
}

func (p *passthrough) Asset(name string) string {
	return join(p.prefix, name)
}

func join(prefix, name string) string {
	if strings.Contains(name, "://") {
		return name
	}
	return prefix + "/" + strings.TrimPrefix(name, "/")
}
