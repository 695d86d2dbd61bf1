package nextgo

import (
	"path"
	"regexp"
	"strings"
)

// =============================================================================
// Reserved asset prefixes
// =============================================================================

var reservedPrefix = regexp.MustCompile(`^/(static|_next)/`)

// imagesPrefix holds build images whose names are content hashed.
const imagesPrefix = "/_next/static/images/"

func isReservedPath(p string) bool {
	return reservedPrefix.MatchString(p)
}

// assetExt returns the lower-cased extension of a request path, ignoring
// any query.
func assetExt(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(path.Ext(p))
}

// serveAsset handles a request under the reserved prefixes. Allowed
// extensions (and the dev hot reload endpoints) go to the engine; anything
// else is a 404.
func (a *App) serveAsset(c *Context) error {
	caps := c.caps
	ext := assetExt(c.r.URL.Path)
	hot := caps.hotReload != nil && caps.hotReload.MatchString(c.originalURI)

	if _, ok := caps.extensions[ext]; !ok && !hot {
		return c.Render404(nil)
	}

	h := c.w.Header()
	if caps.crossOrigin {
		if _, ok := caps.originExtensions[ext]; ok || hot {
			c.Vary("Origin")
			if origin := c.r.Header.Get("Origin"); origin != "" && caps.originAllowed(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
			}
		}
	}
	if strings.HasPrefix(c.originalURI, imagesPrefix) {
		h.Set("Cache-Control", "public, max-age=31536000, immutable")
	}

	if err := c.HandleNext(nil); err != nil {
		return err
	}
	c.record(OutcomeStatic)
	return nil
}

func (caps *capabilities) originAllowed(origin string) bool {
	for _, re := range caps.allowOrigins {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}
