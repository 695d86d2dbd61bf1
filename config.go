package nextgo

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/xinpianchang/nextgo/pkg/negotiate"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config configures the dispatch middleware.
// Start from DefaultConfig and override what differs:
//
//	cfg := nextgo.DefaultConfig()
//	cfg.Fetch.Mode = "param"
//	cfg.AssetPrefix = "https://cdn.example.com"
//	app := nextgo.New(engine, cfg)
type Config struct {
	// Fetch configures how clients ask for a state snapshot instead of a
	// document.
	Fetch FetchConfig

	// Static configures the reserved asset path space (/static/ and /_next/).
	Static StaticConfig

	// AssetPrefix is the public origin or path assets are served from.
	// When it is an absolute http(s) URL, asset responses carry the
	// cross-origin headers described by Static.
	AssetPrefix string

	// UseFileSystemPublicRoutes hands requests that no downstream handler
	// addressed to the engine's own routing. When false they get a 404.
	// Default: true.
	UseFileSystemPublicRoutes bool

	// DevMode exposes error messages, codes and stacks in snapshot error
	// bodies and enables the hot reload path.
	DevMode bool

	// HotReloadPattern matches the development hot reload endpoints under
	// the reserved prefix. Only consulted in DevMode.
	// Default: ^/_next/(on-demand-entries-ping|hot-reload)
	HotReloadPattern string

	// ErrorPage is the page id the engine renders errors with.
	// Default: "/_error".
	ErrorPage string

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger

	// OnError receives errors the middleware could not turn into an error
	// response, either because the response was already addressed or because
	// rendering the error failed too. c is nil when the failure happened
	// before a Context existed (readiness gate failure).
	// Default: log the error and, if nothing was written yet, answer 500
	// (503 for ErrEngineNotReady).
	OnError func(w http.ResponseWriter, r *http.Request, c *Context, err error)
}

// FetchConfig selects the negotiation signal.
type FetchConfig struct {
	// Mode is "header", "param" or "none". Empty selects "header".
	Mode string

	// Header and Value name the negotiation header and its sentinel value
	// in header mode. Defaults: X-Requested-With, Next-Fetch.
	Header string
	Value  string

	// Param is the reserved query key in param mode. Default: next_fetch.
	Param string
}

// StaticConfig configures the reserved asset path space.
type StaticConfig struct {
	// Extensions lists the file extensions served from the reserved prefix.
	// Anything else under the prefix is a 404.
	Extensions []string

	// AllowOriginExtensions lists the extensions that get cross-origin
	// headers when AssetPrefix is an absolute URL.
	AllowOriginExtensions []string

	// AllowOriginPatterns are regular expressions matched against the
	// request Origin. A matching origin is echoed in
	// Access-Control-Allow-Origin.
	AllowOriginPatterns []string
}

// PublicConfig is the part of the configuration a browser client must
// mirror to negotiate snapshots. Engines embed it in documents.
type PublicConfig struct {
	Fetch       string `json:"fetch"`
	Header      string `json:"header,omitempty"`
	Value       string `json:"value,omitempty"`
	Param       string `json:"param,omitempty"`
	AssetPrefix string `json:"assetPrefix,omitempty"`
}

// =============================================================================
// Default Configurations
// =============================================================================

// Default values.
const (
	DefaultErrorPage        = "/_error"
	DefaultHotReloadPattern = `^/_next/(on-demand-entries-ping|hot-reload)`
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Fetch:                     DefaultFetchConfig(),
		Static:                    DefaultStaticConfig(),
		UseFileSystemPublicRoutes: true,
		HotReloadPattern:          DefaultHotReloadPattern,
		ErrorPage:                 DefaultErrorPage,
	}
}

// DefaultFetchConfig returns header mode with the default signal.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Mode:   negotiate.ModeHeader.String(),
		Header: negotiate.DefaultHeader,
		Value:  negotiate.DefaultValue,
		Param:  negotiate.DefaultParam,
	}
}

// DefaultStaticConfig returns the default asset allow lists.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		Extensions:            []string{".js", ".css", ".png", ".jpg", ".jpeg", ".webp", ".gif", ".map", ".json"},
		AllowOriginExtensions: []string{".js", ".css"},
		AllowOriginPatterns:   []string{".*"},
	}
}

// =============================================================================
// Validation and resolution
// =============================================================================

// Validate reports configuration errors New would otherwise panic on.
func (c Config) Validate() error {
	if _, err := negotiate.ParseMode(c.Fetch.Mode); err != nil {
		return err
	}
	for _, p := range c.Static.AllowOriginPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("nextgo: invalid allow-origin pattern %q: %w", p, err)
		}
	}
	if c.HotReloadPattern != "" {
		if _, err := regexp.Compile(c.HotReloadPattern); err != nil {
			return fmt.Errorf("nextgo: invalid hot reload pattern %q: %w", c.HotReloadPattern, err)
		}
	}
	for _, ext := range c.Static.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("nextgo: static extension %q must start with a dot", ext)
		}
	}
	return nil
}

// withDefaults fills zero values that have a non-zero default. Boolean
// switches are left alone; use DefaultConfig for those.
func (c Config) withDefaults() Config {
	if c.Fetch.Header == "" {
		c.Fetch.Header = negotiate.DefaultHeader
	}
	if c.Fetch.Value == "" {
		c.Fetch.Value = negotiate.DefaultValue
	}
	if c.Fetch.Param == "" {
		c.Fetch.Param = negotiate.DefaultParam
	}
	if c.Static.Extensions == nil {
		c.Static.Extensions = DefaultStaticConfig().Extensions
	}
	if c.Static.AllowOriginExtensions == nil {
		c.Static.AllowOriginExtensions = DefaultStaticConfig().AllowOriginExtensions
	}
	if c.Static.AllowOriginPatterns == nil {
		c.Static.AllowOriginPatterns = DefaultStaticConfig().AllowOriginPatterns
	}
	if c.HotReloadPattern == "" {
		c.HotReloadPattern = DefaultHotReloadPattern
	}
	if c.ErrorPage == "" {
		c.ErrorPage = DefaultErrorPage
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// negotiator builds the negotiator for the fetch settings. The mode must
// have been validated.
func (f FetchConfig) negotiator() negotiate.Negotiator {
	mode, _ := negotiate.ParseMode(f.Mode)
	return negotiate.Negotiator{
		Mode:   mode,
		Header: f.Header,
		Value:  f.Value,
		Param:  f.Param,
	}
}

// public returns the client-facing view of the configuration.
func (c Config) public() PublicConfig {
	n := c.Fetch.negotiator()
	pc := PublicConfig{Fetch: n.Mode.String(), AssetPrefix: c.AssetPrefix}
	switch n.Mode {
	case negotiate.ModeHeader:
		pc.Header = n.HeaderName()
		pc.Value = n.HeaderValue()
	case negotiate.ModeParam:
		pc.Param = n.ParamName()
	}
	return pc
}

var absoluteAssetPrefix = regexp.MustCompile(`^https?://`)

// crossOriginAssets reports whether assets are served from another origin.
func (c Config) crossOriginAssets() bool {
	return absoluteAssetPrefix.MatchString(c.AssetPrefix)
}
