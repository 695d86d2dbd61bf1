package nextgo

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/xinpianchang/nextgo/pkg/negotiate"
)

// capabilities is the render capability set shared by every Context of an
// App. It is built once, after the engine is prepared, and never mutated.
type capabilities struct {
	engine     Engine
	buildID    string
	config     Config
	logger     *slog.Logger
	negotiator negotiate.Negotiator
	public     PublicConfig

	extensions       map[string]struct{}
	originExtensions map[string]struct{}
	allowOrigins     []*regexp.Regexp
	hotReload        *regexp.Regexp
	crossOrigin      bool
}

// extend returns the capability set, building it on first use. Every caller
// gets the same pointer.
func (a *App) extend() *capabilities {
	a.extendOnce.Do(func() {
		cfg := a.config
		caps := &capabilities{
			engine:           a.engine,
			buildID:          a.engine.BuildID(),
			config:           cfg,
			logger:           cfg.Logger,
			negotiator:       cfg.Fetch.negotiator(),
			public:           cfg.public(),
			extensions:       extensionSet(cfg.Static.Extensions),
			originExtensions: extensionSet(cfg.Static.AllowOriginExtensions),
			crossOrigin:      cfg.crossOriginAssets(),
		}
		for _, p := range cfg.Static.AllowOriginPatterns {
			caps.allowOrigins = append(caps.allowOrigins, regexp.MustCompile(p))
		}
		if cfg.DevMode && cfg.HotReloadPattern != "" {
			caps.hotReload = regexp.MustCompile(cfg.HotReloadPattern)
		}
		a.caps = caps
		a.logger.Debug("nextgo: render capabilities installed", "build_id", caps.buildID)
	})
	return a.caps
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return set
}
