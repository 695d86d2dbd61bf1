package dev

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xinpianchang/nextgo/internal/config"
)

// Options configures a development Server.
type Options struct {
	// Config supplies the watch paths and ignore patterns.
	Config *config.Config

	Logger *slog.Logger

	// Interval overrides the polling interval.
	Interval time.Duration

	// OnChange is called after browsers were notified.
	OnChange func(changes []Change, clients int)
}

// Server reloads connected browsers when the build output changes.
type Server struct {
	reload  *ReloadServer
	watcher *Watcher
	logger  *slog.Logger
	options Options
}

// NewServer creates a development server. Mount Reload() on the hot-reload
// paths and call Run.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}

	return &Server{
		reload: NewReloadServer(logger),
		watcher: NewWatcher(WatcherConfig{
			Paths:    CollectWatchPaths(cfg),
			Ignore:   cfg.Watch.Ignore,
			Interval: opts.Interval,
		}),
		logger:  logger,
		options: opts,
	}
}

// Reload returns the hot-reload handler.
func (s *Server) Reload() *ReloadServer {
	return s.reload
}

// Run watches until ctx is done. Browsers reload on any change, or only
// refetch stylesheets when nothing but CSS changed.
func (s *Server) Run(ctx context.Context) error {
	s.watcher.OnChange(s.handleChanges)
	s.logger.Info("dev: watching for changes", "paths", s.watcher.config.Paths)

	err := s.watcher.Start(ctx)
	s.reload.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) handleChanges(changes []Change) {
	msg := MessageCSS
	for _, c := range changes {
		if c.Kind != ChangeStyle {
			msg = MessageReload
			break
		}
	}

	clients := s.reload.Notify(msg)
	s.logger.Info("dev: build changed",
		"files", len(changes),
		"message", string(msg),
		"clients", clients,
	)
	if s.options.OnChange != nil {
		s.options.OnChange(changes, clients)
	}
}
