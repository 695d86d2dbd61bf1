package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xinpianchang/nextgo"
	"github.com/xinpianchang/nextgo/internal/config"
	"github.com/xinpianchang/nextgo/internal/dev"
	"github.com/xinpianchang/nextgo/internal/errors"
	"github.com/xinpianchang/nextgo/pkg/assets"
	"github.com/xinpianchang/nextgo/pkg/middleware"
	"github.com/xinpianchang/nextgo/pkg/pages"
)

const (
	defaultS3Region = "us-east-1"
	shutdownTimeout = 10 * time.Second
	healthPath      = "/healthz"
)

type serveFlags struct {
	dir  string
	port int
	host string
	dev  bool
}

func serveCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		Long: `Start the HTTP server for the build described by the configuration
file.

With --dev (or dev: true) error messages are shown in error pages, assets
are not cached and browsers reload when the build output changes.

Examples:
  nextgo serve
  nextgo serve --port=8080 --host=0.0.0.0
  nextgo serve -C ./site --dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.dir, "dir", "C", ".", "Directory holding the configuration file")
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Port to listen on (default from the configuration)")
	cmd.Flags().StringVarP(&flags.host, "host", "H", "", "Host to bind to (default from the configuration)")
	cmd.Flags().BoolVar(&flags.dev, "dev", false, "Enable development mode")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, flags serveFlags) error {
	cfg, err := config.Load(flags.dir)
	if err != nil {
		return err
	}
	if flags.port != 0 {
		cfg.Port = flags.port
	}
	if flags.host != "" {
		cfg.Host = flags.host
	}
	if flags.dev {
		cfg.Dev = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.Logger()
	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	if srv.dev != nil {
		go func() {
			if err := srv.dev.Run(ctx); err != nil {
				logger.Error("dev: watcher stopped", "error", err)
			}
		}()
	}

	if err := srv.prepare(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	out := cmd.OutOrStdout()
	success(out, "Listening on http://%s", cfg.Address())
	if cfg.Dev {
		info(out, "Development mode, watching %v", dev.CollectWatchPaths(cfg))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case err := <-errCh:
		return errors.New("E301").Wrap(err)
	case <-ctx.Done():
	}

	logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.New("E301").Wrap(err)
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.New("E301").Wrap(err)
	}
	return nil
}

// server is the assembled HTTP stack.
type server struct {
	app     *nextgo.App
	handler http.Handler
	dev     *dev.Server
}

func newServer(cfg *config.Config, logger *slog.Logger) (*server, error) {
	source, err := assetSource(cfg)
	if err != nil {
		return nil, err
	}

	s := &server{}
	opts := pages.Options{
		Assets:      source,
		AssetPrefix: cfg.AssetPrefix,
		StyleSheets: cfg.StyleSheets,
		Logger:      logger,
		DevMode:     cfg.Dev,
		DevPattern:  cfg.HotReloadPattern,
	}
	for _, src := range cfg.Scripts {
		opts.Scripts = append(opts.Scripts, pages.ScriptTag{Src: src})
	}
	if cfg.Dev {
		s.dev = dev.NewServer(dev.Options{Config: cfg, Logger: logger})
		opts.Dev = s.dev.Reload()
	}

	appCfg := cfg.App()
	appCfg.Logger = logger
	s.app = nextgo.New(pages.New(opts), appCfg)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Heartbeat(healthPath))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Prometheus())
	}
	if cfg.Tracing {
		r.Use(middleware.OpenTelemetry())
	}
	r.Use(s.app.Middleware)

	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.Handler())
	}

	// Unmatched requests fall through to the engine untouched.
	r.NotFound(func(http.ResponseWriter, *http.Request) {})
	r.MethodNotAllowed(func(http.ResponseWriter, *http.Request) {})

	s.handler = r
	return s, nil
}

// prepare loads the engine and records how long it took.
func (s *server) prepare(ctx context.Context) error {
	start := time.Now()
	err := s.app.Prepare(ctx)
	middleware.RecordPrepare(time.Since(start), err)
	if err == nil {
		return nil
	}
	if stderrors.Is(err, assets.ErrInvalidManifest) {
		return errors.New("E202").Wrap(err)
	}
	return errors.New("E200").Wrap(err)
}

// assetSource opens the build output: the S3 bucket when configured,
// otherwise BuildDir relative to the configuration file.
func assetSource(cfg *config.Config) (assets.Source, error) {
	if cfg.S3 != nil {
		region := cfg.S3.Region
		if region == "" {
			region = defaultS3Region
		}
		client := assets.NewAnonymousS3Client(region, cfg.S3.Endpoint)
		return assets.NewS3(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	}

	dir := cfg.BuildDir
	if !filepath.IsAbs(dir) && cfg.Dir() != "" {
		dir = filepath.Join(cfg.Dir(), dir)
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, errors.New("E201").Wrap(err).
			WithSuggestion("Build the frontend into " + dir + " or set buildDir.")
	}
	if !fi.IsDir() {
		return nil, errors.New("E201").
			WithDetail(dir + " is not a directory.")
	}
	return assets.NewFS(os.DirFS(dir)), nil
}
