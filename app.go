package nextgo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/xinpianchang/nextgo/pkg/ready"
)

// =============================================================================
// App Type
// =============================================================================

// App binds an Engine to the dispatch middleware.
//
// Create an App with nextgo.New and mount App.Middleware on the router:
//
//	app := nextgo.New(engine, nextgo.DefaultConfig())
//	go app.Prepare(context.Background()) // optional warm-up
//
//	r := chi.NewRouter()
//	r.Use(app.Middleware)
//
// Requests arriving before the engine is prepared wait for it; preparation
// runs once per App.
type App struct {
	engine Engine
	config Config
	logger *slog.Logger
	gate   *ready.Gate

	extendOnce sync.Once
	caps       *capabilities
}

// New creates an App. It panics on an invalid configuration; call
// Config.Validate first to handle that as an error.
func New(engine Engine, cfg Config) *App {
	if engine == nil {
		panic("nextgo: nil engine")
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	cfg = cfg.withDefaults()

	return &App{
		engine: engine,
		config: cfg,
		logger: cfg.Logger,
		gate:   ready.NewGate(engine.Prepare),
	}
}

// Prepare starts engine preparation if needed and waits for it. Every call
// observes the same outcome; a failed preparation is not retried.
func (a *App) Prepare(ctx context.Context) error {
	if err := a.gate.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrEngineNotReady, err)
	}
	return nil
}

// Ready returns the readiness future, starting preparation if needed.
func (a *App) Ready() *ready.Future {
	return a.gate.Start()
}

// Config returns the resolved configuration.
func (a *App) Config() Config { return a.config }

// Engine returns the engine.
func (a *App) Engine() Engine { return a.engine }

// =============================================================================
// Middleware
// =============================================================================

// Middleware returns the dispatch middleware.
//
// For every request it waits for the engine, binds a Context, and then:
//
//   - serves the reserved asset prefixes (/static/, /_next/) through the
//     engine, or 404s unknown extensions there;
//   - otherwise runs next and, when nothing addressed the response, hands the
//     request to the engine (or 404s when UseFileSystemPublicRoutes is off);
//   - turns errors recorded by Handle handlers and panics into error
//     responses while the response is unaddressed, and reports them through
//     Config.OnError otherwise.
func (a *App) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Prepare(r.Context()); err != nil {
			if r.Context().Err() != nil {
				// The client went away while waiting.
				return
			}
			a.onError(w, r, nil, err)
			return
		}

		c := newContext(w, r, a.extend())
		a.serve(c, next)
	})
}

// ServeHTTP serves requests with the engine alone, as Middleware with no
// downstream handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Middleware(nil).ServeHTTP(w, r)
}

func (a *App) serve(c *Context, next http.Handler) {
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			a.fail(c, &PanicError{Value: p, Stack: debug.Stack()})
		}
	}()

	if isReservedPath(c.r.URL.Path) {
		if err := a.serveAsset(c); err != nil {
			a.fail(c, err)
		}
		return
	}

	if next != nil {
		next.ServeHTTP(c.w, c.r)
	}
	if c.err != nil {
		a.fail(c, c.err)
		return
	}

	if c.Addressed() {
		return
	}
	var err error
	if a.config.UseFileSystemPublicRoutes {
		err = c.HandleNext(nil)
	} else {
		err = c.Render404(nil)
	}
	if err != nil {
		a.fail(c, err)
	}
}

// fail converts err into an error response while the response is still
// unaddressed, and hands it to OnError otherwise.
func (a *App) fail(c *Context, err error) {
	log := c.Logger()
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("nextgo: request failed", "error", err, "path", c.originalURI, "status", status)
	} else {
		log.Debug("nextgo: request failed", "error", err, "path", c.originalURI, "status", status)
	}

	if !c.Addressed() {
		rerr := c.RenderError(err, nil, nil)
		if rerr == nil {
			return
		}
		err = errors.Join(err, fmt.Errorf("nextgo: render error page: %w", rerr))
	}
	a.onError(c.w, c.r, c, err)
}

func (a *App) onError(w http.ResponseWriter, r *http.Request, c *Context, err error) {
	if a.config.OnError != nil {
		a.config.OnError(w, r, c, err)
		return
	}

	if c == nil {
		a.logger.Error("nextgo: engine preparation failed", "error", err, "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	c.Logger().Error("nextgo: unhandled error", "error", err, "path", c.originalURI)
	if !c.HeaderSent() && c.Writable() {
		status := StatusOf(err)
		if errors.Is(err, ErrEngineNotReady) {
			status = http.StatusServiceUnavailable
		}
		http.Error(c.w, http.StatusText(status), status)
	}
}
