package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/xinpianchang/nextgo"
	"github.com/xinpianchang/nextgo/pkg/assets"
	"github.com/xinpianchang/nextgo/pkg/client"
	"github.com/xinpianchang/nextgo/pkg/layout"
	"github.com/xinpianchang/nextgo/pkg/location"
	"github.com/xinpianchang/nextgo/pkg/negotiate"
	"github.com/xinpianchang/nextgo/pkg/routepath"
)

// ErrUnknownPage is returned when a render names a page that was never
// registered.
var ErrUnknownPage = errors.New("pages: unknown page")

// DefaultDevScript reloads the document when the hot-reload socket reports a
// change, or only the stylesheets when the message is "css".
const DefaultDevScript = `(function(){var p=location.protocol==="https:"?"wss:":"ws:";` +
	`var s=new WebSocket(p+"//"+location.host+"/_next/hot-reload");` +
	`s.onmessage=function(e){if(e.data==="reload")location.reload();` +
	`else if(e.data==="css")document.querySelectorAll('link[rel="stylesheet"]').forEach(function(l){` +
	`var u=new URL(l.href);u.searchParams.set("_reload",Date.now());l.href=u.toString()})};})();`

// Options configures an Engine.
type Options struct {
	// Pages are the renderable pages. Ids must be unique.
	Pages []*Page

	// Layouts holds the layout stacks attached to pages. Optional.
	Layouts *layout.Registry[*Page]

	// Assets is the build output served under /_next/ and /static/. It may
	// contain a build-manifest.json. Optional.
	Assets assets.Source

	// BuildID overrides the manifest's build id. With neither, a random id
	// is generated.
	BuildID string

	// AssetPrefix is prepended to asset URLs in documents.
	AssetPrefix string

	// StyleSheets and Scripts are logical asset names resolved through the
	// manifest and referenced by every document.
	StyleSheets []string
	Scripts     []ScriptTag

	// Meta is added to every document head.
	Meta []MetaTag

	// Languages are the document languages, preferred first. The request's
	// Accept-Language picks one. Defaults to English.
	Languages []language.Tag

	Logger *slog.Logger

	// DevMode disables asset caching, reveals error messages in error
	// pages and adds DevScript to documents.
	DevMode   bool
	DevScript string

	// Dev serves the hot-reload endpoints matched by DevPattern in
	// DevMode.
	Dev        http.Handler
	DevPattern string
}

// Engine renders Pages as HTML documents. It implements nextgo.Engine.
type Engine struct {
	opts   Options
	logger *slog.Logger

	pages    map[string]*Page
	composer *layout.Composer
	matcher  language.Matcher
	langs    []language.Tag
	devPaths *regexp.Regexp

	buildID     string
	resolver    assets.Resolver
	static      *assets.Server
	styleSheets []string
	scripts     []ScriptTag
}

var _ nextgo.Engine = (*Engine)(nil)

// New returns an engine. Nothing is loaded until Prepare.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	langs := opts.Languages
	if len(langs) == 0 {
		langs = []language.Tag{language.English}
	}
	if opts.DevMode && opts.DevScript == "" {
		opts.DevScript = DefaultDevScript
	}
	if opts.DevPattern == "" {
		opts.DevPattern = nextgo.DefaultHotReloadPattern
	}
	return &Engine{
		opts:     opts,
		logger:   logger,
		composer: layout.NewComposer(),
		matcher:  language.NewMatcher(langs),
		langs:    langs,
	}
}

// Prepare indexes the pages and loads the build manifest.
func (e *Engine) Prepare(ctx context.Context) error {
	devPaths, err := regexp.Compile(e.opts.DevPattern)
	if err != nil {
		return fmt.Errorf("pages: dev pattern: %w", err)
	}
	e.devPaths = devPaths

	e.pages = make(map[string]*Page, len(e.opts.Pages))
	for _, p := range e.opts.Pages {
		if p == nil || p.ID == "" {
			return errors.New("pages: page without id")
		}
		if !routepath.IsCanonical(p.ID) {
			return fmt.Errorf("pages: page id %q is not a canonical path", p.ID)
		}
		if _, dup := e.pages[p.ID]; dup {
			return fmt.Errorf("pages: duplicate page %q", p.ID)
		}
		e.pages[p.ID] = p
	}

	manifest := assets.NewManifest("")
	if e.opts.Assets != nil {
		manifest, err = assets.LoadOptional(ctx, e.opts.Assets)
		if err != nil {
			return err
		}
		e.static = &assets.Server{Source: e.opts.Assets, Dev: e.opts.DevMode}
	}

	e.buildID = e.opts.BuildID
	if e.buildID == "" {
		e.buildID = manifest.BuildID()
	}
	if e.buildID == "" {
		e.buildID = uuid.NewString()
	}

	if e.opts.DevMode {
		e.resolver = assets.NewPassthroughResolver(e.opts.AssetPrefix)
	} else {
		e.resolver = assets.NewResolver(manifest, e.opts.AssetPrefix)
	}
	e.styleSheets = make([]string, 0, len(e.opts.StyleSheets))
	for _, name := range e.opts.StyleSheets {
		e.styleSheets = append(e.styleSheets, e.resolver.Asset(name))
	}
	e.scripts = make([]ScriptTag, 0, len(e.opts.Scripts))
	for _, s := range e.opts.Scripts {
		s.Src = e.resolver.Asset(s.Src)
		e.scripts = append(e.scripts, s)
	}

	e.logger.Info("pages: prepared",
		"build_id", e.buildID,
		"pages", len(e.pages),
		"assets", manifest.Len())
	return nil
}

// BuildID returns the id of the build being served.
func (e *Engine) BuildID() string { return e.buildID }

// =============================================================================
// nextgo.Engine
// =============================================================================

func (e *Engine) RenderPage(w http.ResponseWriter, r *http.Request, pageID string, query url.Values, _ *location.URL) error {
	page, err := e.page(pageID)
	if err != nil {
		return err
	}
	state, ok, err := e.load(r, page)
	if err != nil || !ok {
		return err
	}
	body, err := e.render(r, page, pageID, query, state, nil)
	if err != nil {
		return err
	}
	return writeHTML(w, 0, body)
}

func (e *Engine) Render404(w http.ResponseWriter, r *http.Request, _ *location.URL) error {
	body, err := e.render404(r)
	if err != nil {
		return err
	}
	return writeHTML(w, 0, body)
}

func (e *Engine) RenderErrorPage(err error, w http.ResponseWriter, r *http.Request, errorPageID string, query url.Values) error {
	status := http.StatusInternalServerError
	if c := nextgo.FromRequest(r); c != nil {
		status = c.StatusCode()
	} else if err != nil {
		status = nextgo.StatusOf(err)
	}
	body, rerr := e.renderError(err, status, r, errorPageID, query)
	if rerr != nil {
		return rerr
	}
	return writeHTML(w, 0, body)
}

func (e *Engine) RenderToHTML(r *http.Request, pageID string, query url.Values) (string, error) {
	page, err := e.page(pageID)
	if err != nil {
		return "", err
	}
	state, ok, err := e.load(r, page)
	if err != nil || !ok {
		return "", err
	}
	body, err := e.render(r, page, pageID, query, state, nil)
	return string(body), err
}

func (e *Engine) RenderErrorToHTML(err error, r *http.Request, errorPageID string, query url.Values) (string, error) {
	status := http.StatusInternalServerError
	if err != nil {
		status = nextgo.StatusOf(err)
	}
	body, rerr := e.renderError(err, status, r, errorPageID, query)
	return string(body), rerr
}

// HandleRequest serves hot-reload endpoints in DevMode, build assets under
// /_next/ and /static/, and pages whose id equals the request path. Anything
// else gets the 404 page.
func (e *Engine) HandleRequest(w http.ResponseWriter, r *http.Request, _ *location.URL) error {
	path := r.URL.Path

	if e.opts.DevMode && e.opts.Dev != nil && e.devPaths.MatchString(path) {
		e.opts.Dev.ServeHTTP(w, r)
		return nil
	}

	if strings.HasPrefix(path, "/_next/") || strings.HasPrefix(path, "/static/") {
		if e.static != nil {
			err := e.static.Serve(w, r)
			if !errors.Is(err, assets.ErrNotFound) {
				return err
			}
		}
		return e.notFound(w, r)
	}

	page, canonical, ok := e.lookup(r)
	if !ok {
		return e.notFound(w, r)
	}
	if canonical != r.URL.EscapedPath() {
		target := canonical
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
		return nil
	}

	state, ok, err := e.load(r, page)
	if err != nil || !ok {
		return err
	}
	if c := nextgo.FromRequest(r); c != nil && c.IsSnapshot() {
		return negotiate.Write(w, negotiate.CodecFor(r), http.StatusOK, state)
	}
	body, err := e.render(r, page, page.ID, r.URL.Query(), state, nil)
	if err != nil {
		return err
	}
	return writeHTML(w, http.StatusOK, body)
}

// lookup finds the page a request path names once canonicalized. Reserved
// pages are not routable.
func (e *Engine) lookup(r *http.Request) (*Page, string, bool) {
	canonical, err := routepath.Canonicalize(r.URL.EscapedPath())
	if err != nil {
		return nil, "", false
	}
	id, err := url.PathUnescape(canonical)
	if err != nil || isReserved(id) {
		return nil, "", false
	}
	page, ok := e.pages[id]
	return page, canonical, ok
}

// =============================================================================
// Rendering
// =============================================================================

func (e *Engine) page(id string) (*Page, error) {
	if p, ok := e.pages[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownPage, id)
}

// load runs the page initializer and returns the request state. ok is false
// when the initializer cancelled the render; the response is then already
// handled.
func (e *Engine) load(r *http.Request, page *Page) (map[string]any, bool, error) {
	c := nextgo.FromRequest(r)
	if page.Load == nil {
		return stateOf(c), true, nil
	}

	nav := client.Navigation{AsPath: r.URL.RequestURI()}
	if c != nil {
		nav.Server = c
	}
	data, err := page.Load(r.Context(), nav)
	if client.IsCancelled(err) {
		e.logger.Debug("pages: render cancelled", "page", page.ID, "reason", err)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pages: load %s: %w", page.ID, err)
	}
	if c == nil {
		return data, true, nil
	}
	c.Merge(data)
	return c.State(), true, nil
}

func stateOf(c *nextgo.Context) map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return c.State()
}

func (e *Engine) render(r *http.Request, page *Page, pageID string, query url.Values, state map[string]any, errInfo *errorInfo) ([]byte, error) {
	var view templ.Component = templ.NopComponent
	if page.View != nil {
		view = page.View(state)
	}
	if e.opts.Layouts != nil {
		view = e.composer.Compose(view, e.opts.Layouts.Layouts(page))
	}
	return e.document(r, page.title(state), view, nextData{
		Page:  pageID,
		Query: query,
		Props: state,
		Err:   errInfo,
	})
}

func (e *Engine) render404(r *http.Request) ([]byte, error) {
	state := stateOf(nextgo.FromRequest(r))
	if page, ok := e.pages[NotFoundPage]; ok {
		return e.render(r, page, NotFoundPage, nil, state, nil)
	}
	return e.document(r, "404: This page could not be found", builtinError(http.StatusNotFound, "This page could not be found."), nextData{
		Page:  NotFoundPage,
		Props: state,
	})
}

func (e *Engine) renderError(err error, status int, r *http.Request, errorPageID string, query url.Values) ([]byte, error) {
	c := nextgo.FromRequest(r)
	info := &errorInfo{StatusCode: status, Message: e.errorMessage(c, err, status)}

	props := make(map[string]any)
	maps.Copy(props, stateOf(c))
	if _, ok := props["statusCode"]; !ok {
		props["statusCode"] = info.StatusCode
	}
	if _, ok := props["message"]; !ok {
		props["message"] = info.Message
	}

	if errorPageID == "" {
		errorPageID = ErrorPage
	}
	if page, ok := e.pages[errorPageID]; ok {
		return e.render(r, page, errorPageID, query, props, info)
	}
	return e.document(r, fmt.Sprintf("%d: %s", status, info.Message), builtinError(status, info.Message), nextData{
		Page:  errorPageID,
		Query: query,
		Props: props,
		Err:   info,
	})
}

// errorMessage reveals err's message in DevMode or when err is exposable.
func (e *Engine) errorMessage(c *nextgo.Context, err error, status int) string {
	reveal := e.opts.DevMode || (c != nil && c.DevMode())
	if !reveal {
		var ex nextgo.Exposable
		reveal = errors.As(err, &ex) && ex.Exposed()
	}
	if err != nil && reveal && err.Error() != "" {
		return err.Error()
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Server Internal Error"
}

func (e *Engine) document(r *http.Request, title string, body templ.Component, data nextData) ([]byte, error) {
	data.BuildID = e.buildID
	if data.Props == nil {
		data.Props = map[string]any{}
	}
	if cfg, ok := nextgo.PublicConfigFrom(r); ok {
		data.Config = &cfg
	}

	doc := &document{
		Lang:        e.lang(r),
		Title:       title,
		Meta:        e.opts.Meta,
		StyleSheets: e.styleSheets,
		Scripts:     e.scripts,
		Body:        body,
		Data:        data,
	}
	if e.opts.DevMode {
		doc.DevScript = e.opts.DevScript
	}

	var buf bytes.Buffer
	if err := doc.write(r.Context(), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Engine) lang(r *http.Request) string {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return e.langs[0].String()
	}
	_, idx, _ := e.matcher.Match(tags...)
	return e.langs[idx].String()
}

func (e *Engine) notFound(w http.ResponseWriter, r *http.Request) error {
	if c := nextgo.FromRequest(r); c != nil && c.IsSnapshot() {
		return negotiate.Write(w, negotiate.CodecFor(r), http.StatusNotFound, map[string]any{"message": "Not Found"})
	}
	body, err := e.render404(r)
	if err != nil {
		return err
	}
	return writeHTML(w, http.StatusNotFound, body)
}

// isReserved reports whether id names a page that is only rendered on
// demand, never routed.
func isReserved(id string) bool {
	return id == NotFoundPage || id == ErrorPage
}

// writeHTML writes a document. A zero status leaves the status to w.
func writeHTML(w http.ResponseWriter, status int, body []byte) error {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	if status != 0 {
		w.WriteHeader(status)
	}
	_, err := w.Write(body)
	return err
}
