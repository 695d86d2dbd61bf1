package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/xinpianchang/nextgo/pkg/negotiate"
	"github.com/xinpianchang/nextgo/pkg/redirect"
)

// Accept headers sent with snapshot requests.
const (
	AcceptJSON    = "application/json, */*;q=0.8"
	AcceptMsgPack = "application/x-msgpack, application/json;q=0.9, */*;q=0.8"
)

// MaxBodyBytes bounds snapshot bodies read by the fetcher.
const MaxBodyBytes = 10 << 20

// ServerContext is the part of the server render context a page
// initializer needs. *nextgo.Context implements it.
type ServerContext interface {
	HeaderSent() bool
	Writable() bool
	Vary(field string)
	State() map[string]any
	Request() *http.Request
	Redirect(to string)
}

// Navigation describes where an initializer runs. Server is set during a
// server render; AsPath is the displayed location during client navigation.
type Navigation struct {
	Server ServerContext
	AsPath string
}

// Options tunes a single fetch.
type Options struct {
	// DisableSSR ignores the server state and yields an empty state on the
	// server, leaving the fetch to the client.
	DisableSSR bool

	// MsgPack asks for MessagePack snapshots.
	MsgPack bool

	// Header holds extra request headers. The negotiation header always
	// wins over an entry here.
	Header http.Header

	// OnError turns an error response into a state. body is the decoded
	// snapshot, or the raw text when it was not decodable.
	OnError func(body any, resp *http.Response) (any, error)
}

// Config mirrors the public negotiation settings the server publishes.
type Config struct {
	Fetch  string `json:"fetch"`
	Header string `json:"header,omitempty"`
	Value  string `json:"value,omitempty"`
	Param  string `json:"param,omitempty"`
}

// Fetcher performs snapshot fetches against one server.
type Fetcher struct {
	// HTTPClient sends requests. Its cookie jar carries credentials and its
	// redirect policy follows HTTP redirects. Default: http.DefaultClient.
	HTTPClient *http.Client

	// BaseURL is prefixed to navigation paths.
	BaseURL string

	Negotiator negotiate.Negotiator

	// Navigator follows snapshot redirects. Default: a navigator that only
	// logs.
	Navigator Navigator

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New returns a Fetcher for baseURL using the published settings cfg. An
// unknown mode falls back to header negotiation.
func New(baseURL string, cfg Config) *Fetcher {
	mode, err := negotiate.ParseMode(cfg.Fetch)
	if err != nil {
		mode = negotiate.ModeHeader
	}
	return &Fetcher{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Negotiator: negotiate.Negotiator{
			Mode:   mode,
			Header: cfg.Header,
			Value:  cfg.Value,
			Param:  cfg.Param,
		},
	}
}

func (f *Fetcher) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func (f *Fetcher) navigator() Navigator {
	if f.Navigator != nil {
		return f.Navigator
	}
	return logNavigator{log: f.logger()}
}

// =============================================================================
// GetInitialState
// =============================================================================

// GetInitialState returns the state for a page initializer.
//
// On the server it copies the render state and declares the negotiation
// header in Vary. On the client it fetches nav.AsPath as a snapshot: a
// redirect instruction is followed and yields Cancelled; an error status
// yields Failed with a *RemoteError unless opts.OnError produces a state.
// With neither a server context nor a path the state is empty.
func (f *Fetcher) GetInitialState(ctx context.Context, nav Navigation, opts Options) Result {
	if nav.Server != nil {
		state := map[string]any{}
		if opts.DisableSSR {
			return Resolved(state)
		}
		if f.Negotiator.Mode == negotiate.ModeHeader && !nav.Server.HeaderSent() && nav.Server.Writable() {
			nav.Server.Vary(f.Negotiator.HeaderName())
		}
		maps.Copy(state, nav.Server.State())
		return Resolved(state)
	}
	if nav.AsPath == "" {
		return Resolved(map[string]any{})
	}
	return f.fetch(ctx, nav.AsPath, opts)
}

func (f *Fetcher) fetch(ctx context.Context, asPath string, opts Options) Result {
	target, err := f.snapshotURL(asPath)
	if err != nil {
		return Failed(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Failed(fmt.Errorf("client: build request: %w", err))
	}
	if opts.MsgPack {
		req.Header.Set("Accept", AcceptMsgPack)
	} else {
		req.Header.Set("Accept", AcceptJSON)
	}
	for k, vs := range opts.Header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if f.Negotiator.Mode == negotiate.ModeHeader {
		req.Header.Set(f.Negotiator.HeaderName(), f.Negotiator.HeaderValue())
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return Failed(fmt.Errorf("client: fetch %s: %w", asPath, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return Failed(fmt.Errorf("client: read %s: %w", asPath, err))
	}
	contentType := resp.Header.Get("Content-Type")

	if cl := resp.Header.Get("Content-Location"); cl != "" {
		in, err := redirect.Interpret(cl, raw, contentType)
		if err != nil {
			return Failed(err)
		}
		f.logger().Debug("client: following snapshot redirect", "from", asPath, "to", in.String())
		follow(f.navigator(), in)
		return Cancelled("redirect")
	}

	body := decodeBody(raw, contentType)
	if resp.StatusCode >= http.StatusBadRequest {
		if opts.OnError != nil {
			state, err := opts.OnError(body, resp)
			if err != nil {
				return Failed(err)
			}
			return Resolved(state)
		}
		return Failed(remoteError(resp.StatusCode, body))
	}
	return Resolved(body)
}

// snapshotURL joins the base URL and path; param mode sets the reserved key
// to "json", replacing only that key.
func (f *Fetcher) snapshotURL(asPath string) (string, error) {
	u, err := url.Parse(f.BaseURL + asPath)
	if err != nil {
		return "", fmt.Errorf("client: invalid path %q: %w", asPath, err)
	}
	if f.Negotiator.Mode == negotiate.ModeParam {
		q := u.Query()
		q.Set(f.Negotiator.ParamName(), "json")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// decodeBody decodes a snapshot, falling back to the raw text.
func decodeBody(raw []byte, contentType string) any {
	var v any
	if codec, ok := negotiate.CodecForContentType(contentType); ok {
		if codec.Unmarshal(raw, &v) == nil {
			return v
		}
	}
	if negotiate.JSON.Unmarshal(raw, &v) == nil {
		return v
	}
	return string(raw)
}

func remoteError(status int, body any) *RemoteError {
	re := &RemoteError{StatusCode: status, Message: http.StatusText(status)}
	m, ok := body.(map[string]any)
	if !ok {
		return re
	}
	for k, v := range m {
		switch k {
		case "message":
			if s, ok := v.(string); ok && s != "" {
				re.Message = s
			}
		case "code":
			if s, ok := v.(string); ok {
				re.Code = s
			}
		default:
			if re.Data == nil {
				re.Data = make(map[string]any)
			}
			re.Data[k] = v
		}
	}
	return re
}
