// Package location models the parsed URL shared by the render operations and
// the redirect protocol.
//
// A URL keeps the fields of a parsed request or redirect target in the shape
// clients receive them (protocol with its trailing colon, search with its
// leading question mark). AsPath, when set, is the literal path the client
// displayed and wins over Pathname+Search whenever a location string is
// produced.
package location

import (
	"net/http"
	"net/url"
	"strings"
)

// URL is a parsed location.
type URL struct {
	Protocol string     `json:"protocol,omitempty" msgpack:"protocol,omitempty"`
	Host     string     `json:"host,omitempty" msgpack:"host,omitempty"`
	Hostname string     `json:"hostname,omitempty" msgpack:"hostname,omitempty"`
	Port     string     `json:"port,omitempty" msgpack:"port,omitempty"`
	Pathname string     `json:"pathname" msgpack:"pathname"`
	Search   string     `json:"search,omitempty" msgpack:"search,omitempty"`
	Query    url.Values `json:"query,omitempty" msgpack:"query,omitempty"`
	Hash     string     `json:"hash,omitempty" msgpack:"hash,omitempty"`
	AsPath   string     `json:"asPath,omitempty" msgpack:"asPath,omitempty"`
	Back     bool       `json:"back,omitempty" msgpack:"back,omitempty"`
}

// Parse parses a raw URL or request URI. It never fails: input that net/url
// rejects is kept verbatim as the pathname.
func Parse(raw string) *URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &URL{Pathname: raw, Query: url.Values{}}
	}
	return FromURL(u)
}

// FromURL converts a net/url URL.
func FromURL(u *url.URL) *URL {
	out := &URL{
		Host:     u.Host,
		Hostname: u.Hostname(),
		Port:     u.Port(),
		Pathname: u.EscapedPath(),
		Query:    u.Query(),
	}
	if u.Scheme != "" {
		out.Protocol = u.Scheme + ":"
	}
	if out.Pathname == "" && u.Host != "" {
		out.Pathname = "/"
	}
	if u.RawQuery != "" || u.ForceQuery {
		out.Search = "?" + u.RawQuery
	}
	if u.Fragment != "" {
		out.Hash = "#" + u.EscapedFragment()
	}
	return out
}

// FromRequest parses the request URI of r as the client sent it.
func FromRequest(r *http.Request) *URL {
	if r.RequestURI != "" {
		return Parse(r.RequestURI)
	}
	return FromURL(r.URL)
}

// Path returns the path component: pathname plus search.
func (u *URL) Path() string {
	return u.Pathname + u.search()
}

func (u *URL) search() string {
	if u.Search != "" {
		return u.Search
	}
	if len(u.Query) > 0 {
		return "?" + u.Query.Encode()
	}
	return ""
}

// Origin returns "protocol//host" for absolute URLs and "" otherwise.
func (u *URL) Origin() string {
	if u.Host == "" {
		return u.Protocol
	}
	return u.Protocol + "//" + u.Host
}

// IsAbsolute reports whether the URL names a host or protocol, i.e. whether
// following it may leave the current origin.
func (u *URL) IsAbsolute() bool {
	return u.Host != "" || u.Protocol != ""
}

// Format returns the effective location string. AsPath takes precedence over
// the pathname and search; the origin is kept for absolute URLs.
func (u *URL) Format() string {
	if u.AsPath != "" {
		return u.Origin() + u.AsPath
	}
	return u.Origin() + u.Path() + u.Hash
}

// RequestURL returns the URL to install on an *http.Request for the path
// component of u.
func (u *URL) RequestURL() *url.URL {
	p := u.Path()
	if u.AsPath != "" {
		p = u.AsPath
	}
	parsed, err := url.ParseRequestURI(p)
	if err != nil {
		return &url.URL{Path: u.Pathname, RawQuery: strings.TrimPrefix(u.search(), "?")}
	}
	return parsed
}

// Clone returns a deep copy of u.
func (u *URL) Clone() *URL {
	if u == nil {
		return nil
	}
	out := *u
	if u.Query != nil {
		out.Query = make(url.Values, len(u.Query))
		for k, v := range u.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}
	return &out
}
