// Package negotiate decides whether a request wants a full HTML document or a
// structured snapshot of the page state.
//
// Two signalling modes exist and exactly one is active per deployment:
//
//   - ModeHeader: the client sends a header (default "X-Requested-With:
//     Next-Fetch"). Responses always declare the header in Vary so that
//     caches keep documents and snapshots for the same URL apart.
//   - ModeParam: the client adds a reserved query parameter (default
//     "next_fetch"); its value is ignored.
//
// Only GET and HEAD requests can negotiate a snapshot.
package negotiate

import (
	"fmt"
	"net/http"
	"strings"
)

// Mode selects how a client signals that it wants a snapshot.
type Mode int

const (
	// ModeNone disables snapshot negotiation.
	ModeNone Mode = iota
	// ModeHeader negotiates with a request header.
	ModeHeader
	// ModeParam negotiates with a reserved query parameter.
	ModeParam
)

// Defaults for the negotiation signal.
const (
	DefaultHeader = "X-Requested-With"
	DefaultValue  = "Next-Fetch"
	DefaultParam  = "next_fetch"
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeHeader:
		return "header"
	case ModeParam:
		return "param"
	default:
		return "none"
	}
}

// ParseMode parses a configuration value. The empty string selects
// ModeHeader, matching the default deployment.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "header":
		return ModeHeader, nil
	case "param":
		return ModeParam, nil
	case "none", "off":
		return ModeNone, nil
	default:
		return ModeNone, fmt.Errorf("negotiate: unknown fetch mode %q", s)
	}
}

// Decide is the pure negotiation rule. headerValue is the received value of
// the negotiation header, want the configured value, and hasParam whether the
// reserved query key is present.
func Decide(mode Mode, method, headerValue string, hasParam bool, want string) bool {
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	switch mode {
	case ModeHeader:
		return headerValue == want
	case ModeParam:
		return hasParam
	default:
		return false
	}
}

// Negotiator applies one negotiation configuration to requests.
type Negotiator struct {
	Mode   Mode
	Header string
	Value  string
	Param  string
}

// New returns a Negotiator for mode with the default signal names.
func New(mode Mode) Negotiator {
	return Negotiator{
		Mode:   mode,
		Header: DefaultHeader,
		Value:  DefaultValue,
		Param:  DefaultParam,
	}
}

func (n Negotiator) header() string {
	if n.Header == "" {
		return DefaultHeader
	}
	return n.Header
}

func (n Negotiator) value() string {
	if n.Value == "" {
		return DefaultValue
	}
	return n.Value
}

func (n Negotiator) param() string {
	if n.Param == "" {
		return DefaultParam
	}
	return n.Param
}

// HeaderName returns the effective negotiation header name.
func (n Negotiator) HeaderName() string { return n.header() }

// HeaderValue returns the effective negotiation header value.
func (n Negotiator) HeaderValue() string { return n.value() }

// ParamName returns the effective reserved query key.
func (n Negotiator) ParamName() string { return n.param() }

// IsSnapshot reports whether r asks for a snapshot. In header mode it also
// adds the negotiation header to the Vary field of h, whatever the answer.
// h may be nil when no response is being prepared.
func (n Negotiator) IsSnapshot(h http.Header, r *http.Request) bool {
	switch n.Mode {
	case ModeHeader:
		if h != nil {
			Vary(h, n.header())
		}
		return Decide(n.Mode, r.Method, r.Header.Get(n.header()), false, n.value())
	case ModeParam:
		_, ok := r.URL.Query()[n.param()]
		return Decide(n.Mode, r.Method, "", ok, "")
	default:
		return false
	}
}

// DeclareVary adds the negotiation header to Vary when the mode needs it.
func (n Negotiator) DeclareVary(h http.Header) {
	if n.Mode == ModeHeader {
		Vary(h, n.header())
	}
}

// Vary appends field to the Vary header unless it is already listed.
// A "*" entry already covers every field.
func Vary(h http.Header, field string) {
	for _, line := range h.Values("Vary") {
		for _, f := range strings.Split(line, ",") {
			f = strings.TrimSpace(f)
			if f == "*" || strings.EqualFold(f, field) {
				return
			}
		}
	}
	h.Add("Vary", field)
}
