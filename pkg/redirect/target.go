package redirect

import (
	"net/http"

	"github.com/xinpianchang/nextgo/pkg/location"
)

// BackSentinel is the literal target and snapshot body meaning "go back".
const BackSentinel = "back"

// Kind tags the Target variant.
type Kind int

const (
	// KindLiteral is a URL string.
	KindLiteral Kind = iota
	// KindStructured is an already parsed location.
	KindStructured
	// KindBack returns to the referring page.
	KindBack
)

// Target is a redirect destination.
type Target struct {
	kind    Kind
	literal string
	url     *location.URL
}

// Literal targets a URL string. The string "back" is not special here; use
// Parse to honour it.
func Literal(s string) Target {
	return Target{kind: KindLiteral, literal: s}
}

// Structured targets a parsed location. The location is copied. A location
// with its Back flag set is the Back target.
func Structured(u *location.URL) Target {
	if u == nil {
		return Literal("/")
	}
	if u.Back {
		return Back()
	}
	return Target{kind: KindStructured, url: u.Clone()}
}

// Back targets the referring page.
func Back() Target {
	return Target{kind: KindBack}
}

// Parse maps a raw target string to a Target: "back" selects Back, the empty
// string selects "/", anything else is a literal.
func Parse(s string) Target {
	switch s {
	case BackSentinel:
		return Back()
	case "":
		return Literal("/")
	default:
		return Literal(s)
	}
}

// Kind returns the variant tag.
func (t Target) Kind() Kind { return t.kind }

// Resolution is the canonical form of a Target.
type Resolution struct {
	// Location is the formatted URL to send the client to.
	Location string
	// URL is the structured location. URL.Back mirrors Back.
	URL *location.URL
	// Back is set when the target was Back.
	Back bool
}

// Resolve converts t into a Resolution. referrer is the value of the
// request's Referer header; Back falls back to "/" when it is empty.
func Resolve(t Target, referrer string) Resolution {
	var u *location.URL
	back := false

	switch t.kind {
	case KindBack:
		back = true
		if referrer == "" {
			referrer = "/"
		}
		u = location.Parse(referrer)
	case KindStructured:
		u = t.url.Clone()
	default:
		s := t.literal
		if s == "" {
			s = "/"
		}
		u = location.Parse(s)
	}

	if back {
		u.Back = true
	}
	return Resolution{
		Location: u.Format(),
		URL:      u,
		Back:     back,
	}
}

// Referrer returns the referring page named by a request header set. Both
// the standard misspelling and "Referrer" are accepted.
func Referrer(h http.Header) string {
	if v := h.Get("Referer"); v != "" {
		return v
	}
	return h.Get("Referrer")
}
