package client

import (
	"log/slog"

	"github.com/xinpianchang/nextgo/pkg/location"
	"github.com/xinpianchang/nextgo/pkg/redirect"
)

// Navigator moves the client to another page.
type Navigator interface {
	// Back goes back in history.
	Back()
	// Push routes to u within the app, displaying as, and adds a history
	// entry.
	Push(u *location.URL, as string)
	// Replace routes to u within the app, displaying as, replacing the
	// current history entry.
	Replace(u *location.URL, as string)
	// Assign leaves the app with a full navigation to href.
	Assign(href string)
}

// follow applies a snapshot redirect instruction.
func follow(n Navigator, in redirect.Instruction) {
	switch {
	case in.Back:
		n.Back()
	case in.CrossOrigin:
		n.Assign(in.As)
	default:
		n.Replace(in.URL, in.As)
	}
}

type logNavigator struct {
	log *slog.Logger
}

func (n logNavigator) Back() { n.log.Info("client: navigate back") }

func (n logNavigator) Push(u *location.URL, as string) {
	n.log.Info("client: navigate push", "url", u.Format(), "as", as)
}

func (n logNavigator) Replace(u *location.URL, as string) {
	n.log.Info("client: navigate replace", "url", u.Format(), "as", as)
}

func (n logNavigator) Assign(href string) { n.log.Info("client: navigate assign", "href", href) }

// =============================================================================
// Initializer redirects
// =============================================================================

// Redirect aborts a page initializer in favour of target and always returns
// a Cancelled result.
//
// On the server it answers the request with a 302 and detaches the render
// context, so the middleware leaves the response alone. On the client it
// navigates: a full navigation for targets on another origin, a pushed
// route otherwise. A Back target returns to the referrer on the server and
// goes back in history on the client.
func (f *Fetcher) Redirect(nav Navigation, target redirect.Target) Result {
	if nav.Server != nil {
		referrer := ""
		if r := nav.Server.Request(); r != nil {
			referrer = redirect.Referrer(r.Header)
		}
		nav.Server.Redirect(redirect.Resolve(target, referrer).Location)
		return Cancelled("redirect")
	}

	n := f.navigator()
	if target.Kind() == redirect.KindBack {
		n.Back()
		return Cancelled("redirect")
	}
	res := redirect.Resolve(target, "")
	if res.URL.IsAbsolute() {
		n.Assign(res.Location)
	} else {
		n.Push(res.URL, res.Location)
	}
	return Cancelled("redirect")
}
