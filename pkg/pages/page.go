package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/xinpianchang/nextgo/pkg/client"
)

// Well-known page ids.
const (
	NotFoundPage = "/_404"
	ErrorPage    = "/_error"
)

// Page is a renderable page.
type Page struct {
	// ID names the page. With file-system routing enabled, a request whose
	// path equals the id renders the page.
	ID string

	// Title is the document title unless the state carries a "title" string.
	Title string

	// Load runs before a server render and returns state to merge. Returning
	// a cancelled error (see client.Fetcher.Redirect) stops the render
	// quietly; the response is already handled.
	Load func(ctx context.Context, nav client.Navigation) (map[string]any, error)

	// View builds the page body from the state.
	View func(state map[string]any) templ.Component
}

func (p *Page) title(state map[string]any) string {
	if t, ok := state["title"].(string); ok && t != "" {
		return t
	}
	return p.Title
}

// builtinError is the body of the 404 and error pages when none is
// registered.
func builtinError(status int, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<h1>%d</h1><p>%s</p>", status, templ.EscapeString(message))
		return err
	})
}
