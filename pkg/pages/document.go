package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/xinpianchang/nextgo"
)

// MetaTag is a meta element in the document head.
type MetaTag struct {
	Name     string
	Property string // OpenGraph
	Content  string
}

// ScriptTag is a script element in the document head.
type ScriptTag struct {
	Src    string
	Module bool
	Async  bool // deferred otherwise
}

// nextData is embedded in every document for the browser runtime.
type nextData struct {
	Page    string               `json:"page"`
	Query   url.Values           `json:"query,omitempty"`
	BuildID string               `json:"buildId"`
	Props   map[string]any       `json:"props"`
	Config  *nextgo.PublicConfig `json:"config,omitempty"`
	Err     *errorInfo           `json:"err,omitempty"`
}

type errorInfo struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// document is everything needed to write one HTML response.
type document struct {
	Lang        string
	Title       string
	Meta        []MetaTag
	StyleSheets []string
	Scripts     []ScriptTag
	Body        templ.Component
	Data        nextData
	DevScript   string
}

// write renders a complete HTML document.
func (d *document) write(ctx context.Context, w io.Writer) error {
	lang := d.Lang
	if lang == "" {
		lang = "en"
	}

	if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `<html lang="%s">`+"\n", templ.EscapeString(lang)); err != nil {
		return err
	}
	if err := d.writeHead(w); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "<body>\n<div id=\"__next\">"); err != nil {
		return err
	}
	if d.Body != nil {
		if err := d.Body.Render(ctx, w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</div>\n"); err != nil {
		return err
	}

	// encoding/json escapes <, >, &, U+2028 and U+2029, which keeps the
	// payload inert inside the script element.
	data, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("pages: encode page data: %w", err)
	}
	if _, err := fmt.Fprintf(w, `  <script id="__NEXT_DATA__" type="application/json">%s</script>`+"\n", data); err != nil {
		return err
	}
	if d.DevScript != "" {
		if _, err := fmt.Fprintf(w, "  <script>%s</script>\n", d.DevScript); err != nil {
			return err
		}
	}

	_, err = io.WriteString(w, "</body>\n</html>\n")
	return err
}

func (d *document) writeHead(w io.Writer) error {
	if _, err := io.WriteString(w, "<head>\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `  <meta charset="utf-8">`+"\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `  <meta name="viewport" content="width=device-width, initial-scale=1">`+"\n"); err != nil {
		return err
	}
	if d.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", templ.EscapeString(d.Title)); err != nil {
			return err
		}
	}
	for _, meta := range d.Meta {
		if err := writeMetaTag(w, meta); err != nil {
			return err
		}
	}
	for _, href := range d.StyleSheets {
		if _, err := fmt.Fprintf(w, `  <link rel="stylesheet" href="%s">`+"\n", templ.EscapeString(href)); err != nil {
			return err
		}
	}
	for _, script := range d.Scripts {
		if err := writeScriptTag(w, script); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</head>\n")
	return err
}

func writeMetaTag(w io.Writer, meta MetaTag) error {
	if _, err := io.WriteString(w, "  <meta"); err != nil {
		return err
	}
	if meta.Name != "" {
		if _, err := fmt.Fprintf(w, ` name="%s"`, templ.EscapeString(meta.Name)); err != nil {
			return err
		}
	}
	if meta.Property != "" {
		if _, err := fmt.Fprintf(w, ` property="%s"`, templ.EscapeString(meta.Property)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, ` content="%s">`+"\n", templ.EscapeString(meta.Content)); err != nil {
		return err
	}
	return nil
}

func writeScriptTag(w io.Writer, script ScriptTag) error {
	if _, err := fmt.Fprintf(w, `  <script src="%s"`, templ.EscapeString(script.Src)); err != nil {
		return err
	}
	if script.Module {
		if _, err := io.WriteString(w, ` type="module"`); err != nil {
			return err
		}
	}
	attr := " defer"
	if script.Async {
		attr = " async"
	}
	_, err := io.WriteString(w, attr+"></script>\n")
	return err
}
