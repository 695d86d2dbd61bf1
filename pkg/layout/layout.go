// Package layout keeps persistent layouts attached to pages and nests page
// views inside them.
//
// Layouts are registered against a page identity before serving:
//
//	var Layouts layout.Registry[*pages.Page]
//
//	var Home = Layouts.With(Shell, Sidebar)(&pages.Page{ID: "/"})
//
// Association accumulates: applying With again places the new layouts
// outside the existing ones and drops duplicates, keeping the first
// occurrence. The first layout of a stack is the outermost one.
package layout

import (
	"context"
	"io"
	"sync"

	"github.com/a-h/templ"
)

// Layout is a named shell component. The shell renders the wrapped content
// with templ.GetChildren, the same way a templ component renders
// { children... }.
type Layout struct {
	Name  string
	Shell templ.Component
}

// New returns a layout.
func New(name string, shell templ.Component) *Layout {
	return &Layout{Name: name, Shell: shell}
}

// Registry associates ordered layout stacks with page identities. The zero
// value is ready to use. Populate it before serving; reads are safe from
// any goroutine.
type Registry[P comparable] struct {
	mu      sync.RWMutex
	layouts map[P][]*Layout
}

// With returns a function that attaches layouts to a page and returns the
// page unchanged.
func (r *Registry[P]) With(layouts ...*Layout) func(P) P {
	return func(page P) P {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.layouts == nil {
			r.layouts = make(map[P][]*Layout)
		}
		stack := make([]*Layout, 0, len(layouts)+len(r.layouts[page]))
		stack = append(stack, layouts...)
		stack = append(stack, r.layouts[page]...)
		r.layouts[page] = unique(stack)
		return page
	}
}

// Layouts returns a copy of the stack attached to page, outermost first.
func (r *Registry[P]) Layouts(page P) []*Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stack := r.layouts[page]
	if len(stack) == 0 {
		return nil
	}
	out := make([]*Layout, len(stack))
	copy(out, stack)
	return out
}

// Compose nests view inside the layouts attached to page.
func (r *Registry[P]) Compose(page P, view templ.Component) templ.Component {
	return Compose(view, r.Layouts(page))
}

func unique(stack []*Layout) []*Layout {
	seen := make(map[*Layout]struct{}, len(stack))
	out := stack[:0]
	for _, l := range stack {
		if l == nil {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Compose nests page inside layouts, the first layout outermost. With no
// layouts the page is returned as is.
func Compose(page templ.Component, layouts []*Layout) templ.Component {
	c := page
	for i := len(layouts) - 1; i >= 0; i-- {
		c = wrap(layouts[i], c)
	}
	return c
}

func wrap(l *Layout, child templ.Component) templ.Component {
	inner := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return child.Render(templ.ClearChildren(ctx), w)
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if l.Shell == nil {
			return inner.Render(ctx, w)
		}
		return l.Shell.Render(templ.WithChildren(ctx, inner), w)
	})
}

// Retained returns how many layouts, counted from the outermost, survive a
// navigation from a page with stack prev to one with stack next.
func Retained(prev, next []*Layout) int {
	n := 0
	for n < len(prev) && n < len(next) && prev[n] == next[n] {
		n++
	}
	return n
}
