package layout

import (
	"fmt"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// Stack is a composed layout sequence. A Composer hands out one Stack per
// ordered sequence, so pages sharing a sequence share the Stack value and
// its layout instances.
type Stack struct {
	layouts []*Layout
	key     string
}

// Layouts returns the layouts of the stack, outermost first.
func (s *Stack) Layouts() []*Layout {
	out := make([]*Layout, len(s.layouts))
	copy(out, s.layouts)
	return out
}

// Key identifies the ordered sequence.
func (s *Stack) Key() string { return s.key }

// Len returns the depth of the stack.
func (s *Stack) Len() int { return len(s.layouts) }

// Wrap nests page inside the stack.
func (s *Stack) Wrap(page templ.Component) templ.Component {
	return Compose(page, s.layouts)
}

// Composer caches stacks by ordered layout sequence.
type Composer struct {
	mu     sync.Mutex
	stacks map[string]*Stack
}

// NewComposer returns an empty composer.
func NewComposer() *Composer {
	return &Composer{stacks: make(map[string]*Stack)}
}

// Stack returns the cached stack for layouts, creating it on first use.
func (c *Composer) Stack(layouts []*Layout) *Stack {
	key := stackKey(layouts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stacks == nil {
		c.stacks = make(map[string]*Stack)
	}
	if s, ok := c.stacks[key]; ok {
		return s
	}
	s := &Stack{layouts: append([]*Layout(nil), layouts...), key: key}
	c.stacks[key] = s
	return s
}

// Compose nests page inside the cached stack for layouts.
func (c *Composer) Compose(page templ.Component, layouts []*Layout) templ.Component {
	return c.Stack(layouts).Wrap(page)
}

// Len returns the number of cached stacks.
func (c *Composer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stacks)
}

func stackKey(layouts []*Layout) string {
	var b strings.Builder
	for i, l := range layouts {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%s@%p", l.Name, l)
	}
	return b.String()
}
