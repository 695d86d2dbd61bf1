package ready

import (
	"context"
	"fmt"
	"sync"
)

// InitFunc prepares a resource. It runs at most once per Gate.
type InitFunc func(ctx context.Context) error

// Gate runs an InitFunc exactly once and lets any number of callers wait for
// its result.
type Gate struct {
	init   InitFunc
	future *Future
	once   sync.Once

	// base is the context handed to init. Request contexts are never used so
	// that a cancelled request cannot fail initialization for everyone else.
	base context.Context
}

// NewGate creates a gate around init. Nothing runs until Start or Wait.
func NewGate(init InitFunc) *Gate {
	return NewGateContext(context.Background(), init)
}

// NewGateContext is like NewGate but runs init with base.
func NewGateContext(base context.Context, init InitFunc) *Gate {
	if base == nil {
		base = context.Background()
	}
	return &Gate{
		init:   init,
		future: NewFuture(),
		base:   base,
	}
}

// Start triggers initialization on first use and returns the gate's future.
// Every call returns the same *Future.
func (g *Gate) Start() *Future {
	g.once.Do(func() {
		go g.run()
	})
	return g.future
}

func (g *Gate) run() {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ready: init panicked: %v", r)
		}
		if err != nil {
			g.future.Fail(err)
			return
		}
		g.future.Complete()
	}()
	if g.init != nil {
		err = g.init(g.base)
	}
}

// Wait starts initialization if needed and blocks until it settles or ctx is
// done.
func (g *Gate) Wait(ctx context.Context) error {
	return g.Start().Wait(ctx)
}

// Future returns the gate's future without starting initialization.
func (g *Gate) Future() *Future {
	return g.future
}
