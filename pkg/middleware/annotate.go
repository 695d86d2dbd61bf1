package middleware

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OutcomeNone labels requests no render operation reported on.
const OutcomeNone = "none"

type outcomeSlot struct {
	mu      sync.Mutex
	outcome string
}

func (s *outcomeSlot) set(outcome string) {
	s.mu.Lock()
	s.outcome = outcome
	s.mu.Unlock()
}

func (s *outcomeSlot) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == "" {
		return OutcomeNone
	}
	return s.outcome
}

type slotKey struct{}

// withSlot returns ctx carrying an outcome slot, reusing one installed by an
// outer middleware.
func withSlot(ctx context.Context) (context.Context, *outcomeSlot) {
	if s, ok := ctx.Value(slotKey{}).(*outcomeSlot); ok {
		return ctx, s
	}
	s := &outcomeSlot{}
	return context.WithValue(ctx, slotKey{}, s), s
}

// Annotate reports the render outcome of the request ctx belongs to. It is
// a no-op without an observing middleware.
func Annotate(ctx context.Context, outcome string) {
	if s, ok := ctx.Value(slotKey{}).(*outcomeSlot); ok {
		s.set(outcome)
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("nextgo.outcome", outcome))
	}
}

// OutcomeFrom returns the outcome reported so far, or OutcomeNone.
func OutcomeFrom(ctx context.Context) string {
	if s, ok := ctx.Value(slotKey{}).(*outcomeSlot); ok {
		return s.get()
	}
	return OutcomeNone
}
