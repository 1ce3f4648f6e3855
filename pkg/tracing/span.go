// Package tracing provides a lightweight span-based tracing system that
// propagates trace context through Go contexts. Spans form parent/child
// trees and are logged as structured JSON via slog when they end.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span represents a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration

	mu       sync.Mutex
	attrs    map[string]any
	children []*Span
	parent   *Span
}

// StartSpan creates a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	span := &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: time.Now(),
		attrs:     make(map[string]any),
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild creates a child span under the span stored in ctx. When ctx
// carries no span, the child behaves like a root span.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	span := &Span{
		Name:      name,
		StartTime: time.Now(),
		attrs:     make(map[string]any),
		parent:    parent,
	}
	if parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the span stored in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// SetAttr records an attribute on the span.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
}

// End finalises the span. Root spans log the whole tree.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.Duration = time.Since(s.StartTime)
	if s.parent != nil {
		return
	}
	slog.Default().Debug("trace complete",
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"tree", s.tree(),
	)
}

func (s *Span) tree() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	node := map[string]any{
		"name":        s.Name,
		"duration_ms": s.Duration.Milliseconds(),
	}
	for k, v := range s.attrs {
		node[k] = v
	}
	if len(s.children) > 0 {
		children := make([]map[string]any, 0, len(s.children))
		for _, child := range s.children {
			children = append(children, child.tree())
		}
		node["children"] = children
	}
	return node
}
