/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Tracer creates traces and receives them once they complete.
type Tracer interface {
	// NewTrace starts a trace for an invocation against model.
	NewTrace(ctx context.Context, model string) *Trace
	// RecordTrace records a completed trace.
	RecordTrace(trace *Trace)
}

type tracerKey struct{}

// WithTracer returns a new context with the given tracer
func WithTracer(ctx context.Context, tracer Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, tracer)
}

// TracerFromContext returns the tracer from the context, or a default tracer.
func TracerFromContext(ctx context.Context) Tracer {
	if tracer, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return tracer
	}
	return NewDefaultTracer(ctx)
}

// StartTrace starts a new trace using the tracer from the context
func StartTrace(ctx context.Context, model string) *Trace {
	return TracerFromContext(ctx).NewTrace(ctx, model)
}

// TraceCallback receives completed traces.
type TraceCallback func(*Trace)

type byCodeTracer struct {
	callbacks []TraceCallback
}

// ByCode creates a Tracer that invokes the callbacks, in parallel, on every
// completed trace.
func ByCode(callbacks ...TraceCallback) Tracer {
	return &byCodeTracer{callbacks: callbacks}
}

func (t *byCodeTracer) NewTrace(ctx context.Context, model string) *Trace {
	return newTraceWithTracer(ctx, t, model)
}

func (t *byCodeTracer) RecordTrace(trace *Trace) {
	g := new(errgroup.Group)
	for _, callback := range t.callbacks {
		if callback != nil {
			g.Go(func() error {
				callback(trace)
				return nil
			})
		}
	}
	_ = g.Wait()
}

// NewDefaultTracer creates a tracer that logs completed traces to clog.
func NewDefaultTracer(ctx context.Context) Tracer {
	logger := clog.FromContext(ctx)
	return ByCode(func(trace *Trace) {
		logger.With(
			"trace_id", trace.ID,
			"duration_ms", trace.Duration().Milliseconds(),
			"attempts", len(trace.Attempts),
		).Debug("Inference trace completed", "trace", trace.String())
	})
}
