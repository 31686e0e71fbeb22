/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "siliconcrowds.agents.agenttrace"

// Attempt is a single remote call within a trace.
type Attempt struct {
	Number    int       `json:"number"`
	Reply     string    `json:"reply,omitempty"`
	Error     error     `json:"error,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	trace     *Trace
	span      oteltrace.Span
}

// Trace is one invocation from its first attempt to its result.
type Trace struct {
	ID          string           `json:"id"`
	Model       string           `json:"model"`
	ExecContext ExecutionContext `json:"exec_context,omitempty"`
	Attempts    []*Attempt       `json:"attempts"`
	Reasoning   string           `json:"reasoning,omitempty"`
	Result      any              `json:"result"`
	Error       error            `json:"error,omitempty"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	tracer      Tracer
	mu          sync.Mutex
	ctx         context.Context
	span        oteltrace.Span
}

func newTraceWithTracer(ctx context.Context, tracer Tracer, model string) *Trace {
	execCtx := GetExecutionContext(ctx)

	tr := otel.Tracer(instrumentationName, oteltrace.WithInstrumentationVersion("1.0.0"))
	ctx, span := tr.Start(ctx, "inference.invoke",
		oteltrace.WithAttributes(attribute.String("model", model)),
		oteltrace.WithAttributes(execCtx.spanAttributes()...))

	return &Trace{
		ID:          generateTraceID(),
		Model:       model,
		ExecContext: execCtx,
		Attempts:    []*Attempt{},
		StartTime:   time.Now(),
		tracer:      tracer,
		ctx:         ctx,
		span:        span,
	}
}

// Context returns the context carrying the trace's span.
func (t *Trace) Context() context.Context {
	return t.ctx
}

// StartAttempt starts the next attempt.
func (t *Trace) StartAttempt() *Attempt {
	t.mu.Lock()
	n := len(t.Attempts) + 1
	t.mu.Unlock()

	tr := otel.Tracer(instrumentationName, oteltrace.WithInstrumentationVersion("1.0.0"))
	_, span := tr.Start(t.ctx, "inference.attempt", oteltrace.WithAttributes(
		attribute.Int("attempt", n),
	))

	a := &Attempt{
		Number:    n,
		StartTime: time.Now(),
		trace:     t,
		span:      span,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.Attempts = append(t.Attempts, a)
	return a
}

// Complete records the reply text and the failure, if any.
func (a *Attempt) Complete(reply string, err error) {
	a.trace.mu.Lock()
	a.Reply = reply
	a.Error = err
	a.EndTime = time.Now()
	span := a.span
	a.trace.mu.Unlock()

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// RecordTokenUsage records model and token usage as span attributes.
func (t *Trace) RecordTokenUsage(model string, inputTokens, outputTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.span != nil {
		t.span.SetAttributes(
			attribute.String("model", model),
			attribute.Int64("tokens.input", inputTokens),
			attribute.Int64("tokens.output", outputTokens),
			attribute.Int64("tokens.total", inputTokens+outputTokens),
		)
	}
}

// RecordReasoning stores the reasoning text of the final reply.
func (t *Trace) RecordReasoning(reasoning string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Reasoning = reasoning
}

// Complete marks the trace as complete and hands it to the tracer.
func (t *Trace) Complete(result any, err error) {
	t.mu.Lock()
	t.Result = result
	t.Error = err
	t.EndTime = time.Now()
	tracer := t.tracer
	span := t.span
	attempts := len(t.Attempts)
	t.mu.Unlock()

	if span != nil {
		span.SetAttributes(attribute.Int("attempts", attempts))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	if tracer != nil {
		tracer.RecordTrace(t)
	}
}

// Duration returns the total duration of the trace
func (t *Trace) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// String returns a structured representation of the trace
func (t *Trace) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder

	var duration time.Duration
	if t.EndTime.IsZero() {
		duration = time.Since(t.StartTime)
	} else {
		duration = t.EndTime.Sub(t.StartTime)
	}

	fmt.Fprintf(&sb, "=== Trace %s ===\n", t.ID)
	fmt.Fprintf(&sb, "Model: %s\n", t.Model)
	if t.ExecContext.QuestionID != "" {
		fmt.Fprintf(&sb, "Question: %s\n", t.ExecContext.QuestionID)
	}
	fmt.Fprintf(&sb, "Duration: %v\n", duration)

	fmt.Fprintf(&sb, "\nAttempts (%d):\n", len(t.Attempts))
	for _, a := range t.Attempts {
		status := "ok"
		if a.Error != nil {
			status = a.Error.Error()
		}
		fmt.Fprintf(&sb, "  [%d] %s\n", a.Number, truncate(status, 200))
		if a.Reply != "" {
			fmt.Fprintf(&sb, "      Reply: %s\n", truncate(a.Reply, 200))
		}
	}

	if t.Reasoning != "" {
		fmt.Fprintf(&sb, "\nReasoning: %s\n", truncate(t.Reasoning, 200))
	}

	sb.WriteString("\nCompletion:\n")
	switch {
	case t.Error != nil:
		fmt.Fprintf(&sb, "  Error: %v\n", t.Error)
	case t.Result != nil:
		fmt.Fprintf(&sb, "  Result: %s\n", truncate(fmt.Sprintf("%v", t.Result), 500))
	default:
		sb.WriteString("  Result: <nil>\n")
	}

	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// generateTraceID returns YYYYMMDD-HHMMSS-RRRRRRRR where R is random hex.
func generateTraceID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102-150405.000000")
	}
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(b))
}
