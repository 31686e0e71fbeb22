/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// ExecutionContext identifies the evaluation an invocation belongs to.
type ExecutionContext struct {
	QuestionID   string `json:"question_id,omitempty"`   // e.g. "q1"
	TemplateName string `json:"template_name,omitempty"` // e.g. "baseline_v2"
	Category     string `json:"category,omitempty"`      // baseline, generic_persona or specific_persona
	PersonaID    string `json:"persona_id,omitempty"`    // empty for persona-free runs
}

// EnrichAttributes adds the bounded execution context fields to baseAttrs.
//
// Question and persona ids are left out: every question would otherwise
// create a new time series. They stay on the trace and span.
func (e ExecutionContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+2)
	copy(attrs, baseAttrs)

	if e.Category != "" {
		attrs = append(attrs, attribute.String("category", e.Category))
	}
	if e.TemplateName != "" {
		attrs = append(attrs, attribute.String("template", e.TemplateName))
	}
	return attrs
}

// spanAttributes returns every non-empty field, unbounded ones included.
func (e ExecutionContext) spanAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for k, v := range map[string]string{
		"question_id": e.QuestionID,
		"template":    e.TemplateName,
		"category":    e.Category,
		"persona_id":  e.PersonaID,
	} {
		if v != "" {
			attrs = append(attrs, attribute.String(k, v))
		}
	}
	return attrs
}

type contextKey string

const executionContextKey contextKey = "execution_context"

// WithExecutionContext adds execution context to the Go context
func WithExecutionContext(ctx context.Context, execCtx ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey, execCtx)
}

// GetExecutionContext retrieves execution context from the Go context
func GetExecutionContext(ctx context.Context) ExecutionContext {
	if val := ctx.Value(executionContextKey); val != nil {
		if execCtx, ok := val.(ExecutionContext); ok {
			return execCtx
		}
	}
	return ExecutionContext{}
}
