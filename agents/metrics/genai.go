/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// DefaultMeterName is the meter shared by every inference client.
const DefaultMeterName = "siliconcrowds.agents"

// Outcome labels an attempt.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeInvalid    Outcome = "invalid"
	OutcomeError      Outcome = "error"
	OutcomeUnverified Outcome = "unverified"
)

// GenAI provides OpenTelemetry metrics for inference calls: token usage,
// attempts by outcome and structured output validation failures. Counters
// that fail to initialize fall back to no-ops.
type GenAI struct {
	meter              metric.Meter
	promptTokens       metric.Int64Counter
	completionTokens   metric.Int64Counter
	attempts           metric.Int64Counter
	validationFailures metric.Int64Counter
	attrEnricher       AttributeEnricher
}

// NewGenAI creates a new GenAI metrics instance with the specified meter name.
// The model is recorded as a dimension, so a single meter name is shared across
// providers.
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	return &GenAI{
		meter: meter,
		promptTokens: counter(meter, meterName, "genai.token.prompt",
			"The number of prompt tokens used", "{tokens}"),
		completionTokens: counter(meter, meterName, "genai.token.completion",
			"The number of completion tokens used", "{tokens}"),
		attempts: counter(meter, meterName, "genai.attempts",
			"The number of remote inference attempts", "{attempts}"),
		validationFailures: counter(meter, meterName, "genai.validation.failures",
			"The number of replies that failed structured output validation", "{replies}"),
	}
}

func counter(meter metric.Meter, meterName, name, description, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		slog.Warn("Failed to create counter, metric will be disabled", "error", err, "meter", meterName, "counter", name)
		return noop.Int64Counter{}
	}
	return c
}

// SetAttributeEnricher sets the attribute enricher for this metrics instance.
func (m *GenAI) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *GenAI) attributes(ctx context.Context, base []attribute.KeyValue, extra []attribute.KeyValue) []attribute.KeyValue {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return append(base, extra...)
}

// RecordTokens records prompt and completion token usage.
func (m *GenAI) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64, attrs ...attribute.KeyValue) {
	a := m.attributes(ctx, []attribute.KeyValue{attribute.String("model", model)}, attrs)
	m.promptTokens.Add(ctx, promptTokens, metric.WithAttributes(a...))
	m.completionTokens.Add(ctx, completionTokens, metric.WithAttributes(a...))
}

// RecordAttempt records one remote call and how it ended.
func (m *GenAI) RecordAttempt(ctx context.Context, model string, outcome Outcome, attrs ...attribute.KeyValue) {
	a := m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("outcome", string(outcome)),
	}, attrs)
	m.attempts.Add(ctx, 1, metric.WithAttributes(a...))
}

// RecordValidationFailure records a reply rejected by its schema.
func (m *GenAI) RecordValidationFailure(ctx context.Context, model, schemaName string, attrs ...attribute.KeyValue) {
	a := m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("schema", schemaName),
	}, attrs)
	m.validationFailures.Add(ctx, 1, metric.WithAttributes(a...))
}
