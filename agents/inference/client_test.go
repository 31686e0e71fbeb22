/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package inference_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/siliconcrowds/siliconcrowds/agents/answer"
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
	"github.com/siliconcrowds/siliconcrowds/agents/inference/inferencetest"
	"github.com/siliconcrowds/siliconcrowds/agents/retry"
	"github.com/siliconcrowds/siliconcrowds/agents/schema"
)

func newClient(t *testing.T, p inference.Provider, opts ...inference.Option) *inference.Client {
	t.Helper()
	c, err := inference.New(p, "test-model", opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func question(text string) []conversation.Message {
	return []conversation.Message{
		conversation.System("You answer quiz questions."),
		conversation.User(conversation.Text(text)),
	}
}

func TestInvokeWithoutSchema(t *testing.T) {
	p := inferencetest.New(inferencetest.Text("Paris"))
	c := newClient(t, p)

	res, err := c.Invoke(context.Background(), question("What is the capital of France?"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	want := conversation.Assistant(conversation.Text("Paris"))
	if diff := cmp.Diff(want, res.Message); diff != "" {
		t.Errorf("Message mismatch (-want +got):\n%s", diff)
	}
	if res.Structured != nil {
		t.Errorf("Structured: got = %v, wanted = nil", res.Structured)
	}
	if res.Attempts != 1 || p.Calls() != 1 {
		t.Errorf("attempts: got = %d (calls %d), wanted = 1", res.Attempts, p.Calls())
	}
	if res.Model != "test-model" {
		t.Errorf("Model: got = %q, wanted = %q", res.Model, "test-model")
	}
}

func TestInvokeSchemaSuccess(t *testing.T) {
	p := inferencetest.New(inferencetest.Text(`{"answer": 3}`))
	c := newClient(t, p)

	res, err := c.Invoke(context.Background(), question("How many?"), inference.WithSchema(answer.Numeric))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	got, ok := res.Structured.(answer.NumericAnswer)
	if !ok {
		t.Fatalf("Structured: got = %T, wanted = answer.NumericAnswer", res.Structured)
	}
	if got.Answer != 3 {
		t.Errorf("Answer: got = %d, wanted = 3", got.Answer)
	}

	reqs := p.Requests()
	if reqs[0].Schema == nil || reqs[0].Schema.Name() != "NumericSchema" {
		t.Errorf("request schema: got = %v, wanted = NumericSchema", reqs[0].Schema)
	}
	if reqs[0].Sampling.Temperature != inference.DefaultTemperature {
		t.Errorf("temperature: got = %v, wanted = %v", reqs[0].Sampling.Temperature, inference.DefaultTemperature)
	}
}

func TestInvokeExhaustsExactlyNAttempts(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		p := inferencetest.New(inferencetest.Text("not json"))
		c := newClient(t, p)

		_, err := c.Invoke(context.Background(), question("How many?"),
			inference.WithSchema(answer.Numeric), inference.WithRetries(n))

		var verr *schema.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("n=%d: Invoke() error = %v, wanted *schema.ValidationError", n, err)
		}
		var exhausted *inference.ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("n=%d: Invoke() error = %v, wanted *inference.ExhaustedError", n, err)
		}
		if exhausted.Attempts != n {
			t.Errorf("n=%d: ExhaustedError.Attempts: got = %d, wanted = %d", n, exhausted.Attempts, n)
		}
		if got := p.Calls(); got != n {
			t.Errorf("n=%d: calls: got = %d, wanted = %d", n, got, n)
		}

		base := len(question(""))
		for k, req := range p.Requests() {
			if got, want := len(req.Messages), base+2*k; got != want {
				t.Errorf("n=%d attempt %d: messages: got = %d, wanted = %d", n, k+1, got, want)
			}
		}
	}
}

func TestInvokeSelfCorrects(t *testing.T) {
	p := inferencetest.New(
		inferencetest.Text(`{"answer": "three"}`),
		inferencetest.Text(`{"answer": 3}`),
	)
	c := newClient(t, p)

	res, err := c.Invoke(context.Background(), question("How many?"), inference.WithSchema(answer.Numeric))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts: got = %d, wanted = 2", res.Attempts)
	}

	second := p.Requests()[1].Messages
	if len(second) != 4 {
		t.Fatalf("second request messages: got = %d, wanted = 4", len(second))
	}
	failed := second[2]
	if failed.Role != conversation.RoleAssistant {
		t.Errorf("replayed role: got = %q, wanted = assistant", failed.Role)
	}
	if text, _ := failed.FirstText(); text != `{"answer": "three"}` {
		t.Errorf("replayed reply: got = %q", text)
	}
	fix := second[3]
	text, _ := fix.FirstText()
	if fix.Role != conversation.RoleUser ||
		!strings.HasPrefix(text, "Your previous response had a validation error: ") ||
		!strings.HasSuffix(text, ". Please correct your response to match the required format.") {
		t.Errorf("correction message: got = %s %q", fix.Role, text)
	}
}

func TestInvokeDoesNotMutateInput(t *testing.T) {
	p := inferencetest.New(inferencetest.Text("nope"))
	c := newClient(t, p)

	msgs := question("How many?")
	before := conversation.Clone(msgs)
	_, _ = c.Invoke(context.Background(), msgs, inference.WithSchema(answer.Numeric), inference.WithRetries(3))

	if diff := cmp.Diff(before, msgs); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

func TestInvokeReplyWithoutText(t *testing.T) {
	p := inferencetest.New(inferencetest.Step{Reply: &inference.Reply{
		Message: conversation.Assistant(conversation.Image("https://example.com/x.png")),
	}})
	c := newClient(t, p)

	_, err := c.Invoke(context.Background(), question("How many?"),
		inference.WithSchema(answer.Numeric), inference.WithRetries(2))
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Invoke() error = %v, wanted *schema.ValidationError", err)
	}
	if p.Calls() != 2 {
		t.Errorf("calls: got = %d, wanted = 2", p.Calls())
	}
}

func TestInvokeRemoteErrorIsFatal(t *testing.T) {
	remote := errors.New("503 overloaded")
	p := inferencetest.New(inferencetest.Error(remote))
	c := newClient(t, p)

	_, err := c.Invoke(context.Background(), question("How many?"), inference.WithSchema(answer.Numeric))
	if err != remote {
		t.Errorf("Invoke() error = %v, wanted %v unmodified", err, remote)
	}
	if p.Calls() != 1 {
		t.Errorf("calls: got = %d, wanted = 1", p.Calls())
	}
}

func TestInvokeTransportRetry(t *testing.T) {
	transient := errors.New("429")
	p := inferencetest.New(inferencetest.Error(transient), inferencetest.Text("ok"))
	c := newClient(t, p, inference.WithTransportRetry(retry.Config{
		MaxRetries:  2,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  time.Millisecond,
	}, func(err error) bool { return errors.Is(err, transient) }))

	res, err := c.Invoke(context.Background(), question("hi"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Text() != "ok" {
		t.Errorf("Text(): got = %q, wanted = %q", res.Text(), "ok")
	}
	if p.Calls() != 2 {
		t.Errorf("calls: got = %d, wanted = 2", p.Calls())
	}
}

func TestInvokeRateLimitHonorsContext(t *testing.T) {
	p := inferencetest.New(inferencetest.Text("ok"))
	c := newClient(t, p, inference.WithRateLimit(0.001, 1))

	if _, err := c.Invoke(context.Background(), question("first")); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Invoke(ctx, question("second")); err == nil {
		t.Error("Invoke() over the rate: error = nil, wanted limiter error")
	}
	if p.Calls() != 1 {
		t.Errorf("calls: got = %d, wanted = 1", p.Calls())
	}
}

func TestInvokeRejectsBadInput(t *testing.T) {
	p := inferencetest.New(inferencetest.Text("ok"))
	c := newClient(t, p)

	if _, err := c.Invoke(context.Background(), nil); !errors.Is(err, inference.ErrEmptyConversation) {
		t.Errorf("empty conversation: got = %v, wanted = ErrEmptyConversation", err)
	}
	for _, n := range []int{0, -1} {
		if _, err := c.Invoke(context.Background(), question("x"), inference.WithRetries(n)); !errors.Is(err, inference.ErrNoAttempts) {
			t.Errorf("WithRetries(%d): got = %v, wanted = ErrNoAttempts", n, err)
		}
	}
	if p.Calls() != 0 {
		t.Errorf("calls: got = %d, wanted = 0", p.Calls())
	}
}

func TestInvokeUsageIsFinalAttempt(t *testing.T) {
	first := inferencetest.Text("bad")
	first.Reply.Usage = inference.Usage{Prompt: 100, Completion: 100, Total: 200}
	second := inferencetest.Text(`{"answer": "1:30"}`)
	second.Reply.Usage = inference.Usage{Prompt: 7, Completion: 3, Total: 10}

	c := newClient(t, inferencetest.New(first, second))
	got, res, err := inference.InvokeAs[answer.TimeAnswer](context.Background(), c,
		question("How long?"), inference.WithSchema(answer.Time))
	if err != nil {
		t.Fatalf("InvokeAs() error = %v", err)
	}
	if got.Answer != "1:30" {
		t.Errorf("Answer: got = %q, wanted = %q", got.Answer, "1:30")
	}
	if diff := cmp.Diff(inference.Usage{Prompt: 7, Completion: 3, Total: 10}, res.Usage); diff != "" {
		t.Errorf("Usage mismatch (-want +got):\n%s", diff)
	}
}

func TestInvokeAsReflectsSchema(t *testing.T) {
	type verdict struct {
		Capital string `json:"capital" jsonschema:"required"`
	}
	p := inferencetest.New(inferencetest.Text(`{"capital": "Paris"}`))
	c := newClient(t, p)

	got, _, err := inference.InvokeAs[verdict](context.Background(), c, question("Capital of France?"))
	if err != nil {
		t.Fatalf("InvokeAs() error = %v", err)
	}
	if got.Capital != "Paris" {
		t.Errorf("Capital: got = %q, wanted = %q", got.Capital, "Paris")
	}
	if p.Requests()[0].Schema == nil {
		t.Error("request schema: got = nil, wanted = reflected schema")
	}
}

func TestNewOptions(t *testing.T) {
	p := inferencetest.New()
	tests := []struct {
		name string
		opt  inference.Option
	}{
		{"temperature", inference.WithTemperature(3)},
		{"max tokens", inference.WithMaxTokens(0)},
		{"default retries", inference.WithDefaultRetries(0)},
		{"timeout", inference.WithTimeout(-time.Second)},
		{"transport classifier", inference.WithTransportRetry(retry.Backoff(), nil)},
		{"rate", inference.WithRateLimit(0, 1)},
		{"burst", inference.WithRateLimit(1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := inference.New(p, "m", tt.opt); err == nil {
				t.Error("New() error = nil, wanted invalid option")
			}
		})
	}
	if _, err := inference.New(nil, "m"); err == nil {
		t.Error("New(nil) error = nil, wanted error")
	}
	if _, err := inference.New(p, ""); err == nil {
		t.Error("New(empty model) error = nil, wanted error")
	}
}
