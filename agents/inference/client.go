/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package inference

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/agents/agenttrace"
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/metrics"
	"github.com/siliconcrowds/siliconcrowds/agents/retry"
	"github.com/siliconcrowds/siliconcrowds/agents/schema"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	// DefaultRetries is the attempt bound when neither the client nor the
	// invocation sets one.
	DefaultRetries = 2
	// DefaultTemperature keeps answers close to deterministic.
	DefaultTemperature = 0.1
	// DefaultTimeout bounds each remote call.
	DefaultTimeout = 120 * time.Second
)

// Client executes conversations against one model. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	provider    Provider
	model       string
	sampling    Sampling
	retries     int
	timeout     time.Duration
	transport   retry.Config
	isRetryable retry.Classifier
	limiter     *rate.Limiter
	metrics     *metrics.GenAI
}

// New creates a Client for model served by provider.
func New(provider Provider, model string, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}

	c := &Client{
		provider: provider,
		model:    model,
		sampling: Sampling{Temperature: DefaultTemperature},
		retries:  DefaultRetries,
		timeout:  DefaultTimeout,
		metrics:  metrics.NewGenAI(metrics.DefaultMeterName),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return c, nil
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

// attemptState is one step of an invocation: the attempt about to be made
// and the conversation it will send.
type attemptState struct {
	attempt  int
	messages []conversation.Message
}

// advance moves to the next attempt after reply failed validation with err.
// The next conversation is the current one plus the failed reply and a
// correction request.
func (s attemptState) advance(reply conversation.Message, err error) attemptState {
	next := make([]conversation.Message, 0, len(s.messages)+2)
	next = append(next, s.messages...)
	next = append(next, reply, correction(err))
	return attemptState{attempt: s.attempt + 1, messages: next}
}

// correction is the user message asking the model to fix a rejected reply.
func correction(err error) conversation.Message {
	return conversation.User(conversation.Text(fmt.Sprintf(
		"Your previous response had a validation error: %v. Please correct your response to match the required format.", err)))
}

// Invoke sends msgs to the model and returns its reply. With WithSchema the
// reply must parse against the schema; rejected replies are retried with a
// correction request until the attempt bound is reached, at which point the
// last *schema.ValidationError is returned inside an *ExhaustedError.
func (c *Client) Invoke(ctx context.Context, msgs []conversation.Message, opts ...InvokeOption) (res *Result, err error) {
	inv := invocation{retries: c.retries}
	for _, opt := range opts {
		opt(&inv)
	}

	if len(msgs) == 0 {
		return nil, ErrEmptyConversation
	}
	if inv.retries <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNoAttempts, inv.retries)
	}

	log := clog.FromContext(ctx).With("model", c.model)
	if inv.schema != nil {
		log = log.With("schema", inv.schema.Name())
	}

	trace := agenttrace.StartTrace(ctx, c.model)
	defer func() {
		var out any
		if res != nil {
			out = res.Structured
			if out == nil {
				out = res.Text()
			}
		}
		trace.Complete(out, err)
	}()
	ctx = trace.Context()

	state := attemptState{messages: conversation.Clone(msgs)}
	for {
		attempt := trace.StartAttempt()
		reply, err := c.complete(ctx, &Request{
			Model:    c.model,
			Messages: state.messages,
			Schema:   inv.schema,
			Sampling: c.sampling,
		})
		if err != nil {
			attempt.Complete("", err)
			c.metrics.RecordAttempt(ctx, c.model, metrics.OutcomeError)
			log.With("attempt", state.attempt+1).With("error", err).
				Error("Remote inference failed")
			return nil, err
		}
		c.metrics.RecordTokens(ctx, c.model, reply.Usage.Prompt, reply.Usage.Completion)
		trace.RecordTokenUsage(c.model, reply.Usage.Prompt, reply.Usage.Completion)

		text, hasText := reply.Message.FirstText()

		if inv.schema == nil {
			attempt.Complete(text, nil)
			c.metrics.RecordAttempt(ctx, c.model, metrics.OutcomeUnverified)
			return c.result(reply, nil, state.attempt+1, trace), nil
		}

		parsed, verr := parse(inv.schema, text, hasText)
		if verr == nil {
			attempt.Complete(text, nil)
			c.metrics.RecordAttempt(ctx, c.model, metrics.OutcomeSuccess)
			log.With("attempts", state.attempt+1).Info("Structured reply accepted")
			return c.result(reply, parsed, state.attempt+1, trace), nil
		}

		attempt.Complete(text, verr)
		c.metrics.RecordAttempt(ctx, c.model, metrics.OutcomeInvalid)
		c.metrics.RecordValidationFailure(ctx, c.model, inv.schema.Name(),
			attribute.Int("attempt", state.attempt+1))

		if state.attempt+1 >= inv.retries {
			log.With("attempts", inv.retries).With("error", verr).
				Error("Structured reply rejected on every attempt")
			return nil, &ExhaustedError{Attempts: inv.retries, Usage: reply.Usage, Err: verr}
		}

		log.With("attempt", state.attempt+1).With("error", verr).
			Warn("Reply failed validation, asking for a correction")
		state = state.advance(failedReply(reply.Message), verr)
	}
}

// complete makes one remote call, paced by the rate limiter, bounded by the
// client's timeout and retried on transient transport errors when enabled.
func (c *Client) complete(ctx context.Context, req *Request) (*Reply, error) {
	call := func(ctx context.Context) (*Reply, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		return c.provider.Complete(ctx, req)
	}
	if !c.transport.Enabled() {
		return call(ctx)
	}
	return retry.Do(ctx, c.transport, "inference", c.isRetryable, call)
}

func (c *Client) result(reply *Reply, parsed any, attempts int, trace *agenttrace.Trace) *Result {
	if reply.Reasoning != "" {
		trace.RecordReasoning(reply.Reasoning)
	}
	model := reply.Model
	if model == "" {
		model = c.model
	}
	msg := reply.Message.Clone()
	msg.Role = conversation.RoleAssistant
	return &Result{
		ID:         reply.ID,
		Message:    msg,
		Reasoning:  reply.Reasoning,
		Model:      model,
		Usage:      reply.Usage,
		Structured: parsed,
		Attempts:   attempts,
	}
}

func parse(s schema.Structured, text string, hasText bool) (any, error) {
	if !hasText {
		return nil, &schema.ValidationError{Schema: s.Name(), Cause: errNoText}
	}
	return s.Parse(text)
}

// failedReply is the assistant turn replayed to the model after a rejection.
func failedReply(m conversation.Message) conversation.Message {
	out := m.Clone()
	out.Role = conversation.RoleAssistant
	if !slices.ContainsFunc(out.Content, func(p conversation.Part) bool {
		_, ok := p.(conversation.TextPart)
		return ok
	}) {
		out.Content = append(out.Content, conversation.Text(""))
	}
	return out
}

// InvokeAs invokes client and decodes the reply into T. Without WithSchema
// among opts, the schema is reflected from T.
func InvokeAs[T any](ctx context.Context, client *Client, msgs []conversation.Message, opts ...InvokeOption) (T, *Result, error) {
	var zero T

	var probe invocation
	for _, opt := range opts {
		opt(&probe)
	}
	if probe.schema == nil {
		s, err := schema.For[T]()
		if err != nil {
			return zero, nil, fmt.Errorf("reflecting schema: %w", err)
		}
		opts = append([]InvokeOption{WithSchema(s)}, opts...)
	}

	res, err := client.Invoke(ctx, msgs, opts...)
	if err != nil {
		return zero, nil, err
	}
	v, ok := res.Structured.(T)
	if !ok {
		return zero, res, fmt.Errorf("structured reply is %T, not %T", res.Structured, zero)
	}
	return v, res, nil
}
