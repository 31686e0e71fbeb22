/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package inferencetest provides a scripted inference.Provider for tests.
package inferencetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
)

// Step is one scripted response: a reply or an error.
type Step struct {
	Reply *inference.Reply
	Err   error
}

// Text is a step replying with a single text part.
func Text(s string) Step {
	return Step{Reply: &inference.Reply{
		ID:      "scripted",
		Message: conversation.Assistant(conversation.Text(s)),
		Usage:   inference.Usage{Prompt: 10, Completion: 5, Total: 15},
	}}
}

// Error is a step failing with err.
func Error(err error) Step {
	return Step{Err: err}
}

// Provider replays Steps in order and records every request it receives.
// Once the script is exhausted the last step repeats.
type Provider struct {
	mu       sync.Mutex
	steps    []Step
	requests []inference.Request
}

var _ inference.Provider = (*Provider)(nil)

// New returns a Provider that replays steps.
func New(steps ...Step) *Provider {
	return &Provider{steps: steps}
}

// Complete implements inference.Provider.
func (p *Provider) Complete(ctx context.Context, req *inference.Request) (*inference.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	r := *req
	r.Messages = conversation.Clone(req.Messages)
	p.requests = append(p.requests, r)

	if len(p.steps) == 0 {
		return nil, fmt.Errorf("inferencetest: no scripted steps")
	}
	i := min(len(p.requests)-1, len(p.steps)-1)
	step := p.steps[i]
	if step.Err != nil {
		return nil, step.Err
	}
	reply := *step.Reply
	return &reply, nil
}

// Calls returns the number of requests received.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns a copy of every request received, in order.
func (p *Provider) Requests() []inference.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]inference.Request, len(p.requests))
	copy(out, p.requests)
	return out
}
