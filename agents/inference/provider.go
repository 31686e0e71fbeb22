/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package inference

import (
	"context"

	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/schema"
)

// Provider performs a single remote chat completion.
type Provider interface {
	// Complete sends the request once. Implementations must not retry.
	Complete(ctx context.Context, req *Request) (*Reply, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req *Request) (*Reply, error)

// Complete implements Provider.
func (f ProviderFunc) Complete(ctx context.Context, req *Request) (*Reply, error) {
	return f(ctx, req)
}

// Sampling is the generation configuration sent with every request.
type Sampling struct {
	Temperature float64
	// MaxTokens caps the reply length; 0 leaves it to the provider.
	MaxTokens int64
}

// Request is one remote call.
type Request struct {
	Model    string
	Messages []conversation.Message
	// Schema, when set, asks the provider for structured JSON output.
	Schema   schema.Structured
	Sampling Sampling
}

// Usage counts tokens for a single reply.
type Usage struct {
	Prompt     int64 `json:"prompt_tokens"`
	Completion int64 `json:"completion_tokens"`
	Total      int64 `json:"total_tokens"`
}

// Reply is what a provider returned for one Request.
type Reply struct {
	ID      string
	Model   string
	Message conversation.Message
	// Reasoning holds the model's reasoning text, when the provider exposes it.
	Reasoning string
	Usage     Usage
}
