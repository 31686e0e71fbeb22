/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
	"github.com/siliconcrowds/siliconcrowds/agents/result"
	"github.com/siliconcrowds/siliconcrowds/agents/schema"
)

// DefaultMaxTokens is sent when the request does not cap the reply; the
// Messages API requires a value.
const DefaultMaxTokens = 4096

// Provider sends requests to the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
}

var _ inference.Provider = (*Provider)(nil)

type config struct {
	apiKey     string
	baseURL    string
	region     string
	project    string
	httpClient *http.Client
}

// Option configures a Provider.
type Option func(*config) error

// WithAPIKey authenticates directly against the Anthropic API.
func WithAPIKey(key string) Option {
	return func(c *config) error {
		if key == "" {
			return errors.New("api key cannot be empty")
		}
		c.apiKey = key
		return nil
	}
}

// WithVertex routes requests through Vertex AI using Google default credentials.
func WithVertex(region, project string) Option {
	return func(c *config) error {
		if region == "" || project == "" {
			return errors.New("vertex region and project are required")
		}
		c.region = region
		c.project = project
		return nil
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) error {
		c.baseURL = url
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// New creates a Provider. Exactly one of WithAPIKey or WithVertex is required.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	var cfg config
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	switch {
	case cfg.apiKey != "" && cfg.project != "":
		return nil, errors.New("api key and vertex are mutually exclusive")
	case cfg.apiKey != "":
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.apiKey))
	case cfg.project != "":
		reqOpts = append(reqOpts, vertex.WithGoogleAuth(ctx, cfg.region, cfg.project))
	default:
		return nil, errors.New("either an api key or a vertex project is required")
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &Provider{client: anthropic.NewClient(reqOpts...)}, nil
}

// Complete implements inference.Provider.
func (p *Provider) Complete(ctx context.Context, req *inference.Request) (*inference.Reply, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var parts []conversation.Part
	var reasoning []string
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text := block.Text
			if req.Schema != nil {
				// The schema is only an instruction here.
				text = result.Repair(text)
			}
			parts = append(parts, conversation.Text(text))
		case "thinking":
			reasoning = append(reasoning, block.Thinking)
		}
	}

	return &inference.Reply{
		ID:        message.ID,
		Model:     string(message.Model),
		Message:   conversation.Assistant(parts...),
		Reasoning: strings.Join(reasoning, "\n"),
		Usage: inference.Usage{
			Prompt:     message.Usage.InputTokens,
			Completion: message.Usage.OutputTokens,
			Total:      message.Usage.InputTokens + message.Usage.OutputTokens,
		},
	}, nil
}

func buildParams(req *inference.Request) (anthropic.MessageNewParams, error) {
	maxTokens := req.Sampling.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Sampling.Temperature),
	}

	var system []string
	for i, m := range req.Messages {
		switch m.Role {
		case conversation.RoleSystem:
			for _, part := range m.Content {
				t, ok := part.(conversation.TextPart)
				if !ok {
					return params, fmt.Errorf("message %d: system messages cannot contain images", i)
				}
				system = append(system, t.Text)
			}

		case conversation.RoleUser, conversation.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
			for _, part := range m.Content {
				switch part := part.(type) {
				case conversation.TextPart:
					blocks = append(blocks, anthropic.NewTextBlock(part.Text))
				case conversation.ImagePart:
					if m.Role == conversation.RoleAssistant {
						return params, fmt.Errorf("message %d: assistant messages cannot contain images", i)
					}
					blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: part.URL}))
				}
			}
			params.Messages = appendTurn(params.Messages, m.Role, blocks)

		default:
			return params, fmt.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}

	if req.Schema != nil {
		instruction, err := schemaInstruction(req.Schema)
		if err != nil {
			return params, err
		}
		system = append(system, instruction)
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	return params, nil
}

// appendTurn adds blocks as a turn for role, merging into the previous turn
// when it has the same role. The Messages API expects alternating turns.
func appendTurn(msgs []anthropic.MessageParam, role conversation.Role, blocks []anthropic.ContentBlockParamUnion) []anthropic.MessageParam {
	r := anthropic.MessageParamRoleUser
	if role == conversation.RoleAssistant {
		r = anthropic.MessageParamRoleAssistant
	}
	if n := len(msgs); n > 0 && msgs[n-1].Role == r {
		msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
		return msgs
	}
	return append(msgs, anthropic.MessageParam{Role: r, Content: blocks})
}

func schemaInstruction(s schema.Structured) (string, error) {
	doc, err := json.MarshalIndent(s.Document(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding schema %s: %w", s.Name(), err)
	}
	return fmt.Sprintf("Respond with a single JSON object and nothing else. It must satisfy this JSON Schema (%s):\n%s", s.Name(), doc), nil
}
