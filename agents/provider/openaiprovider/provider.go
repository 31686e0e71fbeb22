/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
)

// DefaultBaseURL is the Fireworks OpenAI compatible endpoint.
const DefaultBaseURL = "https://api.fireworks.ai/inference/v1"

// Provider sends chat completions to an OpenAI compatible API.
type Provider struct {
	client openai.Client
	strict bool
}

var _ inference.Provider = (*Provider)(nil)

type config struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	strict     bool
}

// Option configures a Provider.
type Option func(*config) error

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *config) error {
		if key == "" {
			return errors.New("api key cannot be empty")
		}
		c.apiKey = key
		return nil
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) error {
		if url == "" {
			return errors.New("base url cannot be empty")
		}
		c.baseURL = strings.TrimSuffix(url, "/")
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

// WithStrictSchema asks the host to enforce the schema during decoding.
// Not every model supports strict mode.
func WithStrictSchema(strict bool) Option {
	return func(c *config) error {
		c.strict = strict
		return nil
	}
}

// New creates a Provider. An API key is required.
func New(opts ...Option) (*Provider, error) {
	cfg := config{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if cfg.apiKey == "" {
		return nil, errors.New("api key is required")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.apiKey),
		option.WithBaseURL(cfg.baseURL + "/"),
		option.WithMaxRetries(0),
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &Provider{
		client: openai.NewClient(reqOpts...),
		strict: cfg.strict,
	}, nil
}

// Complete implements inference.Provider.
func (p *Provider) Complete(ctx context.Context, req *inference.Request) (*inference.Reply, error) {
	params, err := p.params(req)
	if err != nil {
		return nil, err
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	msg := completion.Choices[0].Message
	return &inference.Reply{
		ID:        completion.ID,
		Model:     completion.Model,
		Message:   conversation.Assistant(conversation.Text(msg.Content)),
		Reasoning: reasoningContent(msg.RawJSON()),
		Usage: inference.Usage{
			Prompt:     completion.Usage.PromptTokens,
			Completion: completion.Usage.CompletionTokens,
			Total:      completion.Usage.TotalTokens,
		},
	}, nil
}

func (p *Provider) params(req *inference.Request) (openai.ChatCompletionNewParams, error) {
	messages, err := toMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Sampling.Temperature),
	}
	if req.Sampling.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.Sampling.MaxTokens)
	}

	if req.Schema != nil {
		doc, err := schemaMap(req.Schema.Document())
		if err != nil {
			return params, fmt.Errorf("encoding schema %s: %w", req.Schema.Name(), err)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.Schema.Name(),
					Schema: doc,
					Strict: openai.Bool(p.strict),
				},
			},
		}
	}
	return params, nil
}

// schemaMap turns a schema document into the generic map the SDK sends.
func schemaMap(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}

func toMessages(msgs []conversation.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case conversation.RoleSystem:
			text, err := textOnly(m)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			out = append(out, openai.SystemMessage(text))

		case conversation.RoleAssistant:
			text, err := textOnly(m)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			out = append(out, openai.AssistantMessage(text))

		case conversation.RoleUser:
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Content))
			for _, part := range m.Content {
				switch part := part.(type) {
				case conversation.TextPart:
					parts = append(parts, openai.TextContentPart(part.Text))
				case conversation.ImagePart:
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: part.URL,
					}))
				}
			}
			out = append(out, openai.UserMessage(parts))

		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}
	return out, nil
}

// textOnly joins the text parts of a system or assistant message, which
// cannot carry images.
func textOnly(m conversation.Message) (string, error) {
	var sb strings.Builder
	for _, part := range m.Content {
		switch part := part.(type) {
		case conversation.TextPart:
			sb.WriteString(part.Text)
		case conversation.ImagePart:
			return "", fmt.Errorf("%s messages cannot contain images", m.Role)
		}
	}
	return sb.String(), nil
}

func reasoningContent(raw string) string {
	if raw == "" {
		return ""
	}
	var extra struct {
		ReasoningContent string `json:"reasoning_content"`
	}
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return ""
	}
	return extra.ReasoningContent
}
