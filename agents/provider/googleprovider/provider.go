/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/compute/metadata"
	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
	"google.golang.org/genai"
)

// Provider sends requests to Gemini.
type Provider struct {
	client *genai.Client
}

var _ inference.Provider = (*Provider)(nil)

type config struct {
	apiKey     string
	vertex     bool
	location   string
	project    string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Provider.
type Option func(*config) error

// WithAPIKey uses the Gemini API with key.
func WithAPIKey(key string) Option {
	return func(c *config) error {
		if key == "" {
			return errors.New("api key cannot be empty")
		}
		c.apiKey = key
		return nil
	}
}

// WithVertex uses Vertex AI in location. An empty project is detected from
// the metadata server.
func WithVertex(location, project string) Option {
	return func(c *config) error {
		if location == "" {
			return errors.New("vertex location is required")
		}
		c.vertex = true
		c.location = location
		c.project = project
		return nil
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *config) error {
		c.baseURL = u
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

// New creates a Provider.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	var cfg config
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	cc := &genai.ClientConfig{
		HTTPClient: cfg.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.baseURL,
		},
	}
	switch {
	case cfg.vertex:
		project := cfg.project
		if project == "" {
			p, err := detectProject(ctx)
			if err != nil {
				return nil, err
			}
			project = p
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = project
		cc.Location = cfg.location
	case cfg.apiKey != "":
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.apiKey
	default:
		return nil, errors.New("either an api key or vertex is required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Provider{client: client}, nil
}

func detectProject(ctx context.Context) (string, error) {
	if !metadata.OnGCE() {
		return "", errors.New("vertex project is required when not running on GCE")
	}
	project, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("reading project from metadata server: %w", err)
	}
	clog.FromContext(ctx).With("project", project).Info("Detected Vertex project from metadata server")
	return project, nil
}

// Complete implements inference.Provider.
func (p *Provider) Complete(ctx context.Context, req *inference.Request) (*inference.Reply, error) {
	contents, gc, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, gc)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no content generated - no candidates")
	}

	var parts []conversation.Part
	var thoughts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part == nil:
		case part.Thought:
			thoughts = append(thoughts, part.Text)
		case part.Text != "":
			parts = append(parts, conversation.Text(part.Text))
		}
	}

	reply := &inference.Reply{
		ID:        resp.ResponseID,
		Model:     resp.ModelVersion,
		Message:   conversation.Assistant(parts...),
		Reasoning: strings.Join(thoughts, "\n"),
	}
	if u := resp.UsageMetadata; u != nil {
		reply.Usage = inference.Usage{
			Prompt:     int64(u.PromptTokenCount),
			Completion: int64(u.CandidatesTokenCount),
			Total:      int64(u.TotalTokenCount),
		}
	}
	return reply, nil
}

func buildRequest(req *inference.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	gc := &genai.GenerateContentConfig{
		Temperature: ptr(float32(req.Sampling.Temperature)),
	}
	if req.Sampling.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.Sampling.MaxTokens)
	}

	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(req.Messages))
	for i, m := range req.Messages {
		parts := make([]*genai.Part, 0, len(m.Content))
		for _, part := range m.Content {
			switch part := part.(type) {
			case conversation.TextPart:
				parts = append(parts, &genai.Part{Text: part.Text})
			case conversation.ImagePart:
				if m.Role != conversation.RoleUser {
					return nil, nil, fmt.Errorf("message %d: %s messages cannot contain images", i, m.Role)
				}
				parts = append(parts, genai.NewPartFromURI(part.URL, imageMIMEType(part.URL)))
			}
		}

		switch m.Role {
		case conversation.RoleSystem:
			system = append(system, parts...)
		case conversation.RoleUser:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
		case conversation.RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		default:
			return nil, nil, fmt.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}
	if len(system) > 0 {
		gc.SystemInstruction = &genai.Content{Parts: system}
	}

	if req.Schema != nil {
		raw, err := json.Marshal(req.Schema.Document())
		if err != nil {
			return nil, nil, fmt.Errorf("encoding schema %s: %w", req.Schema.Name(), err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, nil, fmt.Errorf("encoding schema %s: %w", req.Schema.Name(), err)
		}
		delete(doc, "$schema")
		delete(doc, "$id")
		gc.ResponseMIMEType = "application/json"
		gc.ResponseJsonSchema = doc
	}
	return contents, gc, nil
}

// imageMIMEType guesses the MIME type from the URL path, ignoring any query
// string such as a signature.
func imageMIMEType(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(p))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/png"
}

func ptr[T any](v T) *T {
	return &v
}
