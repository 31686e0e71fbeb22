/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiprovider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/siliconcrowds/siliconcrowds/agents/answer"
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
	"github.com/siliconcrowds/siliconcrowds/agents/provider/openaiprovider"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "cmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "accounts/fireworks/models/test",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {
      "role": "assistant",
      "content": "{\"answer\": 3}",
      "reasoning_content": "three people spoke"
    }
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

type capturedRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	Messages       []json.RawMessage `json:"messages"`
	ResponseFormat struct {
		Type       string `json:"type"`
		JSONSchema struct {
			Name   string         `json:"name"`
			Schema map[string]any `json:"schema"`
		} `json:"json_schema"`
	} `json:"response_format"`
}

func TestComplete(t *testing.T) {
	var got capturedRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	p, err := openaiprovider.New(
		openaiprovider.WithAPIKey("secret"),
		openaiprovider.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), &inference.Request{
		Model: "accounts/fireworks/models/test",
		Messages: []conversation.Message{
			conversation.System("sys"),
			conversation.User(conversation.Text("transcript")),
			conversation.User(conversation.Image("https://example.com/q1.png")),
		},
		Schema:   answer.Numeric,
		Sampling: inference.Sampling{Temperature: 0.1},
	})
	require.NoError(t, err)

	require.Equal(t, "Bearer secret", auth)
	require.Equal(t, "accounts/fireworks/models/test", got.Model)
	require.InDelta(t, 0.1, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 3)
	require.Equal(t, "json_schema", got.ResponseFormat.Type)
	require.Equal(t, "NumericSchema", got.ResponseFormat.JSONSchema.Name)
	require.Contains(t, got.ResponseFormat.JSONSchema.Schema, "properties")
	require.NotContains(t, got.ResponseFormat.JSONSchema.Schema, "$schema")

	var image struct {
		Role    string `json:"role"`
		Content []struct {
			Type     string `json:"type"`
			ImageURL struct {
				URL string `json:"url"`
			} `json:"image_url"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(got.Messages[2], &image))
	require.Equal(t, "user", image.Role)
	require.Len(t, image.Content, 1)
	require.Equal(t, "image_url", image.Content[0].Type)
	require.Equal(t, "https://example.com/q1.png", image.Content[0].ImageURL.URL)

	require.Equal(t, "cmpl-1", reply.ID)
	text, ok := reply.Message.FirstText()
	require.True(t, ok)
	require.Equal(t, `{"answer": 3}`, text)
	require.Equal(t, "three people spoke", reply.Reasoning)
	require.Equal(t, inference.Usage{Prompt: 12, Completion: 4, Total: 16}, reply.Usage)
}

func TestCompleteDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	p, err := openaiprovider.New(
		openaiprovider.WithAPIKey("secret"),
		openaiprovider.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), &inference.Request{
		Model:    "m",
		Messages: []conversation.Message{conversation.User(conversation.Text("hi"))},
	})
	require.Error(t, err)
	require.True(t, openaiprovider.IsRetryable(err), "429 should be retryable: %v", err)
	require.EqualValues(t, 1, calls.Load())
}

func TestCompleteRejectsImagesOutsideUserMessages(t *testing.T) {
	p, err := openaiprovider.New(openaiprovider.WithAPIKey("secret"), openaiprovider.WithBaseURL("http://127.0.0.1:0"))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), &inference.Request{
		Model: "m",
		Messages: []conversation.Message{
			conversation.New(conversation.RoleSystem, conversation.Image("https://example.com/x.png")),
		},
	})
	require.ErrorContains(t, err, "cannot contain images")
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := openaiprovider.New()
	require.Error(t, err)
}
