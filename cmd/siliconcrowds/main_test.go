/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/crowds/config"
	"go.opentelemetry.io/otel"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := parseLevel(in)
		if err != nil {
			t.Errorf("parseLevel(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseLevel(%q): got = %v, wanted = %v", in, got, want)
		}
	}
	if _, err := parseLevel("loud"); err == nil {
		t.Error("parseLevel(loud) error = nil")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRejectBadInputBeforeConnecting(t *testing.T) {
	if _, err := execute(t, "prompts", "--category", "expert"); err == nil || !strings.Contains(err.Error(), "expert") {
		t.Errorf("prompts --category expert: error = %v", err)
	}
	if _, err := execute(t, "ask", "--category", "expert", "--template", "t", "--question", "q1"); err == nil {
		t.Error("ask --category expert: error = nil")
	}
	if _, err := execute(t, "ask", "--template", "t"); err == nil {
		t.Error("ask without --question: error = nil")
	}
	if _, err := execute(t, "run", "--plan", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("run with missing plan: error = nil")
	}
	if _, err := execute(t, "--log-level", "loud", "personas"); err == nil {
		t.Error("--log-level loud: error = nil")
	}
}

func TestRunRejectsPlanOverride(t *testing.T) {
	plan := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(plan, []byte("templates: [{category: baseline}]\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := execute(t, "run", "--plan", plan, "--concurrency", "0")
	if !errors.Is(err, crowds.ErrConfig) {
		t.Errorf("run --concurrency 0: error = %v, wanted ErrConfig", err)
	}
}

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	base := map[string]string{
		"SUPABASE_URL":      "https://project.supabase.co",
		"SUPABASE_KEY":      "key",
		"FIREWORKS_API_KEY": "fw",
	}
	for k, v := range env {
		base[k] = v
	}
	cfg, err := config.LoadFrom(context.Background(), envconfig.MapLookuper(base))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	return cfg
}

func TestNewClient(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"MODEL":               "accounts/fireworks/models/test",
		"TRANSPORT_RETRIES":   "3",
		"REQUESTS_PER_SECOND": "2",
		"REQUEST_TIMEOUT":     "30s",
	})
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("RequestTimeout: got = %v, wanted = 30s", cfg.RequestTimeout)
	}
	c, err := newClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newClient() error = %v", err)
	}
	if got, want := c.Model(), "accounts/fireworks/models/test"; got != want {
		t.Errorf("Model(): got = %q, wanted = %q", got, want)
	}
}

func TestNewProviderClaudeAPIKey(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"INFERENCE_PROVIDER": "claude",
		"ANTHROPIC_API_KEY":  "sk-ant",
	})
	p, isRetryable, err := newProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newProvider() error = %v", err)
	}
	if p == nil || isRetryable == nil {
		t.Error("newProvider() returned a nil provider or classifier")
	}
}

func TestOpenPipelineSupabase(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	content := "SUPABASE_URL=https://project.supabase.co\nSUPABASE_KEY=key\nFIREWORKS_API_KEY=fw\n"
	if err := os.WriteFile(env, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	p, err := openPipeline(context.Background(), env)
	if err != nil {
		t.Fatalf("openPipeline() error = %v", err)
	}
	defer p.close()
	if p.db == nil || p.images == nil {
		t.Error("openPipeline() left a store unset")
	}
}

func TestStoresOpenWithoutInferenceCredentials(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	content := "SUPABASE_URL=https://project.supabase.co\nSUPABASE_KEY=key\n"
	if err := os.WriteFile(env, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("FIREWORKS_API_KEY", "")

	p, err := openPipeline(context.Background(), env)
	if err != nil {
		t.Fatalf("openPipeline() error = %v, wanted listing to need no model key", err)
	}
	defer p.close()

	if _, err := newClient(context.Background(), p.cfg); !errors.Is(err, crowds.ErrConfig) {
		t.Errorf("newClient() error = %v, wanted ErrConfig", err)
	}
}

func TestSetupTracing(t *testing.T) {
	ctx := context.Background()
	before := otel.GetTracerProvider()

	stop, err := setupTracing(ctx, envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("setupTracing() error = %v", err)
	}
	stop()
	if otel.GetTracerProvider() != before {
		t.Error("setupTracing() installed a tracer provider with tracing disabled")
	}

	if _, err := setupTracing(ctx, envconfig.MapLookuper(map[string]string{"ENABLE_TRACING": "maybe"})); err == nil {
		t.Error("setupTracing(ENABLE_TRACING=maybe) error = nil")
	}
}
