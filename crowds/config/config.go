/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config reads pipeline settings from the environment and an
// optional .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/siliconcrowds/siliconcrowds/crowds"
)

// Backend names.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendGCS      = "gcs"

	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGoogle = "google"
)

// DefaultEnvFile is read when Load is given no path.
const DefaultEnvFile = ".env"

// Config is every setting the pipeline reads.
type Config struct {
	// Record and blob backends.
	RecordBackend string `env:"RECORD_BACKEND,default=supabase"`
	BlobBackend   string `env:"BLOB_BACKEND,default=supabase"`

	SupabaseURL string `env:"SUPABASE_URL"`
	SupabaseKey string `env:"SUPABASE_KEY"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Region    string `env:"S3_REGION"`
	S3UseSSL    bool   `env:"S3_USE_SSL,default=true"`

	PersonasTable   string        `env:"PERSONAS_TABLE,default=personas_representative"`
	PromptsTable    string        `env:"PROMPTS_TABLE,default=prompts"`
	QuestionsTable  string        `env:"QUESTIONS_TABLE,default=questions"`
	ImageBucket     string        `env:"IMAGE_BUCKET,default=pilot_images"`
	ImagePath       string        `env:"IMAGE_PATH,default=pilot_images"`
	SignedURLExpiry time.Duration `env:"SIGNED_URL_EXPIRY,default=30m"`

	// Inference.
	Provider         string        `env:"INFERENCE_PROVIDER,default=openai"`
	Model            string        `env:"MODEL,default=accounts/fireworks/models/qwen3-vl-30b-a3b-thinking"`
	FireworksAPIKey  string        `env:"FIREWORKS_API_KEY"`
	FireworksBaseURL string        `env:"FIREWORKS_BASE_URL"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	VertexProject    string        `env:"VERTEX_PROJECT"`
	VertexRegion     string        `env:"VERTEX_REGION"`
	Temperature      float64       `env:"TEMPERATURE,default=0.1"`
	MaxTokens        int64         `env:"MAX_TOKENS,default=0"`
	Retries          int           `env:"RETRIES,default=2"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT,default=120s"`
	TransportRetries int           `env:"TRANSPORT_RETRIES,default=0"`
	RequestsPerSec   float64       `env:"REQUESTS_PER_SECOND,default=0"`

	// Serving.
	MetricsPort int `env:"METRICS_PORT,default=0"`
}

// Load reads the process environment, falling back to the variables in
// envFile (DefaultEnvFile when empty). A missing envFile is not an error.
// The result is validated.
func Load(ctx context.Context, envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: reading %s: %w", crowds.ErrConfig, envFile, err)
	}
	return LoadFrom(ctx, envconfig.MultiLookuper(envconfig.OsLookuper(), envconfig.MapLookuper(dotenv)))
}

// LoadFrom reads a Config from l and validates its store settings.
// Inference settings are checked by ValidateInference when a client is
// built, so commands that only read the stores need no model credentials.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("%w: %w", crowds.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type problems []error

func (p *problems) fail(format string, args ...any) {
	*p = append(*p, fmt.Errorf("%w: %s", crowds.ErrConfig, fmt.Sprintf(format, args...)))
}

// Validate checks that the selected record and blob backends have their
// credentials and that the store settings are usable. Each problem is
// reported; all of them match crowds.ErrConfig.
func (c *Config) Validate() error {
	var errs problems
	fail := errs.fail
	supabase := func(what string) {
		if c.SupabaseURL == "" {
			fail("SUPABASE_URL is not set (required by %s)", what)
		}
		if c.SupabaseKey == "" {
			fail("SUPABASE_KEY is not set (required by %s)", what)
		}
	}

	switch c.RecordBackend {
	case BackendSupabase:
		supabase("RECORD_BACKEND=supabase")
	case BackendPostgres:
		if c.DatabaseURL == "" {
			fail("DATABASE_URL is not set")
		}
	default:
		fail("unknown RECORD_BACKEND %q", c.RecordBackend)
	}

	switch c.BlobBackend {
	case BackendSupabase:
		if c.RecordBackend != BackendSupabase {
			supabase("BLOB_BACKEND=supabase")
		}
	case BackendS3:
		if c.S3Endpoint == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
			fail("S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY must be set")
		}
	case BackendGCS:
	default:
		fail("unknown BLOB_BACKEND %q", c.BlobBackend)
	}

	if c.RequestTimeout <= 0 {
		fail("REQUEST_TIMEOUT must be positive, got %v", c.RequestTimeout)
	}
	if c.SignedURLExpiry <= 0 {
		fail("SIGNED_URL_EXPIRY must be positive, got %v", c.SignedURLExpiry)
	}
	for name, v := range map[string]string{
		"PERSONAS_TABLE":  c.PersonasTable,
		"PROMPTS_TABLE":   c.PromptsTable,
		"QUESTIONS_TABLE": c.QuestionsTable,
		"IMAGE_BUCKET":    c.ImageBucket,
		"IMAGE_PATH":      c.ImagePath,
	} {
		if v == "" {
			fail("%s cannot be empty", name)
		}
	}
	return errors.Join(errs...)
}

// ValidateInference checks that the selected provider has its credentials
// and that the sampling and retry settings are usable.
func (c *Config) ValidateInference() error {
	var errs problems
	fail := errs.fail

	switch c.Provider {
	case ProviderOpenAI:
		if c.FireworksAPIKey == "" {
			fail("FIREWORKS_API_KEY is not set")
		}
	case ProviderClaude:
		if c.AnthropicAPIKey == "" && (c.VertexProject == "" || c.VertexRegion == "") {
			fail("ANTHROPIC_API_KEY or VERTEX_PROJECT with VERTEX_REGION must be set")
		}
	case ProviderGoogle:
		if c.GeminiAPIKey == "" && c.VertexRegion == "" {
			fail("GEMINI_API_KEY or VERTEX_REGION must be set")
		}
	default:
		fail("unknown INFERENCE_PROVIDER %q", c.Provider)
	}

	if c.Model == "" {
		fail("MODEL is not set")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		fail("TEMPERATURE must be between 0 and 2, got %v", c.Temperature)
	}
	if c.MaxTokens < 0 {
		fail("MAX_TOKENS cannot be negative, got %d", c.MaxTokens)
	}
	if c.Retries < 1 {
		fail("RETRIES must be at least 1, got %d", c.Retries)
	}
	if c.TransportRetries < 0 {
		fail("TRANSPORT_RETRIES cannot be negative, got %d", c.TransportRetries)
	}
	if c.RequestsPerSec < 0 {
		fail("REQUESTS_PER_SECOND cannot be negative, got %v", c.RequestsPerSec)
	}
	return errors.Join(errs...)
}
