/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/agents/agenttrace"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
	"github.com/siliconcrowds/siliconcrowds/agents/provider/claudeprovider"
	"github.com/siliconcrowds/siliconcrowds/agents/provider/googleprovider"
	"github.com/siliconcrowds/siliconcrowds/agents/provider/openaiprovider"
	"github.com/siliconcrowds/siliconcrowds/agents/retry"
	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/crowds/bucket"
	"github.com/siliconcrowds/siliconcrowds/crowds/config"
	"github.com/siliconcrowds/siliconcrowds/crowds/contextual"
	"github.com/siliconcrowds/siliconcrowds/crowds/database"
	"github.com/siliconcrowds/siliconcrowds/store/blobstore"
	"github.com/siliconcrowds/siliconcrowds/store/blobstore/gcsstore"
	"github.com/siliconcrowds/siliconcrowds/store/blobstore/s3store"
	"github.com/siliconcrowds/siliconcrowds/store/recordstore"
	"github.com/siliconcrowds/siliconcrowds/store/recordstore/pgstore"
	"github.com/siliconcrowds/siliconcrowds/store/supabase"
	"go.opentelemetry.io/otel/attribute"
)

// pipeline holds the opened stores. close releases them.
type pipeline struct {
	cfg    *config.Config
	db     *database.Database
	images *bucket.Bucket
	closer []func()
}

func (p *pipeline) close() {
	for i := len(p.closer) - 1; i >= 0; i-- {
		p.closer[i]()
	}
}

// assemble builds the evaluation contexts from the configured image folder.
func (p *pipeline) assemble(ctx context.Context) (*contextual.Contexts, error) {
	return contextual.Assemble(ctx, p.db, p.images,
		contextual.WithFolder(p.cfg.ImagePath),
		contextual.WithExpiry(p.cfg.SignedURLExpiry))
}

// openPipeline loads the configuration and opens the record and blob stores
// it selects.
func openPipeline(ctx context.Context, envFile string) (*pipeline, error) {
	cfg, err := config.Load(ctx, envFile)
	if err != nil {
		return nil, err
	}
	p := &pipeline{cfg: cfg}

	var sb *supabase.Client
	if cfg.RecordBackend == config.BackendSupabase || cfg.BlobBackend == config.BackendSupabase {
		sb, err = supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, supabase.WithTimeout(cfg.RequestTimeout))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", crowds.ErrConfig, err)
		}
	}

	reader, err := p.openRecords(ctx, sb)
	if err != nil {
		p.close()
		return nil, err
	}
	p.db, err = database.New(reader,
		database.WithPersonasTable(cfg.PersonasTable),
		database.WithPromptsTable(cfg.PromptsTable),
		database.WithQuestionsTable(cfg.QuestionsTable))
	if err != nil {
		p.close()
		return nil, err
	}

	store, err := p.openBlobs(ctx, sb)
	if err != nil {
		p.close()
		return nil, err
	}
	p.images, err = bucket.New(store)
	if err != nil {
		p.close()
		return nil, err
	}

	clog.FromContext(ctx).With("records", cfg.RecordBackend).With("blobs", cfg.BlobBackend).
		Debug("Opened stores")
	return p, nil
}

func (p *pipeline) openRecords(ctx context.Context, sb *supabase.Client) (recordstore.Reader, error) {
	switch p.cfg.RecordBackend {
	case config.BackendSupabase:
		return sb, nil
	case config.BackendPostgres:
		var opts []pgstore.Option
		if p.cfg.DBSchema != "" {
			opts = append(opts, pgstore.WithSchema(p.cfg.DBSchema))
		}
		store, err := pgstore.Open(ctx, p.cfg.DatabaseURL, opts...)
		if err != nil {
			return nil, err
		}
		p.closer = append(p.closer, store.Close)
		return store, nil
	}
	return nil, fmt.Errorf("%w: unknown record backend %q", crowds.ErrConfig, p.cfg.RecordBackend)
}

func (p *pipeline) openBlobs(ctx context.Context, sb *supabase.Client) (blobstore.Bucket, error) {
	switch p.cfg.BlobBackend {
	case config.BackendSupabase:
		return sb.Bucket(p.cfg.ImageBucket), nil
	case config.BackendS3:
		return s3store.New(s3store.Config{
			Endpoint:  p.cfg.S3Endpoint,
			AccessKey: p.cfg.S3AccessKey,
			SecretKey: p.cfg.S3SecretKey,
			Region:    p.cfg.S3Region,
			UseSSL:    p.cfg.S3UseSSL,
			Bucket:    p.cfg.ImageBucket,
		})
	case config.BackendGCS:
		store, err := gcsstore.New(ctx, p.cfg.ImageBucket)
		if err != nil {
			return nil, err
		}
		p.closer = append(p.closer, func() { _ = store.Close() })
		return store, nil
	}
	return nil, fmt.Errorf("%w: unknown blob backend %q", crowds.ErrConfig, p.cfg.BlobBackend)
}

// newProvider builds the configured remote inference provider and the
// classifier of its transient errors.
func newProvider(ctx context.Context, cfg *config.Config) (inference.Provider, retry.Classifier, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		opts := []openaiprovider.Option{openaiprovider.WithAPIKey(cfg.FireworksAPIKey)}
		if cfg.FireworksBaseURL != "" {
			opts = append(opts, openaiprovider.WithBaseURL(cfg.FireworksBaseURL))
		}
		p, err := openaiprovider.New(opts...)
		return p, openaiprovider.IsRetryable, err

	case config.ProviderClaude:
		opt := claudeprovider.WithVertex(cfg.VertexRegion, cfg.VertexProject)
		if cfg.AnthropicAPIKey != "" {
			opt = claudeprovider.WithAPIKey(cfg.AnthropicAPIKey)
		}
		p, err := claudeprovider.New(ctx, opt)
		return p, claudeprovider.IsRetryable, err

	case config.ProviderGoogle:
		opt := googleprovider.WithVertex(cfg.VertexRegion, cfg.VertexProject)
		if cfg.GeminiAPIKey != "" {
			opt = googleprovider.WithAPIKey(cfg.GeminiAPIKey)
		}
		p, err := googleprovider.New(ctx, opt)
		return p, googleprovider.IsRetryable, err
	}
	return nil, nil, fmt.Errorf("%w: unknown inference provider %q", crowds.ErrConfig, cfg.Provider)
}

// newClient builds the inference client from cfg. The inference settings
// are validated here rather than at load so that listing commands run
// without model credentials.
func newClient(ctx context.Context, cfg *config.Config) (*inference.Client, error) {
	if err := cfg.ValidateInference(); err != nil {
		return nil, err
	}
	provider, isRetryable, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Provider, err)
	}

	opts := []inference.Option{
		inference.WithTemperature(cfg.Temperature),
		inference.WithDefaultRetries(cfg.Retries),
		inference.WithTimeout(cfg.RequestTimeout),
		inference.WithAttributeEnricher(func(ctx context.Context, attrs []attribute.KeyValue) []attribute.KeyValue {
			return agenttrace.GetExecutionContext(ctx).EnrichAttributes(attrs)
		}),
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, inference.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.TransportRetries > 0 {
		backoff := retry.Backoff()
		backoff.MaxRetries = cfg.TransportRetries
		opts = append(opts, inference.WithTransportRetry(backoff, isRetryable))
	}
	if cfg.RequestsPerSec > 0 {
		opts = append(opts, inference.WithRateLimit(cfg.RequestsPerSec, 1))
	}
	return inference.New(provider, cfg.Model, opts...)
}
