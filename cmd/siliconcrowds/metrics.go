/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type telemetryConfig struct {
	EnableTracing bool `env:"ENABLE_TRACING,default=false"`
}

// setupTracing installs the Cloud Trace exporter for the inference spans
// when ENABLE_TRACING is set. The returned func flushes it.
func setupTracing(ctx context.Context, l envconfig.Lookuper) (func(), error) {
	var cfg telemetryConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if !cfg.EnableTracing {
		return func() {}, nil
	}
	clog.FromContext(ctx).Info("Exporting traces")
	return httpmetrics.SetupTracer(ctx), nil
}

// serveMetrics exports the OpenTelemetry inference counters through the
// default Prometheus registry and serves it on port. Port 0 disables it.
// The returned func stops the server.
func serveMetrics(ctx context.Context, port int) (func(), error) {
	if port == 0 {
		return func() {}, nil
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listening on metrics port: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	log := clog.FromContext(ctx).With("port", port)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.With("error", err).Error("Metrics server failed")
		}
	}()
	log.Info("Serving metrics")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}
