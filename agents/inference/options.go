/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package inference

import (
	"errors"
	"fmt"
	"time"

	"github.com/siliconcrowds/siliconcrowds/agents/metrics"
	"github.com/siliconcrowds/siliconcrowds/agents/retry"
	"github.com/siliconcrowds/siliconcrowds/agents/schema"
	"golang.org/x/time/rate"
)

// Option configures a Client.
type Option func(*Client) error

// WithTemperature sets the sampling temperature, between 0 and 2.
func WithTemperature(temp float64) Option {
	return func(c *Client) error {
		if temp < 0 || temp > 2 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		c.sampling.Temperature = temp
		return nil
	}
}

// WithMaxTokens caps the length of each reply.
func WithMaxTokens(tokens int64) Option {
	return func(c *Client) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		c.sampling.MaxTokens = tokens
		return nil
	}
}

// WithDefaultRetries sets the attempt bound used when an invocation does not
// pass WithRetries.
func WithDefaultRetries(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return fmt.Errorf("default retries must be positive, got %d", n)
		}
		c.retries = n
		return nil
	}
}

// WithTimeout bounds each remote call. Zero disables the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("timeout cannot be negative, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithTransportRetry enables backoff for transient provider errors, as
// classified by isRetryable. Each backoff retry still counts as one attempt.
func WithTransportRetry(cfg retry.Config, isRetryable retry.Classifier) Option {
	return func(c *Client) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
		if isRetryable == nil {
			return errors.New("retry classifier cannot be nil")
		}
		c.transport = cfg
		c.isRetryable = isRetryable
		return nil
	}
}

// WithRateLimit paces remote calls to at most rps per second, shared by every
// invocation on the client.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			return fmt.Errorf("rate must be positive, got %v", rps)
		}
		if burst < 1 {
			return fmt.Errorf("burst must be at least 1, got %d", burst)
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithAttributeEnricher adds contextual attributes to every recorded metric.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(c *Client) error {
		c.metrics.SetAttributeEnricher(enricher)
		return nil
	}
}

// InvokeOption configures a single invocation.
type InvokeOption func(*invocation)

type invocation struct {
	schema  schema.Structured
	retries int
}

// WithSchema requires the reply to satisfy s.
func WithSchema(s schema.Structured) InvokeOption {
	return func(i *invocation) {
		i.schema = s
	}
}

// WithRetries sets the maximum number of remote calls for this invocation.
func WithRetries(n int) InvokeOption {
	return func(i *invocation) {
		i.retries = n
	}
}
