/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package openaiprovider implements inference.Provider over any OpenAI
compatible chat completions endpoint. Fireworks is the default:

	p, err := openaiprovider.New(
		openaiprovider.WithAPIKey(os.Getenv("FIREWORKS_API_KEY")),
	)
	client, err := inference.New(p, "accounts/fireworks/models/qwen3-235b-a22b")

Structured requests use the json_schema response format with the schema
reflected from the Go type. The reasoning_content field some hosts add to
the reply message is returned as Reply.Reasoning.

The SDK's own retries are disabled; every Complete is exactly one HTTP
request. Pair the provider with inference.WithTransportRetry and IsRetryable
to retry rate limits.
*/
package openaiprovider
