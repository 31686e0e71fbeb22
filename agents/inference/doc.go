/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package inference executes a conversation against a remote model and, when a
schema is supplied, keeps asking until the reply satisfies it or the attempt
bound runs out.

# Overview

A Client pairs a Provider (the remote API) with a model name and a fixed
sampling configuration:

	client, err := inference.New(provider, "accounts/fireworks/models/qwen3",
		inference.WithTemperature(0.1),
		inference.WithDefaultRetries(2),
	)

Invoke without a schema returns the first reply as an assistant message:

	res, err := client.Invoke(ctx, []conversation.Message{
		conversation.User(conversation.Text("What is the capital of France?")),
	})

With a schema, the first text part of each reply is parsed. A reply that
fails is appended to the conversation together with a correction request and
the model is asked again:

	res, err := client.Invoke(ctx, msgs, inference.WithSchema(answer.Numeric))
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		// every attempt was rejected
	}

InvokeAs decodes directly into a Go type:

	got, res, err := inference.InvokeAs[answer.NumericAnswer](ctx, client, msgs)

# Attempts

The bound counts calls, not retries: WithRetries(n) makes at most n remote
calls. Each failed attempt grows the conversation by exactly two messages.
Errors from the provider end the invocation immediately; opt into backoff for
transient transport errors with WithTransportRetry.
*/
package inference
