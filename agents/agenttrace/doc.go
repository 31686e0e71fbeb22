/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace records what happened during one inference invocation.

# Overview

  - ExecutionContext: evaluation metadata (question, template, category,
    persona) carried on the Go context and used to enrich spans and metrics
  - Trace: one invocation from the first attempt to the final result
  - Attempt: one remote call within a trace and its validation outcome
  - Tracer: creates traces and receives them once they complete

# Usage

	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		QuestionID:   "q1",
		TemplateName: "baseline_v2",
		Category:     "baseline",
	})

	tracer := agenttrace.ByCode(func(trace *agenttrace.Trace) {
		log.Printf("trace %s took %d attempts", trace.ID, len(trace.Attempts))
	})
	ctx = agenttrace.WithTracer(ctx, tracer)

	trace := agenttrace.StartTrace(ctx, "accounts/fireworks/models/qwen3")
	attempt := trace.StartAttempt()
	attempt.Complete(`{"answer": 3}`, nil)
	trace.Complete(3, nil)

Without a tracer on the context, traces are logged through clog at debug
level.
*/
package agenttrace
