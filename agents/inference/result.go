/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package inference

import (
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
)

// Result is the outcome of a successful invocation.
type Result struct {
	ID        string               `json:"id"`
	Message   conversation.Message `json:"message"`
	Reasoning string               `json:"reasoning,omitempty"`
	Model     string               `json:"model"`
	// Usage is that of the final attempt only.
	Usage Usage `json:"usage"`
	// Structured is the parsed payload; nil when no schema was requested.
	Structured any `json:"structured,omitempty"`
	// Attempts is the number of remote calls made.
	Attempts int `json:"attempts"`
}

// Text returns the first text part of the reply.
func (r *Result) Text() string {
	s, _ := r.Message.FirstText()
	return s
}
