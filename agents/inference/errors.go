/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAttempts is returned when the attempt bound is not positive.
	ErrNoAttempts = errors.New("inference: attempt limit must be positive")

	// ErrEmptyConversation is returned for an invocation with no messages.
	ErrEmptyConversation = errors.New("inference: conversation is empty")

	// errNoText is the cause of a validation failure for replies that carry
	// no text part at all.
	errNoText = errors.New("reply has no text content")
)

// ExhaustedError is returned when every attempt produced a reply that failed
// validation. It unwraps to the last *schema.ValidationError.
type ExhaustedError struct {
	// Attempts is the number of remote calls made.
	Attempts int
	// Usage is that of the final rejected reply.
	Usage Usage
	Err   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no valid reply after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
