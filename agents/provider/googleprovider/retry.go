/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleprovider

import (
	"errors"
	"strings"

	"github.com/siliconcrowds/siliconcrowds/agents/retry"
	"google.golang.org/genai"
)

// IsRetryable checks if an error is a retryable Gemini error.
// Returns true for rate limit, quota exhaustion, and transient server errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.StatusCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return retry.StatusCode(apiErrPtr.Code)
	}
	errStr := err.Error()
	return strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "Resource exhausted") ||
		strings.Contains(errStr, "UNAVAILABLE") ||
		strings.Contains(errStr, "Overloaded")
}
