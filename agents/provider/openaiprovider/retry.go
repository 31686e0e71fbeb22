/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiprovider

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/siliconcrowds/siliconcrowds/agents/retry"
)

// IsRetryable reports whether err is a transient API error: rate limits,
// overload and gateway failures.
func IsRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retry.StatusCode(apiErr.StatusCode)
	}
	return false
}
