/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package crowds

import "errors"

var (
	// ErrConfig marks a missing or invalid configuration value.
	// It is raised before any network call and never retried.
	ErrConfig = errors.New("configuration error")

	// ErrNotFound marks a lookup that found nothing: an empty blob listing,
	// an unknown template name or a missing context.
	ErrNotFound = errors.New("not found")
)
