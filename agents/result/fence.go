/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"strings"
)

// Unfence returns the contents of the first fenced code block in text whose
// info string is empty or "json". Without such a block it returns text
// trimmed of surrounding whitespace and any stray fence markers.
func Unfence(text string) string {
	var (
		body    []string
		inBlock bool
		found   bool
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inBlock {
			if trimmed == "```json" || trimmed == "```JSON" || (trimmed == "```" && !found) {
				inBlock, found = true, true
			}
			continue
		}
		if trimmed == "```" {
			break
		}
		body = append(body, line)
	}
	if found {
		return strings.TrimSpace(strings.Join(body, "\n"))
	}

	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
