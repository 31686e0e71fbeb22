/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Repair unfences text and, when the payload is not valid JSON, attempts a
// syntactic repair (trailing commas, single quotes, unquoted keys, truncated
// objects). A repair is only kept if it yields a JSON object; otherwise the
// unfenced text is returned unchanged so schema validation reports the error.
func Repair(text string) string {
	payload := Unfence(text)
	if payload == "" || json.Valid([]byte(payload)) {
		return payload
	}
	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return payload
	}
	repaired = strings.TrimSpace(repaired)
	if !strings.HasPrefix(repaired, "{") || !json.Valid([]byte(repaired)) {
		return payload
	}
	return repaired
}
