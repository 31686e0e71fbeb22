/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result normalizes structured replies from models that have no
// native JSON mode and are only instructed to answer with JSON.
//
// Such models frequently wrap the object in a markdown code fence or add a
// sentence around it. Unfence recovers the payload so strict decoding in the
// inference client sees the bare document:
//
//	text := result.Unfence("Here you go:\n```json\n{\"answer\": 3}\n```")
//	// text == `{"answer": 3}`
//
// Repair additionally fixes syntax slips such as trailing commas. It never
// invents content, so a reply that is not an object is left for schema
// validation to reject.
package result
