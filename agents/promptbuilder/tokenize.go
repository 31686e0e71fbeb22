/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// segment is either literal text or a field reference.
type segment struct {
	literal string
	field   string
}

func (s segment) isField() bool {
	return s.field != ""
}

// tokenize splits a template into literal and field segments.
func tokenize(template string) ([]segment, error) {
	var segments []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segments = append(segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{' && strings.HasPrefix(template[i:], "{{"):
			lit.WriteByte('{')
			i += 2

		case c == '}' && strings.HasPrefix(template[i:], "}}"):
			lit.WriteByte('}')
			i += 2

		case c == '}':
			return nil, fmt.Errorf("single '}' at offset %d", i)

		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end == -1 {
				return nil, errors.New("unclosed field: missing '}'")
			}
			name := template[i+1 : i+1+end]
			if !isValidIdentifier(name) {
				return nil, fmt.Errorf("invalid field %q", name)
			}
			flush()
			segments = append(segments, segment{field: name})
			i += end + 2

		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()

	return segments, nil
}

// isValidIdentifier checks if a string is a valid field name.
// Valid names start with a letter or underscore and contain only letters,
// digits and underscores.
func isValidIdentifier(s string) bool {
	if len(s) == 0 {
		return false
	}
	runes := []rune(s)
	if !unicode.IsLetter(runes[0]) && runes[0] != '_' {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
