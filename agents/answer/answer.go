/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package answer defines the answer shapes a model must reply with.
package answer

import (
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/siliconcrowds/siliconcrowds/agents/schema"
)

// TimePattern is the mm:ss shape of a TimeAnswer.
const TimePattern = `^\d{1,2}:[0-5]\d$`

// NumericAnswer is an integer answer to a counting question.
type NumericAnswer struct {
	Answer int `json:"answer"`
}

// JSONSchemaExtend sets the required field and its description.
func (NumericAnswer) JSONSchemaExtend(s *jsonschema.Schema) {
	s.Required = []string{"answer"}
	if p, ok := s.Properties.Get("answer"); ok {
		p.Description = "Integer numeric answer only (e.g., '13', '1242'). " +
			"Return the raw integer with no units or explanatory text. " +
			"Use for questions that are NOT about time duration. " +
			"Examples of numeric questions: " +
			"'How many tries does it take?', " +
			"'How many goals will they score within 60 seconds?', " +
			"'How many dogs will run from A to B?'"
	}
}

// TimeAnswer is a duration answer in mm:ss form.
type TimeAnswer struct {
	Answer string `json:"answer"`
}

// JSONSchemaExtend sets the required field, its pattern and description.
// The pattern holds a comma, so it cannot live in a struct tag.
func (TimeAnswer) JSONSchemaExtend(s *jsonschema.Schema) {
	s.Required = []string{"answer"}
	if p, ok := s.Properties.Get("answer"); ok {
		p.Pattern = TimePattern
		p.Description = "Time duration in mm:ss format (e.g., '00:48', '29:57'). " +
			"mm:ss corresponds to minutes:seconds. " +
			"Only use for questions asking how long something takes or how much time passes. " +
			"Examples of time questions: " +
			"'How long will it take to accomplish the task?', " +
			"'How much time does it take to go from A to B?'"
	}
}

var (
	// Numeric is the schema for NumericAnswer.
	Numeric = schema.Must(schema.Named[NumericAnswer]("NumericSchema"))
	// Time is the schema for TimeAnswer.
	Time = schema.Must(schema.Named[TimeAnswer]("TimeSchema"))
)

// ForType picks the answer schema for a question's answer-type tag.
// Unknown or empty tags select no schema.
func ForType(tag string) (schema.Structured, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "numeric", "number", "integer", "int", "count":
		return Numeric, true
	case "time", "duration", "mm:ss":
		return Time, true
	}
	return nil, false
}
