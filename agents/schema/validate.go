/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports a document that does not satisfy a schema, either
// because it is not JSON at all (Cause is set) or because it breaks one or
// more constraints (Details lists them).
type ValidationError struct {
	Schema  string
	Details []string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid JSON for %s: %v", e.Schema, e.Cause)
	}
	return fmt.Sprintf("%d validation error(s) for %s: %s", len(e.Details), e.Schema, strings.Join(e.Details, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Validator checks JSON documents against a compiled schema.
type Validator struct {
	name     string
	compiled *gojsonschema.Schema
}

// Compile prepares doc for validation. The $schema and $id keywords are
// dropped so the validator does not try to resolve draft metaschemas.
func Compile(name string, doc *jsonschema.Schema) (*Validator, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema %s: %w", name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("re-reading schema %s: %w", name, err)
	}
	delete(m, "$schema")
	delete(m, "$id")

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(m))
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return &Validator{name: name, compiled: compiled}, nil
}

// Name returns the schema name used in error messages.
func (v *Validator) Name() string {
	return v.name
}

// ValidateText checks a JSON text. Failures are *ValidationError.
func (v *Validator) ValidateText(text string) error {
	return v.validate(gojsonschema.NewStringLoader(text))
}

// ValidateValue checks an already decoded Go value. Failures are *ValidationError.
func (v *Validator) ValidateValue(value any) error {
	return v.validate(gojsonschema.NewGoLoader(value))
}

func (v *Validator) validate(doc gojsonschema.JSONLoader) error {
	res, err := v.compiled.Validate(doc)
	if err != nil {
		return &ValidationError{Schema: v.name, Cause: err}
	}
	if res.Valid() {
		return nil
	}
	details := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		details = append(details, desc.String())
	}
	return &ValidationError{Schema: v.name, Details: details}
}
