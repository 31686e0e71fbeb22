/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Structured is a shape a model reply must parse into.
type Structured interface {
	// Name identifies the schema on the wire and in errors.
	Name() string
	// Document is the JSON Schema sent to the model.
	Document() *jsonschema.Schema
	// Parse validates text and returns the decoded payload.
	// Failures are *ValidationError.
	Parse(text string) (any, error)
}

// Typed is a Structured schema reflected from the Go type T.
type Typed[T any] struct {
	document  *jsonschema.Schema
	validator *Validator
}

var _ Structured = (*Typed[struct{}])(nil)

// For reflects T into a Structured schema named after the type.
func For[T any]() (*Typed[T], error) {
	name := reflect.TypeFor[T]().Name()
	if name == "" {
		name = "response"
	}
	return Named[T](name)
}

// Named is For with an explicit schema name.
func Named[T any](name string) (*Typed[T], error) {
	doc := ReflectType[T]()
	v, err := Compile(name, doc)
	if err != nil {
		return nil, err
	}
	return &Typed[T]{document: doc, validator: v}, nil
}

// MustFor is For that panics on error, for package-level schema variables.
func MustFor[T any]() *Typed[T] {
	t, err := For[T]()
	if err != nil {
		panic(err)
	}
	return t
}

// Name implements Structured.
func (t *Typed[T]) Name() string {
	return t.validator.Name()
}

// Document implements Structured.
func (t *Typed[T]) Document() *jsonschema.Schema {
	return t.document
}

// Decode validates text against the schema and unmarshals it into T.
func (t *Typed[T]) Decode(text string) (T, error) {
	var out T
	if err := t.validator.ValidateText(text); err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, &ValidationError{Schema: t.Name(), Cause: err}
	}
	return out, nil
}

// Parse implements Structured.
func (t *Typed[T]) Parse(text string) (any, error) {
	v, err := t.Decode(text)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Must panics if err is non-nil and returns t otherwise.
func Must[T any](t *Typed[T], err error) *Typed[T] {
	if err != nil {
		panic(err)
	}
	return t
}
