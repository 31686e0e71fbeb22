/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"maps"
	"strings"
)

// Prompt is a parsed template with bindable fields.
type Prompt struct {
	segments []segment
	bindings map[string]*string
}

// NewPrompt parses a template and collects its fields.
func NewPrompt(template string) (*Prompt, error) {
	segments, err := tokenize(template)
	if err != nil {
		return nil, err
	}

	bindings := make(map[string]*string)
	for _, s := range segments {
		if s.isField() {
			bindings[s.field] = nil
		}
	}

	return &Prompt{
		segments: segments,
		bindings: bindings,
	}, nil
}

// GetBindings returns the names of all fields found in the template as a set.
func (p *Prompt) GetBindings() map[string]struct{} {
	names := make(map[string]struct{}, len(p.bindings))
	for name := range p.bindings {
		names[name] = struct{}{}
	}
	return names
}

// Has reports whether the template references the named field.
func (p *Prompt) Has(name string) bool {
	_, ok := p.bindings[name]
	return ok
}

// Bind binds a value to a field and returns a new Prompt.
// The field must exist and must not be bound yet.
func (p *Prompt) Bind(name, value string) (*Prompt, error) {
	b, exists := p.bindings[name]
	if !exists {
		return nil, fmt.Errorf("binding %q not found in template", name)
	}
	if b != nil {
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	np := &Prompt{
		segments: p.segments,
		bindings: maps.Clone(p.bindings),
	}
	np.bindings[name] = &value
	return np, nil
}

// Build renders the prompt, returning an error if any field is unbound.
func (p *Prompt) Build() (string, error) {
	var sb strings.Builder
	for _, s := range p.segments {
		if !s.isField() {
			sb.WriteString(s.literal)
			continue
		}
		v := p.bindings[s.field]
		if v == nil {
			return "", fmt.Errorf("unbound placeholder: %s", s.field)
		}
		sb.WriteString(*v)
	}
	return sb.String(), nil
}

// Render binds every field the template uses from values and builds the
// result. Entries in values that the template does not use are ignored;
// a field with no entry is an error.
func (p *Prompt) Render(values map[string]string) (string, error) {
	bound := p
	for name, b := range p.bindings {
		if b != nil {
			continue
		}
		v, ok := values[name]
		if !ok {
			return "", fmt.Errorf("no value for placeholder %q", name)
		}
		next, err := bound.Bind(name, v)
		if err != nil {
			return "", err
		}
		bound = next
	}
	return bound.Build()
}
