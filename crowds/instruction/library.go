/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package instruction holds the prompt templates by category and renders
// them into conversations.
package instruction

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
)

// Source supplies templates by category. *database.Database implements it.
type Source interface {
	GetPromptsByCategory(ctx context.Context, category entity.Category) (map[string]entity.Prompt, error)
}

// Library is an immutable set of templates keyed by category then name.
type Library struct {
	prompts map[entity.Category]map[string]entity.Prompt
}

// New builds a Library from prompts already in memory.
func New(prompts map[entity.Category]map[string]entity.Prompt) *Library {
	l := &Library{prompts: make(map[entity.Category]map[string]entity.Prompt, len(prompts))}
	for c, byName := range prompts {
		l.prompts[c] = maps.Clone(byName)
	}
	return l
}

// Load reads every category from src once.
func Load(ctx context.Context, src Source) (*Library, error) {
	l := &Library{prompts: make(map[entity.Category]map[string]entity.Prompt, 3)}
	for _, c := range entity.Categories() {
		byName, err := src.GetPromptsByCategory(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("loading %s prompts: %w", c, err)
		}
		l.prompts[c] = byName
		clog.FromContext(ctx).With("category", c).With("templates", len(byName)).Debug("Loaded prompts")
	}
	return l, nil
}

// Prompt returns the template name in category, or crowds.ErrNotFound.
func (l *Library) Prompt(category entity.Category, name string) (entity.Prompt, error) {
	p, ok := l.prompts[category][name]
	if !ok {
		return entity.Prompt{}, fmt.Errorf("prompt %q in %s: %w", name, category, crowds.ErrNotFound)
	}
	return p, nil
}

// GetBaselinePrompt returns a baseline template by name.
func (l *Library) GetBaselinePrompt(name string) (entity.Prompt, error) {
	return l.Prompt(entity.CategoryBaseline, name)
}

// GetGenericPersonaPrompt returns a generic persona template by name.
func (l *Library) GetGenericPersonaPrompt(name string) (entity.Prompt, error) {
	return l.Prompt(entity.CategoryGenericPersona, name)
}

// GetSpecificPersonaPrompt returns a specific persona template by name.
func (l *Library) GetSpecificPersonaPrompt(name string) (entity.Prompt, error) {
	return l.Prompt(entity.CategorySpecificPersona, name)
}

// Names returns the template names of category, sorted.
func (l *Library) Names(category entity.Category) []string {
	return slices.Sorted(maps.Keys(l.prompts[category]))
}
