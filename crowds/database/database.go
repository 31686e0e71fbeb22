/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package database reads personas, prompt templates and questions from a
// record store.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
	"github.com/siliconcrowds/siliconcrowds/store/recordstore"
)

// Default table names.
const (
	DefaultPersonasTable  = "personas_representative"
	DefaultPromptsTable   = "prompts"
	DefaultQuestionsTable = "questions"
)

// Database is a typed view of the record store.
type Database struct {
	reader         recordstore.Reader
	personasTable  string
	promptsTable   string
	questionsTable string
}

// Option configures a Database.
type Option func(*Database) error

// WithPersonasTable overrides DefaultPersonasTable.
func WithPersonasTable(name string) Option {
	return func(d *Database) error {
		if name == "" {
			return errors.New("personas table name cannot be empty")
		}
		d.personasTable = name
		return nil
	}
}

// WithPromptsTable overrides DefaultPromptsTable.
func WithPromptsTable(name string) Option {
	return func(d *Database) error {
		if name == "" {
			return errors.New("prompts table name cannot be empty")
		}
		d.promptsTable = name
		return nil
	}
}

// WithQuestionsTable overrides DefaultQuestionsTable.
func WithQuestionsTable(name string) Option {
	return func(d *Database) error {
		if name == "" {
			return errors.New("questions table name cannot be empty")
		}
		d.questionsTable = name
		return nil
	}
}

// New creates a Database over reader.
func New(reader recordstore.Reader, opts ...Option) (*Database, error) {
	if reader == nil {
		return nil, errors.New("record reader cannot be nil")
	}
	d := &Database{
		reader:         reader,
		personasTable:  DefaultPersonasTable,
		promptsTable:   DefaultPromptsTable,
		questionsTable: DefaultQuestionsTable,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return d, nil
}

// GetPersonas returns every persona.
func (d *Database) GetPersonas(ctx context.Context) ([]entity.Persona, error) {
	return recordstore.Fetch[entity.Persona](ctx, d.reader, d.personasTable)
}

// GetPromptsByCategory returns the templates of category keyed by template
// name. When two rows share a name the later one wins.
func (d *Database) GetPromptsByCategory(ctx context.Context, category entity.Category) (map[string]entity.Prompt, error) {
	prompts, err := recordstore.Fetch[entity.Prompt](ctx, d.reader, d.promptsTable,
		recordstore.Eq("category", string(category)))
	if err != nil {
		return nil, err
	}
	out := make(map[string]entity.Prompt, len(prompts))
	for _, p := range prompts {
		if _, dup := out[p.TemplateName]; dup {
			clog.FromContext(ctx).With("template", p.TemplateName).With("category", category).
				Warn("Duplicate template name, keeping the later row")
		}
		out[p.TemplateName] = p
	}
	return out, nil
}

// GetBaselinePrompts returns the baseline templates.
func (d *Database) GetBaselinePrompts(ctx context.Context) (map[string]entity.Prompt, error) {
	return d.GetPromptsByCategory(ctx, entity.CategoryBaseline)
}

// GetGenericPersonaPrompts returns the generic persona templates.
func (d *Database) GetGenericPersonaPrompts(ctx context.Context) (map[string]entity.Prompt, error) {
	return d.GetPromptsByCategory(ctx, entity.CategoryGenericPersona)
}

// GetSpecificPersonaPrompts returns the specific persona templates.
func (d *Database) GetSpecificPersonaPrompts(ctx context.Context) (map[string]entity.Prompt, error) {
	return d.GetPromptsByCategory(ctx, entity.CategorySpecificPersona)
}

// GetQuestions returns every question in store order.
func (d *Database) GetQuestions(ctx context.Context) ([]entity.Question, error) {
	return recordstore.Fetch[entity.Question](ctx, d.reader, d.questionsTable)
}
