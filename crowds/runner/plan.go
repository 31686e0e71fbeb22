/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/siliconcrowds/siliconcrowds/agents/answer"
	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
	"gopkg.in/yaml.v3"
)

// Plan describes a batch run. Empty selections mean "all".
//
//	run_id: pilot-2026-10
//	concurrency: 4
//	keep_going: true
//	retries: 3
//	default_answer_type: numeric
//	questions: [q1, q2]
//	templates:
//	  - category: baseline
//	    names: [baseline_instructional_1]
//	  - category: generic_persona
//	personas: [1, 2, 3]
//	persona_limit: 10
type Plan struct {
	RunID             string        `yaml:"run_id"`
	Concurrency       int           `yaml:"concurrency"`
	KeepGoing         bool          `yaml:"keep_going"`
	Retries           int           `yaml:"retries"`
	DefaultAnswerType string        `yaml:"default_answer_type"`
	Questions         []string      `yaml:"questions"`
	Templates         []TemplateSet `yaml:"templates"`
	Personas          []int         `yaml:"personas"`
	PersonaLimit      int           `yaml:"persona_limit"`
}

// TemplateSet selects templates of one category.
type TemplateSet struct {
	Category entity.Category `yaml:"category"`
	Names    []string        `yaml:"names"`
}

// LoadPlan reads a YAML plan from path.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a YAML plan. Unknown keys are rejected.
func ParsePlan(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: plan is empty", crowds.ErrConfig)
		}
		return nil, fmt.Errorf("%w: parsing plan: %w", crowds.ErrConfig, err)
	}
	if p.Concurrency == 0 {
		p.Concurrency = 1
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the plan's settings.
func (p *Plan) Validate() error {
	if p.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", crowds.ErrConfig, p.Concurrency)
	}
	if p.Retries < 0 {
		return fmt.Errorf("%w: retries cannot be negative, got %d", crowds.ErrConfig, p.Retries)
	}
	if p.PersonaLimit < 0 {
		return fmt.Errorf("%w: persona_limit cannot be negative, got %d", crowds.ErrConfig, p.PersonaLimit)
	}
	if p.DefaultAnswerType != "" {
		if _, ok := answer.ForType(p.DefaultAnswerType); !ok {
			return fmt.Errorf("%w: unknown default_answer_type %q", crowds.ErrConfig, p.DefaultAnswerType)
		}
	}
	if len(p.Templates) == 0 {
		return fmt.Errorf("%w: plan selects no templates", crowds.ErrConfig)
	}
	for i, ts := range p.Templates {
		if !ts.Category.Valid() {
			return fmt.Errorf("%w: templates[%d]: unknown category %q", crowds.ErrConfig, i, ts.Category)
		}
	}
	return nil
}

// Options converts the plan's run settings into runner options.
func (p *Plan) Options() []Option {
	opts := []Option{
		WithConcurrency(p.Concurrency),
		WithKeepGoing(p.KeepGoing),
	}
	if p.RunID != "" {
		opts = append(opts, WithRunID(p.RunID))
	}
	if p.Retries > 0 {
		opts = append(opts, WithRetries(p.Retries))
	}
	if p.DefaultAnswerType != "" {
		opts = append(opts, WithDefaultAnswerType(p.DefaultAnswerType))
	}
	return opts
}
