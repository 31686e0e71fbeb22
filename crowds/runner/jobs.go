/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/crowds/contextual"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
	"github.com/siliconcrowds/siliconcrowds/crowds/instruction"
)

// Job is one prompt sent for one question, optionally as one persona.
type Job struct {
	Category   entity.Category
	Template   string
	QuestionID string
	Persona    *entity.Persona
}

// PersonaID is the persona's id as text, or empty.
func (j Job) PersonaID() string {
	if j.Persona == nil {
		return ""
	}
	return strconv.Itoa(j.Persona.ID)
}

func (j Job) String() string {
	s := fmt.Sprintf("%s/%s/%s", j.Category, j.Template, j.QuestionID)
	if j.Persona != nil {
		s += "/persona-" + j.PersonaID()
	}
	return s
}

// Expand turns plan into jobs ordered by template set, template name,
// question and persona. Every named question, template and persona must
// exist. Persona categories fan out over the selected personas; baseline
// templates run once per question.
func Expand(plan *Plan, contexts *contextual.Contexts, lib *instruction.Library, personas []entity.Persona) ([]Job, error) {
	questions := plan.Questions
	if len(questions) == 0 {
		questions = contexts.IDs()
	}
	for _, id := range questions {
		if _, err := contexts.Get(id); err != nil {
			return nil, err
		}
	}

	selected, err := selectPersonas(plan, personas)
	if err != nil {
		return nil, err
	}

	var jobs []Job
	for _, ts := range plan.Templates {
		names := ts.Names
		if len(names) == 0 {
			names = lib.Names(ts.Category)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no %s templates: %w", ts.Category, crowds.ErrNotFound)
		}
		usesPersona := ts.Category != entity.CategoryBaseline
		if usesPersona && len(selected) == 0 {
			return nil, fmt.Errorf("%s templates need personas: %w", ts.Category, crowds.ErrNotFound)
		}

		for _, name := range names {
			if _, err := lib.Prompt(ts.Category, name); err != nil {
				return nil, err
			}
			for _, qid := range questions {
				if !usesPersona {
					jobs = append(jobs, Job{Category: ts.Category, Template: name, QuestionID: qid})
					continue
				}
				for i := range selected {
					jobs = append(jobs, Job{Category: ts.Category, Template: name, QuestionID: qid, Persona: &selected[i]})
				}
			}
		}
	}
	return jobs, nil
}

func selectPersonas(plan *Plan, personas []entity.Persona) ([]entity.Persona, error) {
	out := personas
	if len(plan.Personas) > 0 {
		out = make([]entity.Persona, 0, len(plan.Personas))
		for _, id := range plan.Personas {
			i := slices.IndexFunc(personas, func(p entity.Persona) bool { return p.ID == id })
			if i < 0 {
				return nil, fmt.Errorf("persona %d: %w", id, crowds.ErrNotFound)
			}
			out = append(out, personas[i])
		}
	}
	if plan.PersonaLimit > 0 && len(out) > plan.PersonaLimit {
		out = out[:plan.PersonaLimit]
	}
	return out, nil
}
