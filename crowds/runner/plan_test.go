/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
)

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan([]byte(`
run_id: pilot
keep_going: true
retries: 3
default_answer_type: numeric
questions: [q1, q2]
templates:
  - category: baseline
    names: [baseline_1]
  - category: specific_persona
personas: [4, 5]
persona_limit: 1
`))
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	want := &Plan{
		RunID:             "pilot",
		Concurrency:       1,
		KeepGoing:         true,
		Retries:           3,
		DefaultAnswerType: "numeric",
		Questions:         []string{"q1", "q2"},
		Templates: []TemplateSet{
			{Category: entity.CategoryBaseline, Names: []string{"baseline_1"}},
			{Category: entity.CategorySpecificPersona},
		},
		Personas:     []int{4, 5},
		PersonaLimit: 1,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("ParsePlan() mismatch (-want +got):\n%s", diff)
	}
	if got := len(p.Options()); got != 5 {
		t.Errorf("Options(): got = %d options, wanted = 5", got)
	}
}

func TestParsePlanErrors(t *testing.T) {
	tests := map[string]string{
		"empty":            ``,
		"unknown key":      "templates: [{category: baseline}]\nmodel: gpt\n",
		"no templates":     "concurrency: 2\n",
		"bad category":     "templates: [{category: expert}]\n",
		"bad concurrency":  "concurrency: -1\ntemplates: [{category: baseline}]\n",
		"bad answer type":  "default_answer_type: essay\ntemplates: [{category: baseline}]\n",
		"negative retries": "retries: -2\ntemplates: [{category: baseline}]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan([]byte(doc))
			if !errors.Is(err, crowds.ErrConfig) {
				t.Errorf("ParsePlan() error = %v, wanted ErrConfig", err)
			}
		})
	}
}
