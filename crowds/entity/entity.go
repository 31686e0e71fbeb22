/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package entity holds the records the pipeline reads from the record store.
package entity

import (
	"fmt"
	"strings"
)

// Category groups prompt templates.
type Category string

const (
	CategoryBaseline        Category = "baseline"
	CategoryGenericPersona  Category = "generic_persona"
	CategorySpecificPersona Category = "specific_persona"
)

// Categories lists every category in load order.
func Categories() []Category {
	return []Category{CategoryBaseline, CategoryGenericPersona, CategorySpecificPersona}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBaseline, CategoryGenericPersona, CategorySpecificPersona:
		return true
	}
	return false
}

// Persona is a synthetic respondent profile.
type Persona struct {
	ID        int     `json:"id" jsonschema:"required"`
	AgeRange  string  `json:"age_range" jsonschema:"required"`
	Gender    string  `json:"gender" jsonschema:"required"`
	Ethnicity string  `json:"ethnicity" jsonschema:"required"`
	Education string  `json:"education" jsonschema:"required"`
	Politics  string  `json:"politics" jsonschema:"required"`
	Weight    float64 `json:"weight" jsonschema:"required"`
}

// ToPrompt renders the persona as a second-person description.
func (p Persona) ToPrompt() string {
	return fmt.Sprintf(
		"You are a %s aged %s with %s. Your education level is %s. Your political views are %s.",
		p.Gender, p.AgeRange, p.Ethnicity, strings.ToLower(p.Education), p.Politics)
}

// Prompt is one instruction template.
type Prompt struct {
	ID           int      `json:"id" jsonschema:"required"`
	Category     Category `json:"category" jsonschema:"required"`
	SystemPrompt string   `json:"system_prompt" jsonschema:"required"`
	UserPrompt   string   `json:"user_prompt" jsonschema:"required"`
	TemplateName string   `json:"template_name" jsonschema:"required"`
	Description  *string  `json:"description,omitempty"`
}

// Question is one quiz question with its ground truth.
type Question struct {
	ID            int        `json:"id" jsonschema:"required"`
	QuestionID    string     `json:"question_id" jsonschema:"required"`
	Transcript    string     `json:"transcript" jsonschema:"required"`
	ImagePath     string     `json:"image_path" jsonschema:"required"`
	NorwaysAnswer string     `json:"norways_answer" jsonschema:"required"`
	ActualOutcome *string    `json:"actual_outcome,omitempty"`
	AirDate       *Timestamp `json:"air_date,omitempty"`
	AnswerType    *string    `json:"answer_type,omitempty"`
}
