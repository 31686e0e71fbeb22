/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package contextual joins questions with their images into evaluation
// contexts.
package contextual

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/crowds/bucket"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
	"github.com/siliconcrowds/siliconcrowds/store/blobstore"
)

// Questions supplies the question rows. *database.Database implements it.
type Questions interface {
	GetQuestions(ctx context.Context) ([]entity.Question, error)
}

// Images supplies signed image links keyed by question id.
// *bucket.Bucket implements it.
type Images interface {
	ListPublicURLs(ctx context.Context, folder string, expiry time.Duration) (map[string]string, error)
}

// Prompt is what the model is shown.
type Prompt struct {
	Transcript string  `json:"transcript"`
	ImageURL   *string `json:"image_url"`
}

// Answer is the ground truth for scoring.
type Answer struct {
	NorwaysAnswer string  `json:"norways_answer"`
	ActualOutcome *string `json:"actual_outcome"`
	AnswerType    *string `json:"answer_type"`
}

// Context is one question ready to be prompted.
type Context struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Prompt     Prompt `json:"prompt"`
	Answer     Answer `json:"answer"`
}

// Contexts is an immutable, ordered index of contexts by question id.
type Contexts struct {
	order []string
	byID  map[string]Context
}

// Len returns the number of contexts.
func (c *Contexts) Len() int {
	return len(c.order)
}

// Get returns the context for questionID, or crowds.ErrNotFound.
func (c *Contexts) Get(questionID string) (Context, error) {
	found, ok := c.byID[questionID]
	if !ok {
		return Context{}, fmt.Errorf("context %q: %w", questionID, crowds.ErrNotFound)
	}
	return found, nil
}

// IDs returns the question ids in the order questions were first read.
func (c *Contexts) IDs() []string {
	return append([]string(nil), c.order...)
}

// All returns the contexts in IDs order.
func (c *Contexts) All() []Context {
	out := make([]Context, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

type options struct {
	folder string
	expiry time.Duration
}

// Option configures Assemble.
type Option func(*options) error

// WithFolder sets the image folder (default bucket.DefaultName).
func WithFolder(folder string) Option {
	return func(o *options) error {
		if folder == "" {
			return errors.New("image folder cannot be empty")
		}
		o.folder = folder
		return nil
	}
}

// WithExpiry sets the lifetime of the signed image links.
func WithExpiry(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("expiry must be positive, got %v", d)
		}
		o.expiry = d
		return nil
	}
}

// Assemble reads every question and every signed image link once and joins
// them by question id. A question with no image gets a nil ImageURL. When
// question ids repeat, the later row wins and keeps the first row's position.
func Assemble(ctx context.Context, questions Questions, images Images, opts ...Option) (*Contexts, error) {
	o := options{folder: bucket.DefaultName, expiry: blobstore.DefaultExpiry}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	rows, err := questions.GetQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}
	urls, err := images.ListPublicURLs(ctx, o.folder, o.expiry)
	if err != nil {
		return nil, fmt.Errorf("signing images: %w", err)
	}

	out := &Contexts{byID: make(map[string]Context, len(rows))}
	var missing int
	for _, q := range rows {
		c := Context{
			ID:         strconv.Itoa(q.ID),
			QuestionID: q.QuestionID,
			Prompt:     Prompt{Transcript: q.Transcript},
			Answer: Answer{
				NorwaysAnswer: q.NorwaysAnswer,
				ActualOutcome: q.ActualOutcome,
				AnswerType:    q.AnswerType,
			},
		}
		if u, ok := urls[q.QuestionID]; ok {
			c.Prompt.ImageURL = &u
		} else {
			missing++
		}
		if _, seen := out.byID[q.QuestionID]; !seen {
			out.order = append(out.order, q.QuestionID)
		}
		out.byID[q.QuestionID] = c
	}

	clog.FromContext(ctx).With("contexts", out.Len()).With("without_image", missing).
		Info("Assembled evaluation contexts")
	return out, nil
}
