/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package runner executes batches of evaluation jobs and records every
// answer as a JSON line.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/siliconcrowds/siliconcrowds/agents/agenttrace"
	"github.com/siliconcrowds/siliconcrowds/agents/answer"
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
	"github.com/siliconcrowds/siliconcrowds/agents/metrics"
	"github.com/siliconcrowds/siliconcrowds/agents/schema"
	"github.com/siliconcrowds/siliconcrowds/crowds/contextual"
	"github.com/siliconcrowds/siliconcrowds/crowds/instruction"
	"golang.org/x/sync/errgroup"
)

// Invoker executes one conversation. *inference.Client implements it.
type Invoker interface {
	Invoke(ctx context.Context, msgs []conversation.Message, opts ...inference.InvokeOption) (*inference.Result, error)
	Model() string
}

// Record is one line of run output.
type Record struct {
	RunID      string `json:"run_id"`
	Category   string `json:"category"`
	Template   string `json:"template"`
	QuestionID string `json:"question_id"`
	PersonaID  string `json:"persona_id,omitempty"`
	Model      string `json:"model"`

	Outcome   metrics.Outcome `json:"outcome"`
	Answer    any             `json:"answer,omitempty"`
	Text      string          `json:"text,omitempty"`
	Reasoning string          `json:"reasoning,omitempty"`
	Attempts  int             `json:"attempts,omitempty"`
	Usage     inference.Usage `json:"usage"`
	Error     string          `json:"error,omitempty"`

	NorwaysAnswer string  `json:"norways_answer"`
	ActualOutcome *string `json:"actual_outcome"`
	AnswerType    *string `json:"answer_type"`

	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Runner executes jobs against one model.
type Runner struct {
	invoker       Invoker
	library       *instruction.Library
	contexts      *contextual.Contexts
	runID         string
	concurrency   int
	keepGoing     bool
	retries       int
	defaultSchema schema.Structured

	mu  sync.Mutex
	out *json.Encoder
}

// Option configures a Runner.
type Option func(*Runner) error

// WithOutput writes a JSON line per finished job to w.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) error {
		if w == nil {
			return errors.New("output cannot be nil")
		}
		r.out = json.NewEncoder(w)
		return nil
	}
}

// WithConcurrency bounds the number of jobs in flight (default 1).
func WithConcurrency(n int) Option {
	return func(r *Runner) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		r.concurrency = n
		return nil
	}
}

// WithKeepGoing keeps running after a job fails instead of cancelling the
// remaining jobs.
func WithKeepGoing(keepGoing bool) Option {
	return func(r *Runner) error {
		r.keepGoing = keepGoing
		return nil
	}
}

// WithRetries overrides the client's attempt bound for every job.
func WithRetries(n int) Option {
	return func(r *Runner) error {
		if n < 1 {
			return fmt.Errorf("retries must be at least 1, got %d", n)
		}
		r.retries = n
		return nil
	}
}

// WithRunID labels every record. A random id is used otherwise.
func WithRunID(id string) Option {
	return func(r *Runner) error {
		if id == "" {
			return errors.New("run id cannot be empty")
		}
		r.runID = id
		return nil
	}
}

// WithDefaultAnswerType selects the answer schema for questions whose own
// answer type is missing or unknown. Without it such questions get a free
// text answer.
func WithDefaultAnswerType(tag string) Option {
	return func(r *Runner) error {
		s, ok := answer.ForType(tag)
		if !ok {
			return fmt.Errorf("unknown answer type %q", tag)
		}
		r.defaultSchema = s
		return nil
	}
}

// New creates a Runner.
func New(invoker Invoker, library *instruction.Library, contexts *contextual.Contexts, opts ...Option) (*Runner, error) {
	if invoker == nil || library == nil || contexts == nil {
		return nil, errors.New("invoker, library and contexts are required")
	}
	r := &Runner{
		invoker:     invoker,
		library:     library,
		contexts:    contexts,
		runID:       uuid.NewString(),
		concurrency: 1,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return r, nil
}

// RunID returns the id stamped on every record.
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes jobs and returns the tallies. A job whose answer never
// validates is recorded as invalid and does not stop the run. Any other
// failure cancels the jobs not yet started and is returned, unless the
// runner keeps going.
func (r *Runner) Run(ctx context.Context, jobs []Job) (*Summary, error) {
	log := clog.FromContext(ctx).With("run_id", r.runID)
	log.With("jobs", len(jobs)).With("concurrency", r.concurrency).Info("Starting run")

	summary := NewSummary(r.runID)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rec, err := r.runJob(ctx, job)
			summary.Add(rec)
			if werr := r.write(rec); werr != nil {
				return werr
			}
			if err != nil && !r.keepGoing {
				return fmt.Errorf("job %s: %w", job, err)
			}
			return nil
		})
	}

	err := eg.Wait()
	log.With("succeeded", summary.Totals().Succeeded).With("failed", summary.Totals().Failed).
		Info("Run finished")
	return summary, err
}

// runJob executes one job and records its metrics. The returned error is
// set only for failures other than an unvalidated answer.
func (r *Runner) runJob(ctx context.Context, job Job) (Record, error) {
	rec := Record{
		RunID:      r.runID,
		Category:   string(job.Category),
		Template:   job.Template,
		QuestionID: job.QuestionID,
		PersonaID:  job.PersonaID(),
		Model:      r.invoker.Model(),
		StartedAt:  time.Now().UTC(),
	}
	err := r.execute(ctx, job, &rec)
	if err != nil {
		rec.Outcome = metrics.OutcomeError
		rec.Error = err.Error()
		clog.FromContext(ctx).With("job", job.String()).With("error", err).Error("Job failed")
	}

	d := time.Since(rec.StartedAt)
	rec.DurationMS = d.Milliseconds()
	jobsTotal.WithLabelValues(rec.Category, rec.Template, string(rec.Outcome)).Inc()
	jobDuration.WithLabelValues(rec.Category).Observe(d.Seconds())
	if rec.Attempts > 0 {
		jobAttempts.WithLabelValues(rec.Category).Observe(float64(rec.Attempts))
	}
	return rec, err
}

func (r *Runner) execute(ctx context.Context, job Job, rec *Record) error {
	c, err := r.contexts.Get(job.QuestionID)
	if err != nil {
		return err
	}
	rec.NorwaysAnswer = c.Answer.NorwaysAnswer
	rec.ActualOutcome = c.Answer.ActualOutcome
	rec.AnswerType = c.Answer.AnswerType

	msgs, err := r.messages(job, c)
	if err != nil {
		return err
	}

	var opts []inference.InvokeOption
	if s := r.schemaFor(c); s != nil {
		opts = append(opts, inference.WithSchema(s))
	}
	if r.retries > 0 {
		opts = append(opts, inference.WithRetries(r.retries))
	}

	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		QuestionID:   job.QuestionID,
		TemplateName: job.Template,
		Category:     string(job.Category),
		PersonaID:    job.PersonaID(),
	})
	res, err := r.invoker.Invoke(ctx, msgs, opts...)
	if err != nil {
		var verr *schema.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		rec.Outcome = metrics.OutcomeInvalid
		rec.Error = err.Error()
		var exhausted *inference.ExhaustedError
		if errors.As(err, &exhausted) {
			rec.Attempts = exhausted.Attempts
			rec.Usage = exhausted.Usage
		}
		clog.FromContext(ctx).With("job", job.String()).With("error", err).Warn("Answer never validated")
		return nil
	}

	rec.Outcome = metrics.OutcomeSuccess
	rec.Answer = res.Structured
	rec.Text = res.Text()
	rec.Reasoning = res.Reasoning
	rec.Attempts = res.Attempts
	rec.Usage = res.Usage
	if res.Model != "" {
		rec.Model = res.Model
	}
	return nil
}

func (r *Runner) messages(job Job, c contextual.Context) ([]conversation.Message, error) {
	p, err := r.library.Prompt(job.Category, job.Template)
	if err != nil {
		return nil, err
	}
	if job.Persona != nil {
		return instruction.BuildPersonaMessages(p, *job.Persona, c.Prompt.Transcript, c.Prompt.ImageURL)
	}
	return instruction.BuildMessages(p, c.Prompt.Transcript, c.Prompt.ImageURL)
}

func (r *Runner) schemaFor(c contextual.Context) schema.Structured {
	if c.Answer.AnswerType != nil {
		if s, ok := answer.ForType(*c.Answer.AnswerType); ok {
			return s
		}
	}
	return r.defaultSchema
}

func (r *Runner) write(rec Record) error {
	if r.out == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.out.Encode(rec); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}
