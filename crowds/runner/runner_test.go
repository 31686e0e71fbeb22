/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/siliconcrowds/siliconcrowds/agents/conversation"
	"github.com/siliconcrowds/siliconcrowds/agents/inference"
	"github.com/siliconcrowds/siliconcrowds/agents/metrics"
	"github.com/siliconcrowds/siliconcrowds/crowds/bucket"
	"github.com/siliconcrowds/siliconcrowds/crowds/contextual"
	"github.com/siliconcrowds/siliconcrowds/crowds/database"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
	"github.com/siliconcrowds/siliconcrowds/crowds/instruction"
	"github.com/siliconcrowds/siliconcrowds/store/blobstore/memblob"
	"github.com/siliconcrowds/siliconcrowds/store/recordstore"
	"github.com/siliconcrowds/siliconcrowds/store/recordstore/memstore"
)

func fixture(t *testing.T) (*contextual.Contexts, *instruction.Library, []entity.Persona) {
	t.Helper()
	db, err := database.New(memstore.New(map[string][]recordstore.Row{
		database.DefaultQuestionsTable: {
			{"id": 1, "question_id": "q1", "transcript": "How many goals?", "image_path": "pilot_images/q1.png", "norways_answer": "3", "answer_type": "numeric"},
			{"id": 2, "question_id": "q2", "transcript": "How long will it take?", "image_path": "", "norways_answer": "1:30", "answer_type": "time"},
		},
	}))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	store := memblob.New("https://blobs.test")
	store.Put("pilot_images/q1.png", 1, time.Now())
	b, err := bucket.New(store)
	if err != nil {
		t.Fatalf("bucket.New() error = %v", err)
	}
	contexts, err := contextual.Assemble(context.Background(), db, b)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	lib := instruction.New(map[entity.Category]map[string]entity.Prompt{
		entity.CategoryBaseline: {
			"baseline_1": {TemplateName: "baseline_1", SystemPrompt: "Answer the quiz.", UserPrompt: "{transcript}\n###IMAGE###\n{image}"},
		},
		entity.CategoryGenericPersona: {
			"generic_1": {TemplateName: "generic_1", SystemPrompt: "{persona} Answer the quiz.", UserPrompt: "{transcript}"},
		},
	})
	personas := []entity.Persona{
		{ID: 1, AgeRange: "18-24", Gender: "man", Ethnicity: "a", Education: "B", Politics: "c"},
		{ID: 2, AgeRange: "65+", Gender: "woman", Ethnicity: "d", Education: "E", Politics: "f"},
	}
	return contexts, lib, personas
}

// answering replies with a valid answer for whichever schema was requested.
func answering(calls *atomic.Int32) inference.Provider {
	return inference.ProviderFunc(func(_ context.Context, req *inference.Request) (*inference.Reply, error) {
		calls.Add(1)
		text := "free text"
		if req.Schema != nil {
			switch req.Schema.Name() {
			case "TimeSchema":
				text = `{"answer": "1:30"}`
			default:
				text = `{"answer": 3}`
			}
		}
		return &inference.Reply{
			ID:      "r",
			Model:   req.Model,
			Message: conversation.Assistant(conversation.Text(text)),
			Usage:   inference.Usage{Prompt: 10, Completion: 2, Total: 12},
		}, nil
	})
}

func newClient(t *testing.T, p inference.Provider) *inference.Client {
	t.Helper()
	c, err := inference.New(p, "test-model")
	if err != nil {
		t.Fatalf("inference.New() error = %v", err)
	}
	return c
}

func decodeRecords(t *testing.T, buf *bytes.Buffer) []Record {
	t.Helper()
	var out []Record
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("decoding %q: %v", sc.Text(), err)
		}
		out = append(out, r)
	}
	return out
}

func TestExpand(t *testing.T) {
	contexts, lib, personas := fixture(t)
	plan := &Plan{
		Concurrency: 1,
		Templates: []TemplateSet{
			{Category: entity.CategoryBaseline},
			{Category: entity.CategoryGenericPersona, Names: []string{"generic_1"}},
		},
		Personas: []int{2},
	}
	jobs, err := Expand(plan, contexts, lib, personas)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	var got []string
	for _, j := range jobs {
		got = append(got, j.String())
	}
	want := []string{
		"baseline/baseline_1/q1",
		"baseline/baseline_1/q2",
		"generic_persona/generic_1/q1/persona-2",
		"generic_persona/generic_1/q2/persona-2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandUnknownSelections(t *testing.T) {
	contexts, lib, personas := fixture(t)
	tests := map[string]*Plan{
		"question": {Questions: []string{"q9"}, Templates: []TemplateSet{{Category: entity.CategoryBaseline}}},
		"template": {Templates: []TemplateSet{{Category: entity.CategoryBaseline, Names: []string{"nope"}}}},
		"persona":  {Templates: []TemplateSet{{Category: entity.CategoryGenericPersona}}, Personas: []int{42}},
		"category": {Templates: []TemplateSet{{Category: entity.CategorySpecificPersona}}},
	}
	for name, plan := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Expand(plan, contexts, lib, personas); err == nil {
				t.Error("Expand() error = nil")
			}
		})
	}
}

func TestRun(t *testing.T) {
	contexts, lib, personas := fixture(t)
	var calls atomic.Int32
	var out bytes.Buffer
	r, err := New(newClient(t, answering(&calls)), lib, contexts,
		WithOutput(&out), WithRunID("run-1"), WithConcurrency(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	jobs, err := Expand(&Plan{
		Templates:    []TemplateSet{{Category: entity.CategoryBaseline}, {Category: entity.CategoryGenericPersona}},
		PersonaLimit: 1,
	}, contexts, lib, personas)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	before := testutil.ToFloat64(jobsTotal.WithLabelValues("baseline", "baseline_1", "success"))
	summary, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("calls: got = %d, wanted = 4", got)
	}
	if got := testutil.ToFloat64(jobsTotal.WithLabelValues("baseline", "baseline_1", "success")) - before; got != 2 {
		t.Errorf("baseline success counter delta: got = %v, wanted = 2", got)
	}

	totals := summary.Totals()
	if totals.Total != 4 || totals.Succeeded != 4 {
		t.Errorf("Totals() = %+v, wanted 4 succeeded", totals)
	}

	records := decodeRecords(t, &out)
	if len(records) != 4 {
		t.Fatalf("records: got = %d, wanted = 4", len(records))
	}
	for _, rec := range records {
		if rec.RunID != "run-1" || rec.Outcome != metrics.OutcomeSuccess {
			t.Errorf("record %s/%s: run %q outcome %q", rec.Template, rec.QuestionID, rec.RunID, rec.Outcome)
		}
		wantAnswer := map[string]any{"answer": float64(3)}
		if rec.QuestionID == "q2" {
			wantAnswer = map[string]any{"answer": "1:30"}
		}
		if diff := cmp.Diff(wantAnswer, rec.Answer); diff != "" {
			t.Errorf("record %s answer mismatch (-want +got):\n%s", rec.QuestionID, diff)
		}
		if rec.Category == "generic_persona" && rec.PersonaID != "1" {
			t.Errorf("persona id: got = %q, wanted = 1", rec.PersonaID)
		}
	}

	var table strings.Builder
	if err := summary.Render(&table); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{"baseline_1", "generic_1", "total"} {
		if !strings.Contains(table.String(), want) {
			t.Errorf("Render() missing %q:\n%s", want, table.String())
		}
	}
}

func TestRunInvalidAnswerDoesNotStop(t *testing.T) {
	contexts, lib, _ := fixture(t)
	p := inference.ProviderFunc(func(_ context.Context, req *inference.Request) (*inference.Reply, error) {
		return &inference.Reply{
			Message: conversation.Assistant(conversation.Text("not json")),
			Usage:   inference.Usage{Prompt: 10, Completion: 2, Total: 12},
		}, nil
	})
	var out bytes.Buffer
	r, err := New(newClient(t, p), lib, contexts, WithOutput(&out), WithRetries(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	jobs, err := Expand(&Plan{Templates: []TemplateSet{{Category: entity.CategoryBaseline}}}, contexts, lib, nil)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	countBefore, sumBefore := observedAttempts(t, "baseline")
	summary, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run() error = %v, wanted invalid answers to be recorded", err)
	}
	count, sum := observedAttempts(t, "baseline")
	if got := count - countBefore; got != 2 {
		t.Errorf("attempts histogram samples: got = %d, wanted = 2", got)
	}
	if got := sum - sumBefore; got != 6 {
		t.Errorf("attempts histogram sum: got = %v, wanted = 6", got)
	}
	if got := summary.Totals(); got.Invalid != 2 {
		t.Errorf("Totals().Invalid: got = %d, wanted = 2", got.Invalid)
	}
	for _, rec := range decodeRecords(t, &out) {
		if rec.Outcome != metrics.OutcomeInvalid || rec.Error == "" {
			t.Errorf("record %s: outcome %q error %q", rec.QuestionID, rec.Outcome, rec.Error)
		}
		if rec.Attempts != 3 {
			t.Errorf("record %s attempts: got = %d, wanted = 3", rec.QuestionID, rec.Attempts)
		}
		if want := (inference.Usage{Prompt: 10, Completion: 2, Total: 12}); rec.Usage != want {
			t.Errorf("record %s usage: got = %+v, wanted = %+v", rec.QuestionID, rec.Usage, want)
		}
	}
}

func observedAttempts(t *testing.T, category string) (uint64, float64) {
	t.Helper()
	var m dto.Metric
	if err := jobAttempts.WithLabelValues(category).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("reading attempts histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestRunFailFastAndKeepGoing(t *testing.T) {
	contexts, lib, _ := fixture(t)
	remote := errors.New("503 unavailable")
	var calls atomic.Int32
	p := inference.ProviderFunc(func(context.Context, *inference.Request) (*inference.Reply, error) {
		calls.Add(1)
		return nil, remote
	})
	jobs, err := Expand(&Plan{Templates: []TemplateSet{{Category: entity.CategoryBaseline}}}, contexts, lib, nil)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	r, err := New(newClient(t, p), lib, contexts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := r.Run(context.Background(), jobs); !errors.Is(err, remote) {
		t.Errorf("Run() error = %v, wanted %v", err, remote)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fail fast calls: got = %d, wanted = 1", got)
	}

	calls.Store(0)
	r, err = New(newClient(t, p), lib, contexts, WithKeepGoing(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	summary, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run() with keep going error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("keep going calls: got = %d, wanted = 2", got)
	}
	if got := summary.Totals().Failed; got != 2 {
		t.Errorf("Totals().Failed: got = %d, wanted = 2", got)
	}
}

func TestRunSendsImageLast(t *testing.T) {
	contexts, lib, _ := fixture(t)
	var last []conversation.Message
	p := inference.ProviderFunc(func(_ context.Context, req *inference.Request) (*inference.Reply, error) {
		if req.Messages[1].Content[0].(conversation.TextPart).Text == "How many goals?" {
			last = conversation.Clone(req.Messages)
		}
		return &inference.Reply{Message: conversation.Assistant(conversation.Text(`{"answer": 3}`))}, nil
	})
	r, err := New(newClient(t, p), lib, contexts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := r.Run(context.Background(), []Job{{Category: entity.CategoryBaseline, Template: "baseline_1", QuestionID: "q1"}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []conversation.Message{
		conversation.System("Answer the quiz."),
		conversation.User(conversation.Text("How many goals?")),
		conversation.User(conversation.Image("https://blobs.test/pilot_images/q1.png?expires=1800")),
	}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}
