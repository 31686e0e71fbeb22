/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/siliconcrowds/siliconcrowds/agents/metrics"
)

// Tally counts the outcomes of one template.
type Tally struct {
	Category         string
	Template         string
	Total            int
	Succeeded        int
	Invalid          int
	Failed           int
	Attempts         int
	PromptTokens     int64
	CompletionTokens int64
}

// MeanAttempts is the average number of remote calls per successful job.
func (t Tally) MeanAttempts() float64 {
	if t.Succeeded == 0 {
		return 0
	}
	return float64(t.Attempts) / float64(t.Succeeded)
}

func (t *Tally) add(rec Record) {
	t.Total++
	switch rec.Outcome {
	case metrics.OutcomeSuccess:
		t.Succeeded++
		t.Attempts += rec.Attempts
		t.PromptTokens += rec.Usage.Prompt
		t.CompletionTokens += rec.Usage.Completion
	case metrics.OutcomeInvalid:
		t.Invalid++
	default:
		t.Failed++
	}
}

// Summary aggregates records by category and template. It is safe for
// concurrent use.
type Summary struct {
	RunID string

	mu      sync.Mutex
	tallies map[[2]string]*Tally
}

// NewSummary returns an empty summary for runID.
func NewSummary(runID string) *Summary {
	return &Summary{RunID: runID, tallies: make(map[[2]string]*Tally)}
}

// Add counts rec.
func (s *Summary) Add(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{rec.Category, rec.Template}
	t, ok := s.tallies[key]
	if !ok {
		t = &Tally{Category: rec.Category, Template: rec.Template}
		s.tallies[key] = t
	}
	t.add(rec)
}

// Tallies returns a copy of every tally ordered by category then template.
func (s *Summary) Tallies() []Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tally, 0, len(s.tallies))
	for _, t := range s.tallies {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Tally) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Template, b.Template))
	})
	return out
}

// Totals sums every tally.
func (s *Summary) Totals() Tally {
	var sum Tally
	for _, t := range s.Tallies() {
		sum.Total += t.Total
		sum.Succeeded += t.Succeeded
		sum.Invalid += t.Invalid
		sum.Failed += t.Failed
		sum.Attempts += t.Attempts
		sum.PromptTokens += t.PromptTokens
		sum.CompletionTokens += t.CompletionTokens
	}
	return sum
}

// Render writes the summary as a markdown table.
func (s *Summary) Render(w io.Writer) error {
	table := newTable(w, []string{"Category", "Template", "Jobs", "Succeeded", "Invalid", "Failed", "Mean attempts", "Tokens"})
	row := func(category, template string, t Tally) []string {
		return []string{
			category,
			template,
			strconv.Itoa(t.Total),
			strconv.Itoa(t.Succeeded),
			strconv.Itoa(t.Invalid),
			strconv.Itoa(t.Failed),
			fmt.Sprintf("%.2f", t.MeanAttempts()),
			strconv.FormatInt(t.PromptTokens+t.CompletionTokens, 10),
		}
	}
	for _, t := range s.Tallies() {
		if err := table.Append(row(t.Category, t.Template, t)); err != nil {
			return err
		}
	}
	if err := table.Append(row("total", "", s.Totals())); err != nil {
		return err
	}
	return table.Render()
}

// newTable creates a markdown-styled table.
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}
