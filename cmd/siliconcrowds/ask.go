/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/siliconcrowds/siliconcrowds/crowds"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
	"github.com/siliconcrowds/siliconcrowds/crowds/instruction"
	"github.com/siliconcrowds/siliconcrowds/crowds/runner"
	"github.com/spf13/cobra"
)

func newAskCmd(root *rootFlags) *cobra.Command {
	var (
		category   string
		template   string
		question   string
		personaID  int
		retries    int
		answerType string
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask the model one question with one template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job := runner.Job{Category: entity.Category(category), Template: template, QuestionID: question}
			if !job.Category.Valid() {
				return fmt.Errorf("unknown category %q", category)
			}

			ctx := cmd.Context()
			p, err := openPipeline(ctx, root.envFile)
			if err != nil {
				return err
			}
			defer p.close()

			lib, err := instruction.Load(ctx, p.db)
			if err != nil {
				return err
			}
			contexts, err := p.assemble(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("persona") {
				personas, err := p.db.GetPersonas(ctx)
				if err != nil {
					return err
				}
				i := slices.IndexFunc(personas, func(e entity.Persona) bool { return e.ID == personaID })
				if i < 0 {
					return fmt.Errorf("persona %d: %w", personaID, crowds.ErrNotFound)
				}
				job.Persona = &personas[i]
			}

			client, err := newClient(ctx, p.cfg)
			if err != nil {
				return err
			}
			var line bytes.Buffer
			opts := []runner.Option{runner.WithOutput(&line)}
			if retries > 0 {
				opts = append(opts, runner.WithRetries(retries))
			}
			if answerType != "" {
				opts = append(opts, runner.WithDefaultAnswerType(answerType))
			}
			r, err := runner.New(client, lib, contexts, opts...)
			if err != nil {
				return err
			}

			_, runErr := r.Run(ctx, []runner.Job{job})
			if line.Len() > 0 {
				var rec runner.Record
				if err := json.Unmarshal(line.Bytes(), &rec); err != nil {
					return fmt.Errorf("decoding record: %w", err)
				}
				if err := writeJSON(cmd.OutOrStdout(), rec); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	f := cmd.Flags()
	f.StringVar(&category, "category", string(entity.CategoryBaseline), "template category")
	f.StringVar(&template, "template", "", "template name")
	f.StringVar(&question, "question", "", "question id, e.g. q1")
	f.IntVar(&personaID, "persona", 0, "answer as the persona with this id")
	f.IntVar(&retries, "retries", 0, "attempt bound; 0 keeps RETRIES")
	f.StringVar(&answerType, "answer-type", "", "answer schema for questions without a known answer type: numeric or time")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}
