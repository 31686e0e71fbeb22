/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/siliconcrowds/siliconcrowds/crowds/entity"
	"github.com/siliconcrowds/siliconcrowds/crowds/instruction"
	"github.com/spf13/cobra"
)

func newContextsCmd(root *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "List the evaluation contexts joined from questions and images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, err := openPipeline(ctx, root.envFile)
			if err != nil {
				return err
			}
			defer p.close()

			contexts, err := p.assemble(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), contexts.All())
			}

			table := newTable(cmd.OutOrStdout(), []string{"Question", "ID", "Answer type", "Image", "Transcript"})
			for _, c := range contexts.All() {
				image := "no"
				if c.Prompt.ImageURL != nil {
					image = "yes"
				}
				if err := table.Append([]string{c.QuestionID, c.ID, deref(c.Answer.AnswerType), image, truncate(c.Prompt.Transcript, 60)}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the contexts as JSON")
	return cmd
}

func newPromptsCmd(root *rootFlags) *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List the prompt templates by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories := entity.Categories()
			if category != "" {
				c := entity.Category(category)
				if !c.Valid() {
					return fmt.Errorf("unknown category %q", category)
				}
				categories = []entity.Category{c}
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

			var prompts []entity.Prompt
			for _, c := range categories {
				for _, name := range lib.Names(c) {
					prompt, err := lib.Prompt(c, name)
					if err != nil {
						return err
					}
					prompts = append(prompts, prompt)
				}
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), prompts)
			}

			table := newTable(cmd.OutOrStdout(), []string{"Category", "Template", "ID", "Description"})
			for _, prompt := range prompts {
				if err := table.Append([]string{string(prompt.Category), prompt.TemplateName, strconv.Itoa(prompt.ID), deref(prompt.Description)}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list one category: baseline, generic_persona or specific_persona")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the templates as JSON")
	return cmd
}

func newPersonasCmd(root *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the personas and how they are described to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, err := openPipeline(ctx, root.envFile)
			if err != nil {
				return err
			}
			defer p.close()

			personas, err := p.db.GetPersonas(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), personas)
			}

			table := newTable(cmd.OutOrStdout(), []string{"ID", "Weight", "Prompt"})
			for _, persona := range personas {
				if err := table.Append([]string{strconv.Itoa(persona.ID), strconv.FormatFloat(persona.Weight, 'f', 4, 64), persona.ToPrompt()}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the personas as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// newTable creates a markdown-styled table.
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}
