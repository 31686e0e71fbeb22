/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/crowds/instruction"
	"github.com/siliconcrowds/siliconcrowds/crowds/runner"
	"github.com/spf13/cobra"
)

func newRunCmd(root *rootFlags) *cobra.Command {
	var (
		planPath    string
		outPath     string
		concurrency int
		keepGoing   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evaluation plan and write one JSON line per answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := runner.LoadPlan(planPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				plan.Concurrency = concurrency
			}
			if cmd.Flags().Changed("keep-going") {
				plan.KeepGoing = keepGoing
			}
			if err := plan.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			p, err := openPipeline(ctx, root.envFile)
			if err != nil {
				return err
			}
			defer p.close()

			stopMetrics, err := serveMetrics(ctx, p.cfg.MetricsPort)
			if err != nil {
				return err
			}
			defer stopMetrics()

			lib, err := instruction.Load(ctx, p.db)
			if err != nil {
				return err
			}
			contexts, err := p.assemble(ctx)
			if err != nil {
				return err
			}
			personas, err := p.db.GetPersonas(ctx)
			if err != nil {
				return err
			}
			jobs, err := runner.Expand(plan, contexts, lib, personas)
			if err != nil {
				return err
			}

			client, err := newClient(ctx, p.cfg)
			if err != nil {
				return err
			}

			out, report := cmd.OutOrStdout(), cmd.OutOrStdout()
			if outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating output: %w", err)
				}
				defer f.Close()
				out = f
			} else {
				report = cmd.ErrOrStderr()
			}

			r, err := runner.New(client, lib, contexts, append(plan.Options(), runner.WithOutput(out))...)
			if err != nil {
				return err
			}
			clog.FromContext(ctx).With("run_id", r.RunID()).With("model", client.Model()).With("jobs", len(jobs)).
				Info("Running plan")

			summary, runErr := r.Run(ctx, jobs)
			if err := renderSummary(report, summary); err != nil {
				return err
			}
			return runErr
		},
	}
	f := cmd.Flags()
	f.StringVar(&planPath, "plan", "", "YAML evaluation plan")
	f.StringVarP(&outPath, "out", "o", "-", "JSON lines output file, - for stdout")
	f.IntVar(&concurrency, "concurrency", 1, "jobs in flight; overrides the plan")
	f.BoolVar(&keepGoing, "keep-going", false, "keep running after a failed job; overrides the plan")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func renderSummary(w io.Writer, s *runner.Summary) error {
	if _, err := fmt.Fprintf(w, "\nRun %s\n\n", s.RunID); err != nil {
		return err
	}
	return s.Render(w)
}
