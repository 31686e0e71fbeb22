/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/siliconcrowds/siliconcrowds/crowds/config"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	envFile  string
	logLevel string
	logJSON  bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:           "siliconcrowds",
		Short:         "Ask language models the quiz questions a crowd once answered",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := parseLevel(flags.logLevel)
			if err != nil {
				return err
			}
			logger := clog.New(newHandler(cmd.ErrOrStderr(), level, flags.logJSON))
			cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "optional file of KEY=value settings read behind the environment")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.BoolVar(&flags.logJSON, "log-json", false, "write logs as JSON")

	cmd.AddCommand(
		newContextsCmd(&flags),
		newPromptsCmd(&flags),
		newPersonasCmd(&flags),
		newAskCmd(&flags),
		newRunCmd(&flags),
	)
	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return level, nil
}

func newHandler(w io.Writer, level slog.Level, asJSON bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
