// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lintpilot/cmd/lintpilot/config"
	"github.com/AleutianAI/lintpilot/pkg/ux"
	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/oracle"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

// newRootCmd builds the command tree. The root command and "run" share
// the same flags and behavior.
func newRootCmd() *cobra.Command {
	var opts runOptions

	runE := func(cmd *cobra.Command, args []string) error {
		return runLintpilot(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	rootCmd := &cobra.Command{
		Use:   "lintpilot [path]",
		Short: "Fix ESLint findings with an AI assistant",
		Long: `lintpilot runs ESLint, groups the findings by rule, and asks an AI
assistant for an explanation and a fix for each location. You review and apply
the fixes (or suppress the rule) one rule at a time, and ESLint runs again
after every change.`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runE,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	runCmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Run the fix loop on a file or directory (default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runE,
	}

	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		f := c.Flags()
		f.StringVar(&opts.mode, "mode", "", "Run mode: interactive, non-interactive, or auto")
		f.BoolVar(&opts.auto, "auto", false, "Apply every fix without asking (same as --mode auto)")
		f.BoolVar(&opts.nonInteractive, "non-interactive", false, "Report findings and exit (same as --mode non-interactive)")
		f.StringVar(&opts.provider, "provider", "", "AI provider: "+strings.Join(oracle.ProviderNames, ", "))
		f.StringVar(&opts.model, "model", "", "Model passed to the provider")
		f.BoolVar(&opts.raw, "raw", false, "Print each raw assistant reply")
		f.StringVarP(&opts.output, "output", "o", "", "Write a JSON summary to this file")
		f.StringVar(&opts.configPath, "config", "", "lintpilot config file (default: discovered lintpilot.yaml or lintpilot.toml)")
		f.StringVar(&opts.personality, "personality", "", "Output style: full, standard, minimal, or machine")
		f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, or error")
		f.StringVar(&opts.telemetry, "telemetry", "", "Telemetry export: none, stdout, otlp, or prometheus")
		f.BoolVar(&opts.watch, "watch", false, "Re-run after source changes (non-interactive and auto modes)")
		f.StringVar(&opts.lintConfig, "lint-config", "", "ESLint config file to edit (default: discovered)")
		f.IntVar(&opts.maxIterations, "max-iterations", 0, "Maximum number of ESLint scans (default from config)")
		f.BoolVar(&opts.noRedact, "no-redact", false, "Send source snippets to the provider without masking secrets")
	}

	rootCmd.AddCommand(runCmd, newVersionCmd(), newInitCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information and the detected ESLint version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lintpilot %s (commit %s, %s %s/%s)\n", version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			runner := lint.NewRunner()
			if err := runner.Detect(ctx); err != nil {
				fmt.Fprintln(out, "eslint: not found")
				return nil
			}
			v := runner.Config().Version
			if v == "" {
				v = "unknown"
			}
			fmt.Fprintf(out, "eslint %s (flat config: %t)\n", v, runner.SupportsFlatConfig())
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a lintpilot.yaml with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			path := filepath.Join(dir, "lintpilot.yaml")
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success("Wrote " + path)
			return nil
		},
	}
}
