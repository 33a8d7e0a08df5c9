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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/lintpilot/cmd/lintpilot/config"
	"github.com/AleutianAI/lintpilot/pkg/logging"
	"github.com/AleutianAI/lintpilot/pkg/ux"
	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/fixgen"
	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/loop"
	"github.com/AleutianAI/lintpilot/services/lintpilot/oracle"
	"github.com/AleutianAI/lintpilot/services/lintpilot/patch"
	"github.com/AleutianAI/lintpilot/services/lintpilot/redact"
	"github.com/AleutianAI/lintpilot/services/lintpilot/session"
	"github.com/AleutianAI/lintpilot/services/lintpilot/telemetry"
)

// runOptions holds the run command's flags.
type runOptions struct {
	mode           string
	auto           bool
	nonInteractive bool
	provider       string
	model          string
	raw            bool
	output         string
	configPath     string
	personality    string
	logLevel       string
	telemetry      string
	watch          bool
	lintConfig     string
	maxIterations  int
	noRedact       bool
}

// resolveMode picks the run mode. The shortcut flags win over --mode, which
// wins over the config file.
func resolveMode(opts runOptions, configured string) (loop.Mode, error) {
	switch {
	case opts.auto && opts.nonInteractive:
		return "", fmt.Errorf("%w: --auto and --non-interactive are mutually exclusive", loop.ErrInvalidInput)
	case opts.auto:
		return loop.ModeAutomated, nil
	case opts.nonInteractive:
		return loop.ModeNonInteractive, nil
	case opts.mode != "":
		return loop.ParseMode(opts.mode)
	default:
		return loop.ParseMode(configured)
	}
}

// applyFlags lays explicitly set flags over the loaded config.
func applyFlags(cfg *config.LintpilotConfig, opts runOptions) error {
	if opts.provider != "" {
		cfg.Provider = strings.ToLower(opts.provider)
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.personality != "" {
		cfg.Personality = strings.ToLower(opts.personality)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = strings.ToLower(opts.logLevel)
	}
	if opts.lintConfig != "" {
		cfg.Lint.Config = opts.lintConfig
	}
	if opts.maxIterations > 0 {
		cfg.MaxIterations = opts.maxIterations
	}
	switch strings.ToLower(opts.telemetry) {
	case "":
	case "none":
		cfg.Telemetry.TraceExporter = "none"
		cfg.Telemetry.MetricExporter = "none"
	case "stdout":
		cfg.Telemetry.TraceExporter = "stdout"
		cfg.Telemetry.MetricExporter = "stdout"
	case "otlp":
		cfg.Telemetry.TraceExporter = "otlp"
	case "prometheus":
		cfg.Telemetry.MetricExporter = "prometheus"
	default:
		return fmt.Errorf("%w: --telemetry must be none, stdout, otlp, or prometheus", config.ErrInvalidConfig)
	}
	return config.Validate(cfg)
}

// targetRoot returns the absolute target and the directory it lives in.
func targetRoot(arg string) (string, string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("target %s: %w", arg, err)
	}
	if info.IsDir() {
		return abs, abs, nil
	}
	return abs, filepath.Dir(abs), nil
}

// app is everything one run needs, built once per process.
type app struct {
	opts     runOptions
	cfg      *config.LintpilotConfig
	mode     loop.Mode
	target   string
	root     string
	printer  *ux.Printer
	logger   *slog.Logger
	analyzer *lint.Runner
	oracle   *oracle.Oracle
	lintCfg  string
	stdin    io.Reader
}

// runLintpilot is the run command.
//
// # Description
//
// Loads configuration, sets up logging and telemetry, checks that ESLint
// and a lint config exist, builds the oracle, then runs the fix loop once
// (or repeatedly with --watch).
//
// # Errors
//
// Fatal loop errors (scan failure, parse errors, missing lint config) are
// returned so main exits non-zero.
func runLintpilot(ctx context.Context, opts runOptions, args []string, stdout, stderr io.Writer) error {
	arg := "."
	if len(args) > 0 {
		arg = args[0]
	}
	target, root, err := targetRoot(arg)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath, root)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}
	mode, err := resolveMode(opts, cfg.Mode)
	if err != nil {
		return err
	}

	ux.InitPersonality()
	if cfg.Personality != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(cfg.Personality))
	}
	printer := ux.NewPrinter(stdout, stderr)

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "lintpilot",
		JSON:    cfg.Log.JSON,
		Writer:  stderr,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg.Telemetry.ServiceVersion = version
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Slog().Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	a := &app{
		opts:    opts,
		cfg:     cfg,
		mode:    mode,
		target:  target,
		root:    root,
		printer: printer,
		logger:  logger.Slog(),
		stdin:   os.Stdin,
	}
	if err := a.setup(ctx); err != nil {
		return err
	}

	if opts.watch && mode != loop.ModeInteractive {
		return a.watch(ctx)
	}
	if opts.watch {
		printer.Warning("--watch is ignored in interactive mode")
	}
	_, err = a.runOnce(ctx)
	return err
}

// setup detects the analyzer, finds the lint config, and builds the oracle.
func (a *app) setup(ctx context.Context) error {
	linterCfg := lint.DefaultESLintConfig.Clone()
	if a.cfg.Lint.Command != "" {
		linterCfg = lint.ConfigFromCommand(a.cfg.Lint.Command)
	}
	if a.cfg.Lint.Timeout > 0 {
		linterCfg.Timeout = a.cfg.Lint.Timeout
	}
	a.analyzer = lint.NewRunner(
		lint.WithWorkingDir(a.root),
		lint.WithConfig(linterCfg),
		lint.WithPolicy(&a.cfg.Lint.Policy),
	)
	if err := a.analyzer.Detect(ctx); err != nil {
		return fmt.Errorf("ESLint is not available (%s): %w", linterCfg.Command, err)
	}

	a.lintCfg = a.cfg.Lint.Config
	if a.lintCfg == "" {
		found, err := lint.FindConfig(a.target, a.analyzer.SupportsFlatConfig())
		if err != nil {
			return err
		}
		a.lintCfg = found
	} else if abs, err := filepath.Abs(a.lintCfg); err == nil {
		a.lintCfg = abs
	}
	if _, err := os.Stat(a.lintCfg); err != nil {
		return fmt.Errorf("%w: %s", lint.ErrConfigMissing, a.lintCfg)
	}

	if a.mode == loop.ModeNonInteractive {
		return nil
	}

	provider, err := oracle.NewProvider(a.cfg.ProviderConfig(a.root))
	if err != nil {
		return err
	}
	oracleOpts := []oracle.Option{
		oracle.WithTimeout(a.cfg.Timeout),
		oracle.WithNormalizer(oracle.NewNormalizer(oracle.WithLogger(a.logger))),
	}
	if a.opts.raw {
		oracleOpts = append(oracleOpts, oracle.WithRawOutput(mutedWriter{a.printer}))
	}
	if a.cfg.RedactSecrets && !a.opts.noRedact {
		scrubber, err := redact.New()
		if err != nil {
			return err
		}
		oracleOpts = append(oracleOpts, oracle.WithRedactor(scrubber))
	}
	a.oracle = oracle.New(provider, oracleOpts...)

	a.logger.Info("Lintpilot configured",
		slog.String("mode", string(a.mode)),
		slog.String("provider", a.oracle.ProviderName()),
		slog.String("lint_config", a.lintCfg),
		slog.String("eslint_version", a.analyzer.Config().Version),
	)
	return nil
}

// runOnce builds a fresh driver and runner and drives the loop to a
// terminal state.
func (a *app) runOnce(ctx context.Context) (*loop.Report, error) {
	act := newActivity(a.printer.Err, ux.ShouldShowProgress() && !a.opts.raw)
	defer act.Stop()

	var driver loop.Driver
	switch a.mode {
	case loop.ModeNonInteractive:
		driver = loop.NewNonInteractive()
	case loop.ModeAutomated:
		driver = loop.NewAutomated(a.cfg.MaxSkips)
	default:
		driver = newInteractiveDriver(a.prompter(), a.printer, act, a.lintCfg)
	}

	var generator loop.Generator = unavailableGenerator{}
	providerName := ""
	if a.oracle != nil {
		providerName = a.oracle.ProviderName()
		generator = fixgen.NewGenerator(a.oracle,
			fixgen.WithContextLines(a.cfg.ContextLines),
			fixgen.WithSyntaxCheck(a.cfg.SyntaxCheck),
			fixgen.WithLogger(a.logger),
		)
	}

	observer := &uxObserver{
		printer:   a.printer,
		activity:  act,
		provider:  providerName,
		listItems: a.mode == loop.ModeNonInteractive,
	}

	runner, err := loop.NewRunner(loop.Config{
		Target:        a.target,
		Root:          a.root,
		LintConfig:    a.lintCfg,
		MaxIterations: a.cfg.MaxIterations,
		Provider:      providerName,
	}, a.analyzer, generator, patch.NewApplier(patch.WithLogger(a.logger)), driver,
		loop.WithObserver(observer),
		loop.WithLogger(a.logger),
		loop.WithSessions(session.NewManager()),
	)
	if err != nil {
		return nil, err
	}

	report, runErr := runner.Run(ctx)
	act.Stop()

	if report != nil {
		a.printSummary(report)
		if a.opts.output != "" {
			if err := loop.WriteReport(a.opts.output, report); err != nil {
				a.printer.Warning(err.Error())
			} else {
				a.printer.Muted("Summary written to " + a.opts.output)
			}
		}
	}
	return report, runErr
}

func (a *app) prompter() Prompter {
	if ux.IsInteractive() && ux.IsTerminal(os.Stdin) {
		return newHuhPrompter(os.Getenv("ACCESSIBLE") != "")
	}
	return newLinePrompter(a.stdin, a.printer.Out)
}

func (a *app) printSummary(r *loop.Report) {
	a.printer.Title("Summary")
	a.printer.Counts(
		ux.CountPair{N: r.Fixed, Label: "fixed", Style: ux.Styles.Success},
		ux.CountPair{N: r.Skipped, Label: "skipped", Style: ux.Styles.Warning},
		ux.CountPair{N: r.Suppressed, Label: "suppressed", Style: ux.Styles.Subtitle},
		ux.CountPair{N: r.ConfigEdits, Label: "config edits", Style: ux.Styles.Subtitle},
		ux.CountPair{N: r.Summary.Total, Label: "remaining", Style: ux.Styles.Muted},
	)
	if len(r.ExcludedPairs) > 0 {
		var lines []string
		for _, p := range r.ExcludedPairs {
			lines = append(lines, fmt.Sprintf("%s  %s", p.Rule, p.File))
		}
		a.printer.WarningBox("Gave up on", strings.Join(lines, "\n"))
	}
	if r.FinalState == loop.StateQuit && r.Error == "" {
		a.printer.Muted("Stopped before every finding was handled")
	}
}

// mutedWriter prints raw oracle replies as muted text.
type mutedWriter struct {
	p *ux.Printer
}

func (w mutedWriter) Write(b []byte) (int, error) {
	w.p.Muted(strings.TrimRight(string(b), "\n"))
	return len(b), nil
}

// unavailableGenerator stands in when no oracle is configured. The report
// driver never selects work, so it is never called.
type unavailableGenerator struct{}

var errNoOracle = errors.New("no oracle configured")

func (unavailableGenerator) Generate(context.Context, aggregate.WorkItem, fixgen.ConfigFile, *session.Manager) (*fixgen.FixBundle, error) {
	return nil, errNoOracle
}

func (unavailableGenerator) FollowUp(context.Context, *fixgen.FixBundle, string, *session.Manager) (string, error) {
	return "", errNoOracle
}
