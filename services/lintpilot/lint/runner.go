// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/mod/semver"
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes the analyzer and converts its output into Diagnostics.
//
// Description:
//
//	Runner implements Analyzer over an ESLint-compatible binary. Call
//	Detect once at startup to confirm the binary exists and record its
//	version.
//
// Thread Safety: Safe for concurrent use.
type Runner struct {
	mu         sync.RWMutex
	config     *LinterConfig
	policy     *RulePolicy
	workingDir string
}

// Option configures the Runner.
type Option func(*Runner)

// WithWorkingDir sets the working directory for analyzer execution.
func WithWorkingDir(dir string) Option {
	return func(r *Runner) {
		r.workingDir = dir
	}
}

// WithConfig sets a custom analyzer configuration.
func WithConfig(config *LinterConfig) Option {
	return func(r *Runner) {
		if config != nil {
			r.config = config.Clone()
		}
	}
}

// WithPolicy sets the rule policy applied to every Run.
func WithPolicy(policy *RulePolicy) Option {
	return func(r *Runner) {
		r.policy = policy
	}
}

// NewRunner creates a new analyzer runner.
//
// Inputs:
//
//	opts - Optional configuration options
//
// Outputs:
//
//	*Runner - The configured runner, using DefaultESLintConfig unless overridden
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		config: DefaultESLintConfig.Clone(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Analyzer = (*Runner)(nil)

// Detect checks that the analyzer is installed and records its version.
//
// Description:
//
//	Probes PATH for the configured command and runs VersionArgs. A version
//	that cannot be parsed is logged and left empty; only a missing binary
//	is an error.
//
// Errors:
//
//	ErrLinterNotInstalled - Command not found in PATH
func (r *Runner) Detect(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := exec.LookPath(r.config.Command); err != nil {
		r.config.Available = false
		slog.Warn("Linter not installed",
			slog.String("linter", r.config.Name),
			slog.String("command", r.config.Command),
		)
		return NewLinterError(r.config.Name, ErrLinterNotInstalled).WithOutput(err.Error())
	}
	r.config.Available = true

	if len(r.config.VersionArgs) > 0 {
		out, err := r.execute(ctx, r.config, r.config.VersionArgs, "")
		if err != nil {
			slog.Warn("Could not determine linter version",
				slog.String("linter", r.config.Name),
				slog.String("error", err.Error()),
			)
		} else {
			r.config.Version = parseVersion(string(out))
		}
	}

	slog.Info("Linter available",
		slog.String("linter", r.config.Name),
		slog.String("command", r.config.Command),
		slog.String("version", r.config.Version),
	)
	return nil
}

// Config returns a copy of the analyzer configuration.
func (r *Runner) Config() *LinterConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Clone()
}

// SupportsFlatConfig reports whether the detected version defaults to flat
// config files (ESLint v9+). An unknown version is assumed to be current.
func (r *Runner) SupportsFlatConfig() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.config.Version == "" {
		return true
	}
	return semver.Compare(r.config.Version, "v9.0.0") >= 0
}

// Run scans target and returns every Diagnostic.
//
// Description:
//
//	Invokes the analyzer with Args plus target, decodes the JSON report and
//	applies the rule policy. A non-zero exit with stdout is expected when
//	findings exist and is not an error.
//
// Inputs:
//
//	ctx - Context for cancellation and timeout
//	target - File or directory to scan
//
// Outputs:
//
//	[]Diagnostic - All diagnostics in report order
//	error - Non-nil if the analyzer could not run or its output was unreadable
//
// Errors:
//
//	ErrInvalidInput - nil ctx or empty target
//	ErrLinterTimeout - Analyzer exceeded Timeout
//	ErrLinterFailed - Analyzer exited without output
//	ErrParseOutput - Output was not a JSON report
func (r *Runner) Run(ctx context.Context, target string) ([]Diagnostic, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}
	if target == "" {
		return nil, fmt.Errorf("%w: target must not be empty", ErrInvalidInput)
	}

	config := r.Config()
	ctx, span := startSpan(ctx, "Runner.Run", config.Name, target)
	defer span.End()
	start := time.Now()

	output, err := r.execute(ctx, config, config.Args, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordScanMetrics(ctx, config.Name, time.Since(start), 0, false)
		return nil, err
	}

	diags, err := parseESLintOutput(output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordScanMetrics(ctx, config.Name, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: %v", ErrParseOutput, err)
	}

	r.mu.RLock()
	policy := r.policy
	r.mu.RUnlock()
	diags = policy.Apply(diags)

	span.SetAttributes(attribute.Int("lint.diagnostics", len(diags)))
	recordScanMetrics(ctx, config.Name, time.Since(start), len(diags), true)

	slog.Debug("Scan completed",
		slog.String("target", target),
		slog.String("linter", config.Name),
		slog.Duration("duration", time.Since(start)),
		slog.Int("diagnostics", len(diags)),
	)
	return diags, nil
}

// RunAutoFix applies the analyzer's mechanical fixes to target in place.
//
// Description:
//
//	The fix run's report is discarded; the next Run observes the result.
//
// Errors:
//
//	ErrInvalidInput - nil ctx, empty target, or no FixArgs configured
//	ErrLinterTimeout, ErrLinterFailed - as for Run
func (r *Runner) RunAutoFix(ctx context.Context, target string) error {
	if ctx == nil {
		return fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}
	if target == "" {
		return fmt.Errorf("%w: target must not be empty", ErrInvalidInput)
	}

	config := r.Config()
	if len(config.FixArgs) == 0 {
		return fmt.Errorf("%w: %s does not support auto-fix", ErrInvalidInput, config.Name)
	}

	ctx, span := startSpan(ctx, "Runner.RunAutoFix", config.Name, target)
	defer span.End()

	_, err := r.execute(ctx, config, config.FixArgs, target)
	recordAutoFix(ctx, config.Name, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	slog.Info("Auto-fix completed",
		slog.String("target", target),
		slog.String("linter", config.Name),
	)
	return nil
}

// execute runs the analyzer subprocess and returns stdout.
func (r *Runner) execute(ctx context.Context, config *LinterConfig, args []string, target string) ([]byte, error) {
	fullArgs := make([]string, 0, len(config.PrefixArgs)+len(args)+1)
	fullArgs = append(fullArgs, config.PrefixArgs...)
	fullArgs = append(fullArgs, args...)
	if target != "" {
		fullArgs = append(fullArgs, target)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, config.Command, fullArgs...)
	switch {
	case r.workingDir != "":
		cmd.Dir = r.workingDir
	case target != "" && filepath.IsAbs(target):
		cmd.Dir = filepath.Dir(target)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return nil, NewLinterError(config.Name, ErrLinterTimeout).WithOutput(stderr.String())
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// ESLint exits 1 when errors are reported; only fail without stdout.
	if err != nil && stdout.Len() == 0 {
		return nil, NewLinterError(config.Name, ErrLinterFailed).WithOutput(stderr.String())
	}

	return stdout.Bytes(), nil
}

// parseVersion extracts a canonical semver from `eslint --version` output.
func parseVersion(out string) string {
	for _, field := range strings.Fields(out) {
		v := field
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if semver.IsValid(v) {
			return semver.Canonical(v)
		}
	}
	return ""
}
