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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/lintpilot/cmd/lintpilot/config"
	"github.com/AleutianAI/lintpilot/pkg/ux"
	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/loop"
)

// =============================================================================
// FLAG RESOLUTION TESTS
// =============================================================================

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name       string
		opts       runOptions
		configured string
		want       loop.Mode
		wantErr    bool
	}{
		{"default", runOptions{}, "", loop.ModeInteractive, false},
		{"config file", runOptions{}, "auto", loop.ModeAutomated, false},
		{"mode flag beats config", runOptions{mode: "non-interactive"}, "auto", loop.ModeNonInteractive, false},
		{"auto shortcut beats mode flag", runOptions{mode: "interactive", auto: true}, "", loop.ModeAutomated, false},
		{"non-interactive shortcut", runOptions{nonInteractive: true}, "", loop.ModeNonInteractive, false},
		{"conflicting shortcuts", runOptions{auto: true, nonInteractive: true}, "", "", true},
		{"unknown mode", runOptions{mode: "turbo"}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveMode(tt.opts, tt.configured)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveMode error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, loop.ErrInvalidInput) {
				t.Errorf("error %v does not wrap ErrInvalidInput", err)
			}
			if got != tt.want {
				t.Errorf("resolveMode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	err := applyFlags(&cfg, runOptions{
		provider:      "Codex",
		model:         "o4-mini",
		personality:   "MINIMAL",
		logLevel:      "debug",
		lintConfig:    "/proj/.eslintrc.json",
		maxIterations: 7,
		telemetry:     "stdout",
	})
	if err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if cfg.Provider != "codex" || cfg.Model != "o4-mini" || cfg.Personality != "minimal" {
		t.Errorf("provider/model/personality = %q/%q/%q", cfg.Provider, cfg.Model, cfg.Personality)
	}
	if cfg.Log.Level != "debug" || cfg.Lint.Config != "/proj/.eslintrc.json" || cfg.MaxIterations != 7 {
		t.Errorf("log/lint/iterations = %q/%q/%d", cfg.Log.Level, cfg.Lint.Config, cfg.MaxIterations)
	}
	if cfg.Telemetry.TraceExporter != "stdout" || cfg.Telemetry.MetricExporter != "stdout" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestApplyFlags_Invalid(t *testing.T) {
	for _, opts := range []runOptions{
		{provider: "gemini"},
		{telemetry: "zipkin"},
		{logLevel: "loud"},
	} {
		cfg := config.DefaultConfig()
		if err := applyFlags(&cfg, opts); !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("applyFlags(%+v) error = %v, want ErrInvalidConfig", opts, err)
		}
	}
}

func TestApplyFlags_TelemetryTargets(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Telemetry.TraceExporter = "none"
	cfg.Telemetry.MetricExporter = "none"
	if err := applyFlags(&cfg, runOptions{telemetry: "prometheus"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Telemetry.MetricExporter != "prometheus" || cfg.Telemetry.TraceExporter != "none" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestTargetRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.js")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	target, root, err := targetRoot(file)
	if err != nil || target != file || root != dir {
		t.Errorf("targetRoot(file) = %q, %q, %v", target, root, err)
	}
	target, root, err = targetRoot(dir)
	if err != nil || target != dir || root != dir {
		t.Errorf("targetRoot(dir) = %q, %q, %v", target, root, err)
	}
	if _, _, err := targetRoot(filepath.Join(dir, "missing")); err == nil {
		t.Error("targetRoot(missing) succeeded")
	}
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestInitCommand_WritesConfigOnce(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	cmd.SetArgs([]string{"init", dir})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "lintpilot.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"init", dir})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("second init overwrote the config")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "lintpilot "+version) {
		t.Errorf("version output = %q", out.String())
	}
	if !strings.Contains(out.String(), "eslint") {
		t.Errorf("version output lacks eslint line: %q", out.String())
	}
}

func TestRunCommand_RejectsConflictingModes(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LINTPILOT_PROVIDER", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--auto", "--non-interactive", dir})
	err := cmd.ExecuteContext(context.Background())
	if !errors.Is(err, loop.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRunCommand_MissingTarget(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("missing target accepted")
	}
}

// =============================================================================
// OUTPUT TESTS
// =============================================================================

func TestMutedWriter(t *testing.T) {
	saved := ux.GetPersonality()
	defer ux.SetPersonality(saved)
	ux.SetPersonalityLevel(ux.PersonalityMinimal)

	var out bytes.Buffer
	w := mutedWriter{ux.NewPrinter(&out, &out)}
	n, err := w.Write([]byte(`{"result":"ok"}` + "\n"))
	if err != nil || n != 16 {
		t.Errorf("Write = %d, %v", n, err)
	}
	if out.String() != "{\"result\":\"ok\"}\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestObserver_Scanned(t *testing.T) {
	saved := ux.GetPersonality()
	defer ux.SetPersonality(saved)
	ux.SetPersonalityLevel(ux.PersonalityMachine)

	var out bytes.Buffer
	obs := &uxObserver{printer: ux.NewPrinter(&out, &out), listItems: true}
	items := []aggregate.WorkItem{workItem("no-console", "a.js"), {Count: 1}}
	obs.Scanned(1, aggregate.Summary{Total: 2, Errors: 2, UniqueRules: 1}, items)

	got := out.String()
	if !strings.Contains(got, "SUMMARY: errors=2 warnings=0 auto-fixable=0 rules=1") {
		t.Errorf("summary line missing: %q", got)
	}
	if !strings.Contains(got, "no-console") || !strings.Contains(got, "(parse error)") {
		t.Errorf("item list missing: %q", got)
	}

	out.Reset()
	obs.Scanned(2, aggregate.Summary{}, nil)
	if !strings.Contains(out.String(), "OK: No lint findings") {
		t.Errorf("clean scan = %q", out.String())
	}
}

func TestObserver_Acted(t *testing.T) {
	saved := ux.GetPersonality()
	defer ux.SetPersonality(saved)
	ux.SetPersonalityLevel(ux.PersonalityMachine)

	var out bytes.Buffer
	obs := &uxObserver{printer: ux.NewPrinter(&out, &out)}
	b := testBundle(2, true)

	obs.Acted(b, loop.ActionResult{Kind: loop.ActionApplyFixes, Applied: 1, Failed: 1})
	if !strings.Contains(out.String(), "WARN: no-console: applied 1 fix, 1 could not be applied") {
		t.Errorf("apply output = %q", out.String())
	}

	out.Reset()
	obs.Acted(b, loop.ActionResult{Kind: loop.ActionSuppressLine, Applied: 3})
	if !strings.Contains(out.String(), "OK: no-console: added 3 suppressions") {
		t.Errorf("suppress output = %q", out.String())
	}
}
