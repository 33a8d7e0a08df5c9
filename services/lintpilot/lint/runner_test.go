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
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeLinter writes an executable shell script standing in for eslint.
func fakeLinter(t *testing.T, body string) *LinterConfig {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "eslint")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake linter: %v", err)
	}
	cfg := DefaultESLintConfig.Clone()
	cfg.Command = path
	return cfg
}

func TestRunner_NilContext(t *testing.T) {
	runner := NewRunner()
	_, err := runner.Run(nil, "src") //nolint:staticcheck
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestRunner_EmptyTarget(t *testing.T) {
	runner := NewRunner()
	_, err := runner.Run(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "target must not be empty") {
		t.Errorf("Expected 'target must not be empty' error, got: %v", err)
	}
}

func TestRunner_NonZeroExitWithOutput(t *testing.T) {
	cfg := fakeLinter(t, `echo '[{"filePath":"a.js","messages":[{"ruleId":"semi","severity":2,"message":"Missing semicolon.","line":1,"column":10}]}]'
exit 1`)
	runner := NewRunner(WithConfig(cfg))

	diags, err := runner.Run(context.Background(), "a.js")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(diags) != 1 || diags[0].Rule() != "semi" {
		t.Errorf("Unexpected diagnostics: %+v", diags)
	}
}

func TestRunner_FailureWithoutOutput(t *testing.T) {
	cfg := fakeLinter(t, `echo "config error" >&2
exit 2`)
	runner := NewRunner(WithConfig(cfg))

	_, err := runner.Run(context.Background(), "a.js")
	if !errors.Is(err, ErrLinterFailed) {
		t.Fatalf("Expected ErrLinterFailed, got %v", err)
	}
	var lerr *LinterError
	if !errors.As(err, &lerr) || !strings.Contains(lerr.Output, "config error") {
		t.Errorf("Expected stderr captured, got %v", err)
	}
}

func TestRunner_UnparseableOutput(t *testing.T) {
	cfg := fakeLinter(t, `echo "not json"`)
	runner := NewRunner(WithConfig(cfg))

	_, err := runner.Run(context.Background(), "a.js")
	if !errors.Is(err, ErrParseOutput) {
		t.Errorf("Expected ErrParseOutput, got %v", err)
	}
}

func TestRunner_AutoFixPassesFixArgs(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "args")
	cfg := fakeLinter(t, `echo "$@" > `+marker+`
echo '[]'`)
	runner := NewRunner(WithConfig(cfg))

	if err := runner.RunAutoFix(context.Background(), "src"); err != nil {
		t.Fatalf("RunAutoFix: %v", err)
	}
	got, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("reading marker: %v", err)
	}
	if !strings.HasPrefix(string(got), "--fix") || !strings.Contains(string(got), "src") {
		t.Errorf("Unexpected args: %q", got)
	}
}

func TestRunner_AutoFixWithoutFixArgs(t *testing.T) {
	cfg := DefaultESLintConfig.Clone()
	cfg.FixArgs = nil
	runner := NewRunner(WithConfig(cfg))

	err := runner.RunAutoFix(context.Background(), "src")
	if err == nil || !strings.Contains(err.Error(), "does not support auto-fix") {
		t.Errorf("Expected 'does not support auto-fix' error, got: %v", err)
	}
}

func TestRunner_DetectVersion(t *testing.T) {
	cfg := fakeLinter(t, `echo "v8.57.0"`)
	runner := NewRunner(WithConfig(cfg))

	if err := runner.Detect(context.Background()); err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if got := runner.Config().Version; got != "v8.57.0" {
		t.Errorf("Version = %q, want v8.57.0", got)
	}
	if runner.SupportsFlatConfig() {
		t.Error("v8 should prefer legacy config")
	}
}

func TestRunner_DetectMissing(t *testing.T) {
	cfg := DefaultESLintConfig.Clone()
	cfg.Command = "definitely-not-a-real-eslint-binary"
	runner := NewRunner(WithConfig(cfg))

	if err := runner.Detect(context.Background()); !errors.Is(err, ErrLinterNotInstalled) {
		t.Errorf("Expected ErrLinterNotInstalled, got %v", err)
	}
}

func TestParseVersion(t *testing.T) {
	tests := map[string]string{
		"v9.12.0\n": "v9.12.0",
		"8.57.1":    "v8.57.1",
		"garbage":   "",
	}
	for in, want := range tests {
		if got := parseVersion(in); got != want {
			t.Errorf("parseVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfigFromCommand(t *testing.T) {
	cfg := ConfigFromCommand("npx eslint")
	if cfg.Command != "npx" || len(cfg.PrefixArgs) != 1 || cfg.PrefixArgs[0] != "eslint" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "packages", "app", "src")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	legacy := filepath.Join(root, ".eslintrc.json")
	flat := filepath.Join(root, "eslint.config.js")
	for _, p := range []string{legacy, flat} {
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := FindConfig(nested, true)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if got != flat {
		t.Errorf("preferFlat: got %s, want %s", got, flat)
	}

	got, err = FindConfig(nested, false)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if got != legacy {
		t.Errorf("legacy: got %s, want %s", got, legacy)
	}
}

func TestFindConfig_Missing(t *testing.T) {
	// t.TempDir lives under the system temp dir, which has no eslint config
	// unless the machine is unusual; guard against that.
	dir := t.TempDir()
	if _, err := FindConfig(dir, true); err != nil && !errors.Is(err, ErrConfigMissing) {
		t.Errorf("Expected ErrConfigMissing, got %v", err)
	}
}
