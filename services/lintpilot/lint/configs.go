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
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultESLintConfig runs a locally or globally installed eslint.
//
// Description:
//
//	--no-error-on-unmatched-pattern keeps an empty directory from being a
//	scan failure. FixArgs keep --format=json so a fix run that still leaves
//	diagnostics does not print a stylish report to stdout.
var DefaultESLintConfig = LinterConfig{
	Name:    "eslint",
	Command: "eslint",
	Args: []string{
		"--format=json",
		"--no-error-on-unmatched-pattern",
	},
	FixArgs: []string{
		"--fix",
		"--format=json",
		"--no-error-on-unmatched-pattern",
	},
	VersionArgs: []string{"--version"},
	Timeout:     120 * time.Second,
}

// SourceExtensions are the file types ESLint is expected to lint.
var SourceExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// IsSourceFile reports whether path has a lintable extension.
func IsSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LanguageFromPath returns the grammar name for a source file:
// "javascript", "typescript", "tsx", or "" for unknown extensions.
func LanguageFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".ts", ".mts", ".cts":
		return "typescript"
	case ".tsx":
		return "tsx"
	default:
		return ""
	}
}

// ConfigFromCommand builds a LinterConfig from a command line such as
// "npx eslint" or "/opt/node/bin/eslint".
func ConfigFromCommand(command string) *LinterConfig {
	cfg := DefaultESLintConfig.Clone()
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return cfg
	}
	cfg.Command = fields[0]
	cfg.PrefixArgs = fields[1:]
	return cfg
}
