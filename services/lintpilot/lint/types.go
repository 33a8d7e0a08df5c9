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
	"time"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	// SeverityWarning represents findings that do not fail the lint run.
	SeverityWarning Severity = iota

	// SeverityError represents findings that fail the lint run.
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity as its string form for JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SeverityFromString parses a severity string.
//
// Description:
//
//	Parses common severity strings. Unknown values default to
//	SeverityWarning.
func SeverityFromString(s string) Severity {
	switch s {
	case "error", "err", "fatal", "critical":
		return SeverityError
	default:
		return SeverityWarning
	}
}

// =============================================================================
// DIAGNOSTIC
// =============================================================================

// Diagnostic is one raw finding from a single analyzer invocation.
//
// Description:
//
//	A nil RuleID denotes a parse or syntax error. Diagnostics are produced
//	once per Run and never mutated afterwards.
//
// Thread Safety: Immutable after creation.
type Diagnostic struct {
	// RuleID is the rule identifier, nil for parse errors.
	RuleID *string `json:"ruleId"`

	// Severity is error or warning.
	Severity Severity `json:"severity"`

	// File is the absolute path reported by the analyzer.
	File string `json:"file"`

	// Line is the 1-indexed line.
	Line int `json:"line"`

	// Column is the 1-indexed column.
	Column int `json:"column"`

	// EndLine is the last line of the range, 0 if unknown.
	EndLine int `json:"endLine,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// HasFix is true when the analyzer can apply this fix mechanically.
	HasFix bool `json:"hasFix"`

	// Source is the offending source line, when available.
	Source string `json:"source,omitempty"`
}

// IsParseError reports whether the diagnostic is a parse/syntax error.
func (d Diagnostic) IsParseError() bool {
	return d.RuleID == nil
}

// Rule returns the rule identifier, or "" for parse errors.
func (d Diagnostic) Rule() string {
	if d.RuleID == nil {
		return ""
	}
	return *d.RuleID
}

// RuleRef returns a pointer to a copy of rule, for building Diagnostics.
func RuleRef(rule string) *string {
	return &rule
}

// =============================================================================
// ANALYZER
// =============================================================================

// Analyzer is the black-box static-analysis contract consumed by the fix loop.
type Analyzer interface {
	// Run scans target and returns every diagnostic.
	Run(ctx context.Context, target string) ([]Diagnostic, error)

	// RunAutoFix applies the analyzer's own mechanical fixes in place.
	RunAutoFix(ctx context.Context, target string) error
}

// =============================================================================
// LINTER CONFIG
// =============================================================================

// LinterConfig configures how to run the analyzer binary.
type LinterConfig struct {
	// Name identifies the analyzer (e.g., "eslint").
	Name string

	// Command is the binary to execute.
	Command string

	// PrefixArgs are inserted before every argument list (e.g., "eslint"
	// when Command is "npx").
	PrefixArgs []string

	// Args are passed for a scan. The target path is appended.
	Args []string

	// FixArgs are passed for an auto-fix run. The target path is appended.
	FixArgs []string

	// VersionArgs print the analyzer version.
	VersionArgs []string

	// Timeout bounds a single invocation.
	Timeout time.Duration

	// Available is set by Runner.Detect.
	Available bool

	// Version is the semver reported by the analyzer ("v9.12.0"), set by Detect.
	Version string
}

// Clone returns a deep copy of the config.
func (c *LinterConfig) Clone() *LinterConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.PrefixArgs = append([]string(nil), c.PrefixArgs...)
	clone.Args = append([]string(nil), c.Args...)
	clone.FixArgs = append([]string(nil), c.FixArgs...)
	clone.VersionArgs = append([]string(nil), c.VersionArgs...)
	return &clone
}
