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
	"strings"
)

// =============================================================================
// RULE POLICY
// =============================================================================

// RulePolicy re-grades or drops diagnostics before aggregation.
//
// Description:
//
//	Patterns match a rule exactly, by plugin hierarchy ("react" matches
//	"react/jsx-key"), or by a trailing wildcard ("@typescript-eslint/no-unsafe-*").
//	Matching is case-insensitive. Ignore takes precedence, then BlockOn,
//	then WarnOn. Rules matching nothing keep ESLint's own severity.
//
// Thread Safety: Treat as immutable after creation.
type RulePolicy struct {
	// BlockOn rules are graded as errors.
	BlockOn []string `yaml:"block_on" toml:"block_on" json:"blockOn,omitempty"`

	// WarnOn rules are graded as warnings.
	WarnOn []string `yaml:"warn_on" toml:"warn_on" json:"warnOn,omitempty"`

	// Ignore rules are dropped entirely.
	Ignore []string `yaml:"ignore" toml:"ignore" json:"ignore,omitempty"`
}

// IsEmpty reports whether the policy changes nothing.
func (p *RulePolicy) IsEmpty() bool {
	return p == nil || (len(p.BlockOn) == 0 && len(p.WarnOn) == 0 && len(p.Ignore) == 0)
}

// ShouldBlock returns true if the rule should be graded as an error.
func (p *RulePolicy) ShouldBlock(rule string) bool {
	return matchesAny(rule, p.BlockOn)
}

// ShouldWarn returns true if the rule should be graded as a warning.
func (p *RulePolicy) ShouldWarn(rule string) bool {
	return matchesAny(rule, p.WarnOn)
}

// ShouldIgnore returns true if the rule should be dropped.
func (p *RulePolicy) ShouldIgnore(rule string) bool {
	return matchesAny(rule, p.Ignore)
}

// Apply returns the diagnostics with the policy applied.
//
// Description:
//
//	Parse errors are never dropped or re-graded. The input slice is not
//	modified; a new slice is returned.
//
// Inputs:
//
//	diags - Diagnostics from one Run
//
// Outputs:
//
//	[]Diagnostic - Filtered and re-graded diagnostics, in input order
func (p *RulePolicy) Apply(diags []Diagnostic) []Diagnostic {
	if p.IsEmpty() {
		return diags
	}
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.IsParseError() {
			out = append(out, d)
			continue
		}
		rule := d.Rule()
		switch {
		case p.ShouldIgnore(rule):
			continue
		case p.ShouldBlock(rule):
			d.Severity = SeverityError
		case p.ShouldWarn(rule):
			d.Severity = SeverityWarning
		}
		out = append(out, d)
	}
	return out
}

func matchesAny(rule string, patterns []string) bool {
	rule = strings.ToLower(rule)
	for _, pattern := range patterns {
		if matchesRule(rule, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// matchesRule checks if a rule matches a pattern.
//
// Examples:
//   - "eqeqeq" matches "eqeqeq"
//   - "react/jsx-key" matches "react" (hierarchy)
//   - "@typescript-eslint/no-unsafe-call" matches "@typescript-eslint/no-unsafe-*"
func matchesRule(rule, pattern string) bool {
	if pattern == "" {
		return false
	}
	if rule == pattern {
		return true
	}
	if strings.HasPrefix(rule, pattern+"/") {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(rule, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
