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
	"testing"
)

func TestMatchesRule(t *testing.T) {
	tests := []struct {
		rule    string
		pattern string
		want    bool
	}{
		{"eqeqeq", "eqeqeq", true},
		{"react/jsx-key", "react", true},
		{"react-hooks/rules-of-hooks", "react", false},
		{"@typescript-eslint/no-unsafe-call", "@typescript-eslint/no-unsafe-*", true},
		{"@typescript-eslint/no-explicit-any", "@typescript-eslint/no-unsafe-*", false},
		{"no-console", "", false},
	}

	for _, tt := range tests {
		if got := matchesRule(tt.rule, tt.pattern); got != tt.want {
			t.Errorf("matchesRule(%q, %q) = %v, want %v", tt.rule, tt.pattern, got, tt.want)
		}
	}
}

func TestRulePolicy_Apply(t *testing.T) {
	policy := &RulePolicy{
		BlockOn: []string{"no-undef"},
		WarnOn:  []string{"eqeqeq"},
		Ignore:  []string{"max-len"},
	}

	in := []Diagnostic{
		{RuleID: RuleRef("no-undef"), Severity: SeverityWarning},
		{RuleID: RuleRef("max-len"), Severity: SeverityError},
		{RuleID: RuleRef("eqeqeq"), Severity: SeverityError},
		{RuleID: nil, Severity: SeverityError},
		{RuleID: RuleRef("semi"), Severity: SeverityError},
	}

	out := policy.Apply(in)
	if len(out) != 4 {
		t.Fatalf("Expected 4 diagnostics, got %d", len(out))
	}
	if out[0].Severity != SeverityError {
		t.Error("no-undef should be graded as error")
	}
	if out[1].Rule() != "eqeqeq" || out[1].Severity != SeverityWarning {
		t.Errorf("eqeqeq should be graded as warning, got %s %v", out[1].Rule(), out[1].Severity)
	}
	if !out[2].IsParseError() {
		t.Error("parse error must be kept")
	}
	if out[3].Severity != SeverityError {
		t.Error("unmatched rule keeps its severity")
	}
	if in[0].Severity != SeverityWarning {
		t.Error("input must not be modified")
	}
}

func TestRulePolicy_EmptyIsIdentity(t *testing.T) {
	var policy *RulePolicy
	in := []Diagnostic{{RuleID: RuleRef("semi")}}
	if out := policy.Apply(in); len(out) != 1 {
		t.Errorf("Expected nil policy to keep diagnostics, got %d", len(out))
	}
}
