// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import "strings"

// =============================================================================
// REQUESTS
// =============================================================================

// ExplainRequest asks for a rule-level explanation.
type ExplainRequest struct {
	RuleID         string
	SampleSource   []string
	SampleMessages []string
}

// FixRequest asks for a fix at one location.
type FixRequest struct {
	RuleID   string
	FilePath string
	Line     int
	Message  string

	// CodeContext is the numbered context window around Line.
	CodeContext string
}

// DisableRequest asks for a lint-config edit that turns RuleID off.
type DisableRequest struct {
	RuleID     string
	ConfigPath string
	ConfigText string
}

// FollowUpRequest asks a free-form question about the current bundle.
type FollowUpRequest struct {
	Question string
	Context  string
}

// =============================================================================
// PAYLOADS
// =============================================================================

// Priority is an Explanation's urgency tier.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps free text onto a tier, defaulting to medium.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Explanation describes a rule in the context of the project.
type Explanation struct {
	Problem     string   `json:"problem"`
	Rationale   string   `json:"rationale"`
	Remediation string   `json:"remediation"`
	Priority    Priority `json:"priority"`
}

// PlaceholderExplanation is substituted when the explain call fails.
func PlaceholderExplanation() Explanation {
	return Explanation{
		Problem:  "Failed to generate explanation",
		Priority: PriorityMedium,
	}
}

// FixProposal is the assistant's fix for one location. Line numbers are
// 1-indexed and inclusive, relative to the whole file.
type FixProposal struct {
	StartLine   int    `json:"start_line" validate:"min=1"`
	EndLine     int    `json:"end_line" validate:"gtefield=StartLine"`
	FixedCode   string `json:"fixed_code" validate:"required"`
	Explanation string `json:"explanation"`
}

// DisableEdit is a full replacement of the lint config plus a description.
type DisableEdit struct {
	NewContent string `json:"new_content"`
	Diff       string `json:"diff"`
}

// FollowUpAnswer is a free-text answer.
type FollowUpAnswer struct {
	Answer string `json:"answer"`
}
