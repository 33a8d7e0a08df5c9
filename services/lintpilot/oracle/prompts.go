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

import (
	"fmt"
	"strings"
)

// =============================================================================
// SCHEMAS
// =============================================================================

// ExplainSchema is the payload shape for Explain.
var ExplainSchema = Schema{
	Name:   "explain",
	Fields: []string{"problem", "rationale", "remediation", "priority"},
	Aliases: map[string]string{
		"description": "problem",
		"why":         "rationale",
		"fix":         "remediation",
		"how_to_fix":  "remediation",
	},
	JSON: `{"type":"object","properties":{"problem":{"type":"string"},"rationale":{"type":"string"},"remediation":{"type":"string"},"priority":{"type":"string","enum":["low","medium","high"]}},"required":["problem","rationale","remediation","priority"]}`,
}

// FixSchema is the payload shape for GenerateFix.
var FixSchema = Schema{
	Name:   "fix",
	Fields: []string{"start_line", "end_line", "fixed_code"},
	Aliases: map[string]string{
		"startLine":   "start_line",
		"endLine":     "end_line",
		"fixedCode":   "fixed_code",
		"replacement": "fixed_code",
		"fixed":       "fixed_code",
	},
	JSON: `{"type":"object","properties":{"start_line":{"type":"integer"},"end_line":{"type":"integer"},"fixed_code":{"type":"string"},"explanation":{"type":"string"}},"required":["start_line","end_line","fixed_code","explanation"]}`,
}

// DisableSchema is the payload shape for GenerateDisableEdit.
var DisableSchema = Schema{
	Name:   "disable",
	Fields: []string{"new_content", "diff"},
	Aliases: map[string]string{
		"newContent": "new_content",
		"content":    "new_content",
	},
	JSON: `{"type":"object","properties":{"new_content":{"type":"string"},"diff":{"type":"string"}},"required":["new_content","diff"]}`,
}

// FollowUpSchema is the payload shape for AskFollowUp.
var FollowUpSchema = Schema{
	Name:    "followup",
	Fields:  []string{"answer"},
	Aliases: map[string]string{"response": "answer", "text": "answer"},
	JSON:    `{"type":"object","properties":{"answer":{"type":"string"}},"required":["answer"]}`,
}

// =============================================================================
// PROMPTS
// =============================================================================

const systemPrompt = `You help fix ESLint findings in a JavaScript/TypeScript project.
Reply with a single JSON object and nothing else. Do not edit files yourself.`

func explainPrompt(req ExplainRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Explain the ESLint rule %q as it applies to this code.\n\n", req.RuleID)
	if len(req.SampleMessages) > 0 {
		b.WriteString("Messages reported:\n")
		for _, m := range req.SampleMessages {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}
	if len(req.SampleSource) > 0 {
		b.WriteString("Offending source:\n")
		for _, s := range req.SampleSource {
			fmt.Fprintf(&b, "    %s\n", s)
		}
		b.WriteString("\n")
	}
	b.WriteString(`Return JSON: {"problem": "...", "rationale": "...", "remediation": "...", "priority": "low|medium|high"}`)
	return b.String()
}

func fixPrompt(req FixRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fix the ESLint finding %q in %s at line %d.\n", req.RuleID, req.FilePath, req.Line)
	fmt.Fprintf(&b, "Message: %s\n\n", req.Message)
	b.WriteString("Code (file line numbers on the left, the finding is marked with >):\n")
	b.WriteString(req.CodeContext)
	b.WriteString("\n\n")
	b.WriteString("Replace the smallest inclusive line range that fixes the finding without changing behaviour.\n")
	b.WriteString("start_line and end_line are file line numbers. fixed_code replaces those lines entirely, ")
	b.WriteString("keeps their indentation, and has no line-number prefixes.\n")
	b.WriteString(`Return JSON: {"start_line": N, "end_line": N, "fixed_code": "...", "explanation": "..."}`)
	return b.String()
}

func disablePrompt(req DisableRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Edit this ESLint config (%s) so that the rule %q is turned off for the whole project.\n", req.ConfigPath, req.RuleID)
	b.WriteString("Keep every other setting, comment and the file format unchanged.\n\n")
	b.WriteString("Current content:\n")
	b.WriteString(req.ConfigText)
	b.WriteString("\n\n")
	b.WriteString(`Return JSON: {"new_content": "<the complete new file>", "diff": "<unified diff of the change>"}`)
	return b.String()
}

func followUpPrompt(req FollowUpRequest) string {
	var b strings.Builder
	if req.Context != "" {
		b.WriteString("Context:\n")
		b.WriteString(req.Context)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Question: %s\n\n", req.Question)
	b.WriteString(`Return JSON: {"answer": "..."}`)
	return b.String()
}

// combinedPrompt folds the system prompt into the text for CLI providers.
func combinedPrompt(p Prompt) string {
	if strings.TrimSpace(p.System) == "" {
		return p.Text
	}
	return fmt.Sprintf("[System Instructions]\n%s\n\n[User Request]\n%s", p.System, p.Text)
}
