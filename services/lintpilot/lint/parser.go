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
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// ESLINT JSON FORMAT
// =============================================================================

type eslintFileResult struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
	Source   string          `json:"source"`
}

type eslintMessage struct {
	RuleID    *string    `json:"ruleId"`
	Severity  int        `json:"severity"`
	Message   string     `json:"message"`
	Line      int        `json:"line"`
	Column    int        `json:"column"`
	EndLine   int        `json:"endLine"`
	EndColumn int        `json:"endColumn"`
	Fatal     bool       `json:"fatal"`
	Fix       *eslintFix `json:"fix"`
	Source    string     `json:"source"`
}

type eslintFix struct {
	Range [2]int `json:"range"`
	Text  string `json:"text"`
}

// parseESLintOutput decodes `eslint --format=json` output.
//
// Description:
//
//	Any banner text ESLint or a wrapper (npx) printed before the JSON array
//	is skipped. Messages with a null ruleId become parse-error Diagnostics,
//	except the non-fatal "File ignored" notices ESLint emits for ignored
//	paths, which are dropped.
//
// Inputs:
//
//	output - Raw stdout from eslint
//
// Outputs:
//
//	[]Diagnostic - Diagnostics in report order
//	error - Non-nil if no JSON array could be decoded
func parseESLintOutput(output []byte) ([]Diagnostic, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		idx := bytes.Index(trimmed, []byte("\n["))
		if idx < 0 {
			return nil, fmt.Errorf("no JSON array in output: %s", truncate(string(trimmed), 200))
		}
		trimmed = trimmed[idx+1:]
	}

	var files []eslintFileResult
	if err := json.Unmarshal(trimmed, &files); err != nil {
		return nil, fmt.Errorf("decoding eslint report: %w", err)
	}

	var diags []Diagnostic
	for _, file := range files {
		var sourceLines []string
		for _, msg := range file.Messages {
			if msg.RuleID == nil && !msg.Fatal && msg.Severity < 2 {
				continue
			}

			snippet := msg.Source
			if snippet == "" && file.Source != "" && msg.Line > 0 {
				if sourceLines == nil {
					sourceLines = strings.Split(file.Source, "\n")
				}
				if msg.Line <= len(sourceLines) {
					snippet = strings.TrimRight(sourceLines[msg.Line-1], "\r")
				}
			}

			diags = append(diags, Diagnostic{
				RuleID:   msg.RuleID,
				Severity: mapESLintSeverity(msg.Severity, msg.Fatal),
				File:     file.FilePath,
				Line:     msg.Line,
				Column:   msg.Column,
				EndLine:  msg.EndLine,
				Message:  msg.Message,
				HasFix:   msg.Fix != nil,
				Source:   snippet,
			})
		}
	}
	return diags, nil
}

// mapESLintSeverity maps ESLint's numeric severity (1=warn, 2=error).
// Fatal messages are always errors.
func mapESLintSeverity(severity int, fatal bool) Severity {
	if fatal || severity >= 2 {
		return SeverityError
	}
	return SeverityWarning
}
