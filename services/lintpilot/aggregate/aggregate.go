// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregate groups raw diagnostics into per-rule work items.
//
// Aggregate is a pure function: the same diagnostics always produce the same
// Summary and the same WorkItem ordering (first occurrence of each rule).
package aggregate

import (
	"path/filepath"
	"strings"

	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
)

// MaxSamples caps the distinct messages and snippets kept per WorkItem.
const MaxSamples = 3

// =============================================================================
// TYPES
// =============================================================================

// Location is one occurrence of a rule.
type Location struct {
	ShortPath string        `json:"file"`
	FullPath  string        `json:"fullPath"`
	Line      int           `json:"line"`
	Column    int           `json:"column"`
	Severity  lint.Severity `json:"severity"`
	HasFix    bool          `json:"hasFix"`
	Message   string        `json:"message"`
}

// WorkItem is every diagnostic for one rule.
//
// Invariants: Count == len(Locations), FixableCount equals the number of
// Locations with HasFix, and a nil RuleID is the parse-error bucket.
type WorkItem struct {
	RuleID         *string       `json:"ruleId"`
	Severity       lint.Severity `json:"severity"`
	Count          int           `json:"count"`
	AutoFixable    bool          `json:"autoFixable"`
	FixableCount   int           `json:"fixableCount"`
	Locations      []Location    `json:"locations"`
	SampleMessages []string      `json:"sampleMessages"`
	SampleSources  []string      `json:"sampleSources,omitempty"`
}

// Rule returns the rule identifier, or "" for the parse-error bucket.
func (w WorkItem) Rule() string {
	if w.RuleID == nil {
		return ""
	}
	return *w.RuleID
}

// IsParseError reports whether this is the parse-error bucket.
func (w WorkItem) IsParseError() bool {
	return w.RuleID == nil
}

// PrimaryFile is the file of the first location. The session reset boundary
// is keyed on it.
func (w WorkItem) PrimaryFile() string {
	if len(w.Locations) == 0 {
		return ""
	}
	return w.Locations[0].FullPath
}

// Files returns the distinct files touched by the item, in location order.
func (w WorkItem) Files() []string {
	seen := make(map[string]bool, len(w.Locations))
	var files []string
	for _, loc := range w.Locations {
		if !seen[loc.FullPath] {
			seen[loc.FullPath] = true
			files = append(files, loc.FullPath)
		}
	}
	return files
}

// ForFile returns a copy of the item restricted to locations in file, with
// counts recomputed. Samples are kept as-is.
func (w WorkItem) ForFile(file string) WorkItem {
	out := w
	out.Locations = nil
	out.FixableCount = 0
	for _, loc := range w.Locations {
		if loc.FullPath != file {
			continue
		}
		out.Locations = append(out.Locations, loc)
		if loc.HasFix {
			out.FixableCount++
		}
	}
	out.Count = len(out.Locations)
	out.AutoFixable = out.FixableCount > 0
	return out
}

// Summary is derived from a WorkItem list and never mutated on its own.
type Summary struct {
	Total       int `json:"total"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	Fixable     int `json:"fixable"`
	UniqueRules int `json:"uniqueRules"`
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate groups diagnostics by rule identifier.
//
// Description:
//
//	Groups are keyed by exact rule equality, with all nil-rule diagnostics
//	in one parse-error bucket. Group order follows first occurrence. A
//	WorkItem is AutoFixable if any of its diagnostics carries a fix.
//
// Inputs:
//
//	diags - Every diagnostic from one analyzer run
//	root - Directory display paths are made relative to ("" for none)
//
// Outputs:
//
//	Summary - Totals derived from the returned items
//	[]WorkItem - One item per distinct rule, nil for empty input
func Aggregate(diags []lint.Diagnostic, root string) (Summary, []WorkItem) {
	var items []WorkItem
	index := make(map[string]int)
	parseIdx := -1

	for _, d := range diags {
		var pos int
		if d.IsParseError() {
			if parseIdx < 0 {
				parseIdx = len(items)
				items = append(items, WorkItem{Severity: d.Severity})
			}
			pos = parseIdx
		} else {
			p, ok := index[d.Rule()]
			if !ok {
				p = len(items)
				index[d.Rule()] = p
				items = append(items, WorkItem{RuleID: lint.RuleRef(d.Rule()), Severity: d.Severity})
			}
			pos = p
		}

		item := &items[pos]
		item.Locations = append(item.Locations, Location{
			ShortPath: displayPath(d.File, root),
			FullPath:  d.File,
			Line:      d.Line,
			Column:    d.Column,
			Severity:  d.Severity,
			HasFix:    d.HasFix,
			Message:   d.Message,
		})
		item.Count++
		if d.HasFix {
			item.FixableCount++
			item.AutoFixable = true
		}
		item.SampleMessages = addSample(item.SampleMessages, d.Message)
		item.SampleSources = addSample(item.SampleSources, strings.TrimSpace(d.Source))
	}

	return Summarize(items), items
}

// Summarize derives a Summary from items.
func Summarize(items []WorkItem) Summary {
	s := Summary{UniqueRules: len(items)}
	for _, item := range items {
		for _, loc := range item.Locations {
			s.Total++
			if loc.Severity == lint.SeverityError {
				s.Errors++
			} else {
				s.Warnings++
			}
			if loc.HasFix {
				s.Fixable++
			}
		}
	}
	return s
}

// Selectable returns the items eligible for AI-assisted remediation: a
// non-nil rule that is not marked AutoFixable.
func Selectable(items []WorkItem) []WorkItem {
	var out []WorkItem
	for _, item := range items {
		if item.IsParseError() || item.AutoFixable {
			continue
		}
		out = append(out, item)
	}
	return out
}

// ParseErrors returns the parse-error bucket, or nil if there is none.
func ParseErrors(items []WorkItem) *WorkItem {
	for i := range items {
		if items[i].IsParseError() {
			return &items[i]
		}
	}
	return nil
}

func addSample(samples []string, s string) []string {
	if s == "" || len(samples) >= MaxSamples {
		return samples
	}
	for _, existing := range samples {
		if existing == s {
			return samples
		}
	}
	return append(samples, s)
}

// displayPath returns path relative to root when it stays inside root.
func displayPath(path, root string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
