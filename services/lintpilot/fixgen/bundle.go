// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixgen

import (
	"strings"

	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/oracle"
	"github.com/AleutianAI/lintpilot/services/lintpilot/patch"
	"github.com/sourcegraph/go-diff/diff"
)

// FailedDisableDiff is the diff description of a disable edit that could
// not be generated.
const FailedDisableDiff = "Failed to generate"

// ConfigFile is the lint config a disable edit rewrites.
type ConfigFile struct {
	Path string
	Text string
}

// ConfigEdit is a full replacement of the lint config.
type ConfigEdit struct {
	Path       string `json:"path"`
	NewContent string `json:"newContent"`
	Diff       string `json:"diff"`
}

// Available reports whether the edit carries content to write.
func (e ConfigEdit) Available() bool {
	return e.Path != "" && e.NewContent != ""
}

// DiffStat counts changed lines in a unified diff.
type DiffStat struct {
	Added   int
	Removed int
}

// Stat parses Diff as a unified diff. ok is false when Diff is prose.
func (e ConfigEdit) Stat() (DiffStat, bool) {
	var hunks []*diff.Hunk
	if fd, err := diff.ParseFileDiff([]byte(e.Diff)); err == nil && len(fd.Hunks) > 0 {
		hunks = fd.Hunks
	} else if hs, err := diff.ParseHunks([]byte(e.Diff)); err == nil {
		hunks = hs
	}
	if len(hunks) == 0 {
		return DiffStat{}, false
	}

	var stat DiffStat
	for _, hunk := range hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				stat.Added++
			case strings.HasPrefix(line, "-"):
				stat.Removed++
			}
		}
	}
	return stat, true
}

// FixBundle is the remediation package for one work item.
type FixBundle struct {
	RuleID      string              `json:"ruleId"`
	Severity    lint.Severity       `json:"severity"`
	Explanation oracle.Explanation  `json:"explanation"`
	DisableEdit ConfigEdit          `json:"disableEdit"`
	Fixes       []patch.LocationFix `json:"fixes"`

	// Count is the number of accepted fixes.
	Count int `json:"count"`

	// Item is the work item the bundle was generated for.
	Item aggregate.WorkItem `json:"-"`

	// Rejected counts proposals dropped by validation; Failed counts
	// location calls that produced no payload.
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

// Files returns the distinct files the bundle's work item touches.
func (b *FixBundle) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, loc := range b.Item.Locations {
		if !seen[loc.FullPath] {
			seen[loc.FullPath] = true
			files = append(files, loc.FullPath)
		}
	}
	return files
}

// Summary renders the bundle as plain text for follow-up questions.
func (b *FixBundle) Summary() string {
	var sb strings.Builder
	sb.WriteString("Rule: " + b.RuleID + "\n")
	if b.Explanation.Problem != "" {
		sb.WriteString("Problem: " + b.Explanation.Problem + "\n")
	}
	if b.Explanation.Remediation != "" {
		sb.WriteString("Remediation: " + b.Explanation.Remediation + "\n")
	}
	for _, fix := range b.Fixes {
		sb.WriteString("\nFix for " + fix.File + ":\n--- original\n" + fix.Original + "\n+++ proposed\n" + fix.Fixed + "\n")
	}
	return sb.String()
}
