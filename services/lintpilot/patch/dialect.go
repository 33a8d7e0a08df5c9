// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patch

import (
	"regexp"
	"strings"
)

// Dialect describes a linter's suppression comment syntax.
type Dialect struct {
	// Name identifies the linter ("eslint").
	Name string

	// LinePrefix precedes the rule in a next-line suppression.
	LinePrefix string

	// FileOpen and FileClose wrap the rule list of a file-level header.
	FileOpen  string
	FileClose string

	// RuleSeparator joins rules in a file-level header.
	RuleSeparator string

	header *regexp.Regexp
}

// ESLintDialect writes `// eslint-disable-next-line rule` and
// `/* eslint-disable a, b */`.
var ESLintDialect = NewDialect("eslint", "// eslint-disable-next-line ", "/* eslint-disable ", " */", ", ")

// NewDialect builds a Dialect. The file header pattern is derived from
// fileOpen and fileClose, tolerating extra whitespace.
func NewDialect(name, linePrefix, fileOpen, fileClose, sep string) *Dialect {
	open := strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSpace(fileOpen)), " ", `\s*`)
	closing := strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSpace(fileClose)), " ", `\s*`)
	return &Dialect{
		Name:          name,
		LinePrefix:    linePrefix,
		FileOpen:      fileOpen,
		FileClose:     fileClose,
		RuleSeparator: sep,
		header:        regexp.MustCompile(`^\s*` + open + `(?:\s+(.*?))?\s*` + closing + `\s*$`),
	}
}

// LineComment returns the next-line suppression for rule.
func (d *Dialect) LineComment(rule string) string {
	return d.LinePrefix + rule
}

// FileHeader returns a file-level suppression listing rules.
func (d *Dialect) FileHeader(rules []string) string {
	return d.FileOpen + strings.Join(rules, d.RuleSeparator) + d.FileClose
}

// ParseHeader reports whether line is a file-level suppression header and
// returns its rules. A header with no rules disables everything and returns
// an empty, non-nil slice.
func (d *Dialect) ParseHeader(line string) ([]string, bool) {
	m := d.header.FindStringSubmatch(trimEOL(line))
	if m == nil {
		return nil, false
	}
	rules := []string{}
	for _, r := range strings.Split(m[1], ",") {
		if r = strings.TrimSpace(r); r != "" {
			rules = append(rules, r)
		}
	}
	return rules, true
}
