// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package redact keeps credentials found in source snippets out of oracle
// prompts.
//
// Secrets are swapped for stable placeholders before a prompt is sent and
// swapped back in the reply, so a proposed fix that keeps the placeholder
// still writes the original value to disk.
package redact

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var embeddedPatterns []byte

// placeholderFormat is an identifier-shaped token the assistant copies
// verbatim into code.
const placeholderFormat = "__LINTPILOT_REDACTED_%d__"

// Scrubber finds and masks secrets.
//
// Thread Safety: Safe for concurrent use after creation.
type Scrubber struct {
	classifications []Classification
}

// New creates a Scrubber from the embedded pattern file.
func New() (*Scrubber, error) {
	return FromYAML(embeddedPatterns)
}

// FromYAML creates a Scrubber from a pattern document. Classifications are
// applied highest priority first.
func FromYAML(data []byte) (*Scrubber, error) {
	var file PatternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse redaction patterns: %w", err)
	}
	if err := file.compile(); err != nil {
		return nil, err
	}
	file.sortByPriority()
	return &Scrubber{classifications: file.Classifications}, nil
}

// Scan returns every secret in text in order of appearance. When matches
// overlap, the one from the higher-priority classification is kept. A
// pattern with a capture group redacts only the first group.
func (s *Scrubber) Scan(text string) []Finding {
	var found []Finding
	for _, c := range s.classifications {
		for _, p := range c.Patterns {
			for _, m := range p.compiled.FindAllStringSubmatchIndex(text, -1) {
				start, end := m[0], m[1]
				if len(m) >= 4 && m[2] >= 0 {
					start, end = m[2], m[3]
				}
				if start == end || overlaps(found, start, end) {
					continue
				}
				found = append(found, Finding{
					Line:           1 + strings.Count(text[:start], "\n"),
					Classification: c.Name,
					PatternID:      p.ID,
					Description:    p.Description,
					Confidence:     p.Confidence,
					start:          start,
					end:            end,
					value:          text[start:end],
				})
			}
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	return found
}

func overlaps(found []Finding, start, end int) bool {
	for _, f := range found {
		if start < f.end && f.start < end {
			return true
		}
	}
	return false
}

// Redact replaces every secret in text with a placeholder. Equal secrets
// share a placeholder. restore maps placeholders in any later text back to
// the original values; it is the identity when nothing was redacted.
func (s *Scrubber) Redact(text string) (redacted string, restore func(string) string, count int) {
	findings := s.Scan(text)
	if len(findings) == 0 {
		return text, identity, 0
	}

	placeholders := make(map[string]string)
	var pairs []string
	var sb strings.Builder
	last := 0
	for _, f := range findings {
		ph, ok := placeholders[f.value]
		if !ok {
			ph = fmt.Sprintf(placeholderFormat, len(placeholders)+1)
			placeholders[f.value] = ph
			pairs = append(pairs, ph, f.value)
		}
		sb.WriteString(text[last:f.start])
		sb.WriteString(ph)
		last = f.end
	}
	sb.WriteString(text[last:])

	replacer := strings.NewReplacer(pairs...)
	return sb.String(), replacer.Replace, len(findings)
}

func identity(s string) string { return s }
