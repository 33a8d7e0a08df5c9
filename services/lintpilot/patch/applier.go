// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patch applies content-addressed fixes and suppression comments.
//
// # Description
//
// A LocationFix names the literal text to replace, not a line range. Every
// operation re-reads the file immediately before writing, so edits made by
// earlier fixes (or by the user) are always seen. A fix whose original text
// has moved is still applied; one whose text is gone fails cleanly with
// ErrOriginalNotFound and leaves the file byte-for-byte unchanged.
//
// # Thread Safety
//
// Applier holds no file state. Callers must not run two operations on the
// same file concurrently.
package patch

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// LocationFix is one literal substitution in one file.
type LocationFix struct {
	// File is the path to edit.
	File string `json:"file"`

	// StartLine and EndLine are the 1-indexed inclusive span the original
	// text was read from. They locate context only and are not used to edit.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Original is the exact text the fix replaces.
	Original string `json:"original"`

	// Fixed is the replacement text.
	Fixed string `json:"fixed"`

	// Rationale is the assistant's explanation of the change.
	Rationale string `json:"rationale,omitempty"`
}

// Applier mutates files on disk.
type Applier struct {
	dialect *Dialect
	logger  *slog.Logger
}

// Option configures an Applier.
type Option func(*Applier)

// WithDialect sets the suppression comment syntax.
func WithDialect(d *Dialect) Option {
	return func(a *Applier) {
		if d != nil {
			a.dialect = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Applier) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewApplier creates an Applier using the ESLint dialect.
func NewApplier(opts ...Option) *Applier {
	a := &Applier{dialect: ESLintDialect, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dialect returns the suppression dialect in use.
func (a *Applier) Dialect() *Dialect {
	return a.dialect
}

// ApplyFix replaces fix.Original with fix.Fixed.
//
// Description:
//
//	The span at StartLine..EndLine is used when it still holds Original.
//	Otherwise the first occurrence of Original anywhere in the file is
//	replaced. Occurrences that lie inside an applied copy of Fixed are
//	skipped, so applying the same fix twice never edits the file twice.
//
// Errors:
//
//	ErrInvalidInput - empty file or original text
//	ErrOriginalNotFound - original text absent; the file is not touched
//	ErrAlreadyApplied - joined with ErrOriginalNotFound when only applied copies remain
//	ErrWriteFailed - the file could not be read or written
func (a *Applier) ApplyFix(fix LocationFix) error {
	if fix.File == "" {
		return fmt.Errorf("%w: fix has no file", ErrInvalidInput)
	}
	if fix.Original == "" {
		return fmt.Errorf("%w: fix has no original text", ErrInvalidInput)
	}

	content, perm, err := readFile(fix.File)
	if err != nil {
		return err
	}

	idx, applied := locate(content, fix)
	if idx < 0 {
		a.logger.Debug("Fix original not found",
			slog.String("file", fix.File),
			slog.Int("start_line", fix.StartLine),
			slog.Bool("already_applied", applied),
		)
		if applied {
			return fmt.Errorf("%w: %w: %s:%d-%d", ErrOriginalNotFound, ErrAlreadyApplied, fix.File, fix.StartLine, fix.EndLine)
		}
		return fmt.Errorf("%w: %s:%d-%d", ErrOriginalNotFound, fix.File, fix.StartLine, fix.EndLine)
	}

	updated := content[:idx] + fix.Fixed + content[idx+len(fix.Original):]
	if err := writeFile(fix.File, updated, perm); err != nil {
		return err
	}

	a.logger.Info("Applied fix",
		slog.String("file", fix.File),
		slog.Int("start_line", fix.StartLine),
		slog.Int("end_line", fix.EndLine),
	)
	return nil
}

// locate returns the offset of the occurrence of fix.Original to replace,
// or -1. applied reports that occurrences exist but all of them belong to
// an applied copy of fix.Fixed.
func locate(content string, fix LocationFix) (idx int, applied bool) {
	if start, ok := spanOffset(content, fix.StartLine, fix.EndLine); ok {
		if span, err := Span(content, fix.StartLine, fix.EndLine); err == nil && span == fix.Original {
			if !insideFixed(content, start, fix) {
				return start, false
			}
		}
	}

	for from := 0; from <= len(content); {
		i := strings.Index(content[from:], fix.Original)
		if i < 0 {
			break
		}
		i += from
		if !insideFixed(content, i, fix) {
			return i, false
		}
		applied = true
		from = i + 1
	}
	return -1, applied
}

// insideFixed reports whether the occurrence of fix.Original at offset i is
// part of a copy of fix.Fixed.
func insideFixed(content string, i int, fix LocationFix) bool {
	for off := 0; off < len(fix.Fixed); off++ {
		next := strings.Index(fix.Fixed[off:], fix.Original)
		if next < 0 {
			return false
		}
		off += next
		if p := i - off; p >= 0 && strings.HasPrefix(content[p:], fix.Fixed) {
			return true
		}
	}
	return false
}

// spanOffset returns the byte offset of line start when start..end is a
// valid 1-indexed range of content.
func spanOffset(content string, start, end int) (int, bool) {
	lines := SplitLines(content)
	if start < 1 || end < start || end > len(lines) {
		return 0, false
	}
	offset := 0
	for _, line := range lines[:start-1] {
		offset += len(line)
	}
	return offset, true
}

// SuppressLine inserts a next-line suppression for rule before line,
// reusing that line's indentation.
//
// Errors: ErrLineOutOfRange when line is not in 1..LineCount.
func (a *Applier) SuppressLine(file string, line int, rule string) error {
	if file == "" || rule == "" {
		return fmt.Errorf("%w: file and rule are required", ErrInvalidInput)
	}

	content, perm, err := readFile(file)
	if err != nil {
		return err
	}
	lines := SplitLines(content)
	if line < 1 || line > len(lines) {
		return fmt.Errorf("%w: %s has %d lines, got %d", ErrLineOutOfRange, file, len(lines), line)
	}

	target := lines[line-1]
	comment := leadingWhitespace(target) + a.dialect.LineComment(rule) + lineEnding(content)

	var b strings.Builder
	for i, l := range lines {
		if i == line-1 {
			b.WriteString(comment)
		}
		b.WriteString(l)
	}
	if err := writeFile(file, b.String(), perm); err != nil {
		return err
	}

	a.logger.Info("Suppressed line",
		slog.String("file", file),
		slog.Int("line", line),
		slog.String("rule", rule),
	)
	return nil
}

// SuppressFile adds rule to the file-level suppression header, creating
// the header when the first line is not one. Already listed rules, and
// headers that disable every rule, are left as they are.
func (a *Applier) SuppressFile(file, rule string) error {
	if file == "" || rule == "" {
		return fmt.Errorf("%w: file and rule are required", ErrInvalidInput)
	}

	content, perm, err := readFile(file)
	if err != nil {
		return err
	}
	lines := SplitLines(content)

	var updated string
	if len(lines) > 0 {
		if rules, ok := a.dialect.ParseHeader(lines[0]); ok {
			if len(rules) == 0 || slices.Contains(rules, rule) {
				a.logger.Debug("Rule already suppressed for file",
					slog.String("file", file),
					slog.String("rule", rule),
				)
				return nil
			}
			header := a.dialect.FileHeader(append(rules, rule))
			updated = header + lineTerminator(lines[0]) + strings.Join(lines[1:], "")
		}
	}
	if updated == "" {
		updated = a.dialect.FileHeader([]string{rule}) + lineEnding(content) + content
	}

	if err := writeFile(file, updated, perm); err != nil {
		return err
	}

	a.logger.Info("Suppressed rule for file",
		slog.String("file", file),
		slog.String("rule", rule),
	)
	return nil
}

// ReplaceFile rewrites an existing file with content, keeping its mode.
func (a *Applier) ReplaceFile(file, content string) error {
	if file == "" {
		return fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	current, perm, err := readFile(file)
	if err != nil {
		return err
	}
	if current == content {
		return nil
	}
	if err := writeFile(file, content, perm); err != nil {
		return err
	}
	a.logger.Info("Replaced file",
		slog.String("file", file),
		slog.Int("old_size", len(current)),
		slog.Int("new_size", len(content)),
	)
	return nil
}

// lineTerminator returns the terminator line ends with, "" for none.
func lineTerminator(line string) string {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(line, "\n"):
		return "\n"
	default:
		return ""
	}
}

func readFile(path string) (string, os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return string(data), info.Mode().Perm(), nil
}

func writeFile(path, content string, perm os.FileMode) error {
	if err := writeFileAtomic(path, []byte(content), perm); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, path, err)
	}
	return nil
}
