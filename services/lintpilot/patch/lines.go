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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SplitLines splits content into lines that keep their terminators. A
// trailing terminator does not start an extra empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineCount returns the number of lines in content.
func LineCount(content string) int {
	return len(SplitLines(content))
}

// Span returns lines start..end (1-indexed, inclusive) of content without
// the final line terminator.
func Span(content string, start, end int) (string, error) {
	lines := SplitLines(content)
	if start < 1 || end < start || end > len(lines) {
		return "", fmt.Errorf("%w: span %d-%d of %d lines", ErrLineOutOfRange, start, end, len(lines))
	}
	return trimEOL(strings.Join(lines[start-1:end], "")), nil
}

// ReadSpan reads file and returns its Span plus the current line count.
func ReadSpan(file string, start, end int) (string, int, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", 0, fmt.Errorf("%w: reading %s: %v", ErrWriteFailed, file, err)
	}
	content := string(data)
	text, err := Span(content, start, end)
	return text, LineCount(content), err
}

// trimEOL removes one trailing "\n" or "\r\n".
func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// lineEnding returns the terminator used by content, "\n" by default.
func lineEnding(content string) string {
	if strings.Contains(content, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// leadingWhitespace returns the run of spaces and tabs starting line.
func leadingWhitespace(line string) string {
	end := 0
	for end < len(line) && (line[end] == ' ' || line[end] == '\t') {
		end++
	}
	return line[:end]
}

// writeFileAtomic replaces path with content through a temp file in the same
// directory, keeping perm.
func writeFileAtomic(path string, content []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lintpilot-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing to disk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
