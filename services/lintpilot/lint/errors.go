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
	"errors"
	"fmt"
)

// Sentinel errors for lint operations.
var (
	// ErrInvalidInput indicates a caller passed an invalid argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLinterNotInstalled indicates the analyzer binary is not in PATH.
	ErrLinterNotInstalled = errors.New("linter not installed")

	// ErrLinterTimeout indicates the analyzer exceeded its timeout.
	ErrLinterTimeout = errors.New("linter timed out")

	// ErrLinterFailed indicates the analyzer exited without usable output.
	ErrLinterFailed = errors.New("linter failed")

	// ErrParseOutput indicates the analyzer output could not be decoded.
	ErrParseOutput = errors.New("failed to parse linter output")

	// ErrConfigMissing indicates no lint config file was found.
	ErrConfigMissing = errors.New("lint config not found")
)

// LinterError describes a failed analyzer invocation.
type LinterError struct {
	Linter string
	Err    error
	Output string
}

// NewLinterError creates a LinterError wrapping err.
func NewLinterError(linter string, err error) *LinterError {
	return &LinterError{Linter: linter, Err: err}
}

// WithOutput attaches captured stderr to the error.
func (e *LinterError) WithOutput(output string) *LinterError {
	e.Output = output
	return e
}

// Error implements error.
func (e *LinterError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: %v: %s", e.Linter, e.Err, truncate(e.Output, 500))
	}
	return fmt.Sprintf("%s: %v", e.Linter, e.Err)
}

// Unwrap returns the sentinel.
func (e *LinterError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
