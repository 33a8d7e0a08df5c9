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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for oracle calls.
var (
	// ErrOracleCall indicates the provider could not be invoked or timed out.
	ErrOracleCall = errors.New("oracle call failed")

	// ErrNormalize indicates no candidate payload exposed an expected field.
	ErrNormalize = errors.New("could not normalize oracle reply")

	// ErrOracleReportedError indicates the reply carried an explicit error.
	ErrOracleReportedError = errors.New("oracle reported an error")

	// ErrUnknownProvider indicates an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown oracle provider")

	// ErrInvalidConfig indicates a provider could not be constructed.
	ErrInvalidConfig = errors.New("invalid oracle provider config")

	// ErrRateLimited indicates the provider refused the call for rate limiting.
	ErrRateLimited = errors.New("oracle rate limited")
)

// isRateLimitMessage checks if a provider message indicates a rate limit.
func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "429")
}

// callError wraps a provider failure, classifying rate limits.
func callError(provider, detail string, cause error) error {
	msg := provider + ": " + truncateString(detail, 500)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	if isRateLimitMessage(detail) {
		return fmt.Errorf("%w: %w: %s", ErrOracleCall, ErrRateLimited, msg)
	}
	return fmt.Errorf("%w: %s", ErrOracleCall, msg)
}

// truncateString truncates a string to maxLen bytes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
