// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import "errors"

// Sentinel errors for the fix loop.
var (
	// ErrInvalidInput indicates a misconfigured Runner.
	ErrInvalidInput = errors.New("invalid input")

	// ErrScanFailure indicates the analyzer could not run or its output
	// could not be parsed. It ends the run.
	ErrScanFailure = errors.New("scan failed")

	// ErrParseErrors indicates the target has syntax errors and the mode
	// does not allow continuing past them.
	ErrParseErrors = errors.New("target has parse errors")

	// ErrInvalidTransition indicates an event the current state does not
	// accept.
	ErrInvalidTransition = errors.New("invalid state transition")
)
