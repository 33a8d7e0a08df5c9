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

import "errors"

// Sentinel errors for patch operations.
var (
	// ErrInvalidInput indicates a malformed fix or argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOriginalNotFound indicates the fix's original text is no longer in
	// the file. The file is left untouched.
	ErrOriginalNotFound = errors.New("original text not found")

	// ErrAlreadyApplied indicates every occurrence of the original text sits
	// inside an applied copy of the fix. Always joined with
	// ErrOriginalNotFound.
	ErrAlreadyApplied = errors.New("fix already applied")

	// ErrLineOutOfRange indicates a 1-indexed line outside the file.
	ErrLineOutOfRange = errors.New("line out of range")

	// ErrWriteFailed indicates the file could not be read or written.
	ErrWriteFailed = errors.New("patch write failed")
)
