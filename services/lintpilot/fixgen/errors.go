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

import "errors"

// Sentinel errors for fix generation.
var (
	// ErrInvalidInput indicates a work item that cannot be remediated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoUsablePayload indicates no oracle call produced a usable payload.
	ErrNoUsablePayload = errors.New("no usable oracle payload")

	// ErrValidationRejected indicates a proposed fix failed a sanity check.
	ErrValidationRejected = errors.New("fix rejected by validation")
)
