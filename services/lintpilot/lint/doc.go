// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lint runs ESLint as a black-box analyzer and converts its JSON
// report into Diagnostics.
//
// The analyzer is treated as an external collaborator. lintpilot never
// evaluates rules itself; it only needs:
//
//   - Run: one batch scan of a target path returning every Diagnostic
//   - RunAutoFix: the analyzer's own bulk --fix over the same target
//
// # Exit Status
//
// ESLint exits 1 whenever a diagnostic of severity error exists. The runner
// treats a non-zero exit that still produced stdout as success and only
// fails when the process produced nothing parseable.
//
// # Parse Errors
//
// Files ESLint cannot parse are reported as a message with a null ruleId and
// "fatal": true. These become Diagnostics whose RuleID is nil.
//
// # Config Discovery
//
// FindConfig walks up from the target looking for an ESLint config file.
// ESLint v9 and later prefer flat configs (eslint.config.*); older versions
// prefer .eslintrc.*. The detected version decides the search order.
//
// # Usage
//
//	runner := lint.NewRunner(lint.WithWorkingDir(root))
//	if err := runner.Detect(ctx); err != nil {
//	    // eslint not installed
//	}
//	diags, err := runner.Run(ctx, "src/")
//
// # Thread Safety
//
// Runner is safe for concurrent use, though the fix loop only ever calls it
// from one goroutine.
package lint
