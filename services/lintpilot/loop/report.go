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

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
)

// Report is the JSON summary of one run.
type Report struct {
	RunID    string `json:"runId"`
	Mode     Mode   `json:"mode"`
	Provider string `json:"provider,omitempty"`
	Target   string `json:"target"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Iterations  int `json:"iterations"`
	AutofixRuns int `json:"autofixRuns"`

	// Fixed counts applied location fixes; Skipped counts occurrences left
	// alone (skipped visits, failed applications, empty bundles).
	Fixed       int `json:"fixed"`
	Skipped     int `json:"skipped"`
	Suppressed  int `json:"suppressed"`
	ConfigEdits int `json:"configEdits"`

	ExcludedPairs []Pair `json:"excludedPairs,omitempty"`

	FinalState State  `json:"finalState"`
	Error      string `json:"error,omitempty"`

	Summary   aggregate.Summary    `json:"summary"`
	WorkItems []aggregate.WorkItem `json:"workItems"`
}

// WriteReport writes r as indented JSON to path.
func WriteReport(path string, r *Report) error {
	if r == nil {
		return fmt.Errorf("%w: nil report", ErrInvalidInput)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
