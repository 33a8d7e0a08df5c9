// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/AleutianAI/lintpilot/pkg/ux"
	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/fixgen"
	"github.com/AleutianAI/lintpilot/services/lintpilot/loop"
)

// activity owns the one spinner shown while the oracle is working. The
// observer starts it and whoever prints next stops it.
type activity struct {
	mu      sync.Mutex
	spinner *ux.Spinner
	out     io.Writer
	enabled bool
}

func newActivity(out io.Writer, enabled bool) *activity {
	return &activity{out: out, enabled: enabled}
}

func (a *activity) Start(message string) {
	if a == nil || !a.enabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.spinner != nil {
		a.spinner.UpdateMessage(message)
		return
	}
	a.spinner = ux.NewSpinner(message).WithWriter(a.out)
	a.spinner.Start()
}

func (a *activity) Stop() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.spinner != nil {
		a.spinner.Stop()
		a.spinner = nil
	}
}

// uxObserver prints loop progress.
type uxObserver struct {
	printer  *ux.Printer
	activity *activity
	provider string

	// listItems prints every work item after a scan (report mode).
	listItems bool
}

var _ loop.Observer = (*uxObserver)(nil)

func (o *uxObserver) Scanned(iteration int, summary aggregate.Summary, items []aggregate.WorkItem) {
	o.activity.Stop()
	o.printer.Title(fmt.Sprintf("Scan %d", iteration))
	if summary.Total == 0 {
		o.printer.Success("No lint findings")
		return
	}
	o.printer.Counts(
		ux.CountPair{N: summary.Errors, Label: "errors", Style: ux.Styles.Error},
		ux.CountPair{N: summary.Warnings, Label: "warnings", Style: ux.Styles.Warning},
		ux.CountPair{N: summary.Fixable, Label: "auto-fixable", Style: ux.Styles.Success},
		ux.CountPair{N: summary.UniqueRules, Label: "rules", Style: ux.Styles.Highlight},
	)
	if o.listItems {
		o.printer.Info(strings.Join(itemLines(items), "\n"))
	}
}

func (o *uxObserver) AutofixRan(err error) {
	o.activity.Stop()
	if err != nil {
		o.printer.Warning(fmt.Sprintf("eslint --fix failed: %v", err))
		return
	}
	o.printer.Success("Applied ESLint's own fixes")
}

func (o *uxObserver) Generating(item aggregate.WorkItem) {
	o.activity.Start(fmt.Sprintf("Asking %s about %s (%s)...",
		o.provider, item.Rule(), plural(item.Count, "location", "locations")))
}

func (o *uxObserver) Acted(bundle *fixgen.FixBundle, result loop.ActionResult) {
	o.activity.Stop()
	switch result.Kind {
	case loop.ActionApplyFixes:
		msg := fmt.Sprintf("%s: applied %s", bundle.RuleID, plural(result.Applied, "fix", "fixes"))
		if result.Failed > 0 {
			o.printer.Warning(fmt.Sprintf("%s, %d could not be applied", msg, result.Failed))
			return
		}
		o.printer.Success(msg)
	case loop.ActionApplyDisable:
		if result.Applied > 0 {
			o.printer.Success(fmt.Sprintf("Disabled %s in the lint config", bundle.RuleID))
		} else {
			o.printer.Warning(fmt.Sprintf("Could not write the config edit for %s", bundle.RuleID))
		}
	case loop.ActionSuppressLine, loop.ActionSuppressFile:
		o.printer.Success(fmt.Sprintf("%s: added %s", bundle.RuleID, plural(result.Applied, "suppression", "suppressions")))
		if result.Failed > 0 {
			o.printer.Warning(fmt.Sprintf("%d suppression(s) failed", result.Failed))
		}
	case loop.ActionSkip:
		o.printer.Muted(fmt.Sprintf("Skipped %s", bundle.RuleID))
	}
}

func itemLines(items []aggregate.WorkItem) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		rule := item.Rule()
		if item.IsParseError() {
			rule = "(parse error)"
		}
		line := fmt.Sprintf("%-36s %-7s %4d", rule, item.Severity, item.Count)
		if item.AutoFixable {
			line += "  fixable"
		}
		lines = append(lines, line)
	}
	return lines
}
