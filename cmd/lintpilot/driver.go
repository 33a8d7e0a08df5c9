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
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/lintpilot/pkg/ux"
	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/fixgen"
	"github.com/AleutianAI/lintpilot/services/lintpilot/loop"
)

// interactiveDriver asks the user for every decision.
//
// # Description
//
// Implements loop.Driver on top of a Prompter. Cancelling a prompt is read
// as a quit at the next decision point; it never interrupts the loop's own
// work.
type interactiveDriver struct {
	prompt   Prompter
	printer  *ux.Printer
	activity *activity

	// lintConfig is the config file a disable edit rewrites, for labels.
	lintConfig string
}

var _ loop.Driver = (*interactiveDriver)(nil)

func newInteractiveDriver(prompt Prompter, printer *ux.Printer, act *activity, lintConfig string) *interactiveDriver {
	return &interactiveDriver{
		prompt:     prompt,
		printer:    printer,
		activity:   act,
		lintConfig: lintConfig,
	}
}

func (d *interactiveDriver) Mode() loop.Mode { return loop.ModeInteractive }

func (d *interactiveDriver) ConfirmParseErrors(ctx context.Context, bucket aggregate.WorkItem) (bool, error) {
	d.activity.Stop()
	var lines []string
	for _, loc := range bucket.Locations {
		lines = append(lines, fmt.Sprintf("%s:%d:%d  %s", loc.ShortPath, loc.Line, loc.Column, loc.Message))
	}
	d.printer.WarningBox(fmt.Sprintf("%d parse error(s)", bucket.Count), strings.Join(lines, "\n"))

	ok, err := d.prompt.Confirm(ctx, "Files with parse errors cannot be fixed. Continue with the remaining findings?", false)
	if errors.Is(err, errAborted) {
		return false, nil
	}
	return ok, err
}

func (d *interactiveDriver) OfferAutofix(ctx context.Context, summary aggregate.Summary) (bool, error) {
	d.activity.Stop()
	title := fmt.Sprintf("ESLint can fix %d finding(s) by itself. Run eslint --fix now?", summary.Fixable)
	ok, err := d.prompt.Confirm(ctx, title, true)
	if errors.Is(err, errAborted) {
		return false, nil
	}
	return ok, err
}

func (d *interactiveDriver) Select(ctx context.Context, items []aggregate.WorkItem) (loop.Selection, error) {
	d.activity.Stop()
	options := make([]string, 0, len(items)+1)
	for _, item := range items {
		options = append(options, itemLabel(item))
	}
	options = append(options, "Quit")

	idx, err := d.prompt.Select(ctx, "Which rule should be fixed next?", options)
	if errors.Is(err, errAborted) || (err == nil && idx == len(items)) {
		return loop.Selection{Quit: true}, nil
	}
	if err != nil {
		return loop.Selection{}, err
	}

	sel := loop.Selection{Index: idx}
	files := items[idx].Files()
	if len(files) < 2 {
		return sel, nil
	}

	fileOptions := []string{fmt.Sprintf("All %d files", len(files))}
	for _, f := range files {
		fileOptions = append(fileOptions, shortPath(items[idx], f))
	}
	fi, err := d.prompt.Select(ctx, "Fix which file?", fileOptions)
	if errors.Is(err, errAborted) {
		return loop.Selection{Quit: true}, nil
	}
	if err != nil {
		return loop.Selection{}, err
	}
	if fi > 0 {
		sel.File = files[fi-1]
	}
	return sel, nil
}

// menu entries for Present, built per bundle.
type menuEntry struct {
	label string
	kind  loop.ActionKind
	pick  bool // choose a subset of fixes
}

func (d *interactiveDriver) Present(ctx context.Context, bundle *fixgen.FixBundle) (loop.Action, error) {
	d.activity.Stop()
	renderBundle(d.printer, bundle)

	menu := d.menu(bundle)
	labels := make([]string, len(menu))
	for i, m := range menu {
		labels[i] = m.label
	}

	for {
		idx, err := d.prompt.Select(ctx, "What would you like to do?", labels)
		if errors.Is(err, errAborted) {
			return loop.Action{Kind: loop.ActionQuit}, nil
		}
		if err != nil {
			return loop.Action{}, err
		}
		entry := menu[idx]

		switch {
		case entry.pick:
			options := make([]string, len(bundle.Fixes))
			for i, fix := range bundle.Fixes {
				options[i] = fmt.Sprintf("%s:%d", filepath.Base(fix.File), fix.StartLine)
			}
			chosen, err := d.prompt.MultiSelect(ctx, "Select fixes to apply", options)
			if errors.Is(err, errAborted) {
				continue
			}
			if err != nil {
				return loop.Action{}, err
			}
			if len(chosen) == 0 {
				continue
			}
			return loop.Action{Kind: loop.ActionApplyFixes, Fixes: chosen}, nil

		case entry.kind == loop.ActionFollowUp:
			question, err := d.prompt.Input(ctx, "Your question")
			if errors.Is(err, errAborted) || (err == nil && question == "") {
				continue
			}
			if err != nil {
				return loop.Action{}, err
			}
			d.activity.Start("Asking a follow-up...")
			return loop.Action{Kind: loop.ActionFollowUp, Question: question}, nil

		default:
			return loop.Action{Kind: entry.kind}, nil
		}
	}
}

func (d *interactiveDriver) menu(bundle *fixgen.FixBundle) []menuEntry {
	var menu []menuEntry
	if n := len(bundle.Fixes); n > 0 {
		menu = append(menu, menuEntry{label: fmt.Sprintf("Apply %s", plural(n, "fix", "fixes")), kind: loop.ActionApplyFixes})
		if n > 1 {
			menu = append(menu, menuEntry{label: "Choose fixes to apply", kind: loop.ActionApplyFixes, pick: true})
		}
	}
	if bundle.DisableEdit.Available() {
		menu = append(menu, menuEntry{
			label: fmt.Sprintf("Disable %s in %s", bundle.RuleID, filepath.Base(bundle.DisableEdit.Path)),
			kind:  loop.ActionApplyDisable,
		})
	}
	menu = append(menu,
		menuEntry{label: "Suppress on each line (eslint-disable-next-line)", kind: loop.ActionSuppressLine},
		menuEntry{label: "Suppress in each file (eslint-disable)", kind: loop.ActionSuppressFile},
		menuEntry{label: "Ask a follow-up question", kind: loop.ActionFollowUp},
		menuEntry{label: "Skip", kind: loop.ActionSkip},
		menuEntry{label: "Quit", kind: loop.ActionQuit},
	)
	return menu
}

func (d *interactiveDriver) Answer(_ context.Context, answer string) {
	d.activity.Stop()
	d.printer.Box("Answer", answer)
}

func (d *interactiveDriver) Outcome(_ loop.Selection, item aggregate.WorkItem, result *loop.ActionResult) {
	d.activity.Stop()
	if result == nil {
		d.printer.Warning(fmt.Sprintf("No fixes could be generated for %s", item.Rule()))
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// renderBundle prints the explanation, each proposed fix, and the disable edit.
func renderBundle(p *ux.Printer, b *fixgen.FixBundle) {
	title := fmt.Sprintf("%s (%s, %s)", b.RuleID, b.Severity, plural(b.Item.Count, "occurrence", "occurrences"))
	if b.Explanation.Priority != "" {
		title += fmt.Sprintf(" priority %s", b.Explanation.Priority)
	}

	var body []string
	if b.Explanation.Problem != "" {
		body = append(body, b.Explanation.Problem)
	}
	if b.Explanation.Rationale != "" {
		body = append(body, "Why: "+b.Explanation.Rationale)
	}
	if b.Explanation.Remediation != "" {
		body = append(body, "Fix: "+b.Explanation.Remediation)
	}
	p.Box(title, strings.Join(body, "\n\n"))

	for i, fix := range b.Fixes {
		p.Info(fmt.Sprintf("Fix %d/%d  %s:%d-%d", i+1, len(b.Fixes), fix.File, fix.StartLine, fix.EndLine))
		fmt.Fprintln(p.Out, ux.DiffBlock(fix.Original, fix.Fixed))
		if fix.Rationale != "" {
			p.Muted(fix.Rationale)
		}
	}
	if missing := b.Item.Count - len(b.Fixes); missing > 0 {
		p.Warning(fmt.Sprintf("%s without a usable fix", plural(missing, "location", "locations")))
	}

	switch {
	case b.DisableEdit.Available():
		label := "Disable edit for " + filepath.Base(b.DisableEdit.Path)
		if stat, ok := b.DisableEdit.Stat(); ok {
			label += fmt.Sprintf(" (+%d -%d)", stat.Added, stat.Removed)
			p.Info(label)
			fmt.Fprintln(p.Out, ux.ColorizeUnifiedDiff(strings.TrimRight(b.DisableEdit.Diff, "\n")))
		} else {
			p.Info(label)
			p.Muted(b.DisableEdit.Diff)
		}
	case b.DisableEdit.Diff == fixgen.FailedDisableDiff:
		p.Warning("Could not generate a config edit to disable this rule")
	}
}

func itemLabel(item aggregate.WorkItem) string {
	label := fmt.Sprintf("%-32s %-7s %s", item.Rule(), item.Severity, plural(item.Count, "occurrence", "occurrences"))
	if files := item.Files(); len(files) > 1 {
		label += fmt.Sprintf(" in %d files", len(files))
	} else if len(item.Locations) > 0 {
		label += " in " + item.Locations[0].ShortPath
	}
	if item.FixableCount > 0 {
		label += fmt.Sprintf(", %d fixable", item.FixableCount)
	}
	return label
}

// shortPath returns the display path the item uses for file.
func shortPath(item aggregate.WorkItem, file string) string {
	for _, loc := range item.Locations {
		if loc.FullPath == file {
			return loc.ShortPath
		}
	}
	return file
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
