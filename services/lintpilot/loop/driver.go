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
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/fixgen"
)

// =============================================================================
// MODES
// =============================================================================

// Mode selects how decisions are made.
type Mode string

const (
	ModeInteractive    Mode = "interactive"
	ModeNonInteractive Mode = "non-interactive"
	ModeAutomated      Mode = "auto"
)

// ParseMode parses a mode name. "automated" is accepted for "auto".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "interactive":
		return ModeInteractive, nil
	case "non-interactive", "noninteractive", "report":
		return ModeNonInteractive, nil
	case "auto", "automated":
		return ModeAutomated, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
	}
}

// =============================================================================
// ACTIONS
// =============================================================================

// ActionKind is the user's (or policy's) response to a bundle.
type ActionKind int

const (
	ActionApplyFixes ActionKind = iota
	ActionApplyDisable
	ActionSuppressLine
	ActionSuppressFile
	ActionFollowUp
	ActionSkip
	ActionQuit
)

var actionNames = map[ActionKind]string{
	ActionApplyFixes:   "apply_fixes",
	ActionApplyDisable: "apply_disable",
	ActionSuppressLine: "suppress_line",
	ActionSuppressFile: "suppress_file",
	ActionFollowUp:     "follow_up",
	ActionSkip:         "skip",
	ActionQuit:         "quit",
}

// String returns the action name.
func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// Action is one response to a presented bundle.
type Action struct {
	Kind ActionKind

	// Fixes selects bundle fixes by index for ActionApplyFixes; nil means all.
	Fixes []int

	// Question is the text of an ActionFollowUp.
	Question string
}

// ActionResult reports the effect of a terminal action.
type ActionResult struct {
	Kind ActionKind

	// Applied counts fixes or suppressions written.
	Applied int

	// Failed counts edits that could not be applied.
	Failed int
}

// Selection is a driver's choice among selectable work items.
type Selection struct {
	// Index into the selectable list.
	Index int

	// File, when set, restricts the item to locations in that file.
	File string

	// Quit ends the run.
	Quit bool

	// Exhausted reports that no candidate remains.
	Exhausted bool
}

// =============================================================================
// DRIVER
// =============================================================================

// Driver makes the loop's decisions.
//
// Implementations are thin: the Runner owns every state change and effect.
type Driver interface {
	Mode() Mode

	// ConfirmParseErrors is asked once per run when parse errors appear.
	ConfirmParseErrors(ctx context.Context, bucket aggregate.WorkItem) (bool, error)

	// OfferAutofix asks whether to run the analyzer's own fixer.
	OfferAutofix(ctx context.Context, summary aggregate.Summary) (bool, error)

	// Select picks one of items, which are all selectable.
	Select(ctx context.Context, items []aggregate.WorkItem) (Selection, error)

	// Present shows bundle and returns the chosen action.
	Present(ctx context.Context, bundle *fixgen.FixBundle) (Action, error)

	// Answer shows the reply to a follow-up question.
	Answer(ctx context.Context, answer string)

	// Outcome reports what a visit of the selected item achieved. A nil
	// result means no bundle was produced.
	Outcome(sel Selection, item aggregate.WorkItem, result *ActionResult)
}

// Observer receives progress notifications. All methods are optional
// through NopObserver.
type Observer interface {
	Scanned(iteration int, summary aggregate.Summary, items []aggregate.WorkItem)
	AutofixRan(err error)
	Generating(item aggregate.WorkItem)
	Acted(bundle *fixgen.FixBundle, result ActionResult)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) Scanned(int, aggregate.Summary, []aggregate.WorkItem) {}
func (NopObserver) AutofixRan(error)                                     {}
func (NopObserver) Generating(aggregate.WorkItem)                        {}
func (NopObserver) Acted(*fixgen.FixBundle, ActionResult)                {}

// =============================================================================
// NON-INTERACTIVE DRIVER
// =============================================================================

// NonInteractive reports findings and stops after one scan.
type NonInteractive struct{}

// NewNonInteractive creates a report-only driver.
func NewNonInteractive() *NonInteractive { return &NonInteractive{} }

func (d *NonInteractive) Mode() Mode { return ModeNonInteractive }

func (d *NonInteractive) ConfirmParseErrors(context.Context, aggregate.WorkItem) (bool, error) {
	return false, nil
}

func (d *NonInteractive) OfferAutofix(context.Context, aggregate.Summary) (bool, error) {
	return false, nil
}

func (d *NonInteractive) Select(context.Context, []aggregate.WorkItem) (Selection, error) {
	return Selection{Exhausted: true}, nil
}

func (d *NonInteractive) Present(context.Context, *fixgen.FixBundle) (Action, error) {
	return Action{Kind: ActionSkip}, nil
}

func (d *NonInteractive) Answer(context.Context, string) {}

func (d *NonInteractive) Outcome(Selection, aggregate.WorkItem, *ActionResult) {}

// =============================================================================
// AUTOMATED DRIVER
// =============================================================================

// Automated applies every accepted fix without asking, choosing work by
// round-robin over (file, rule) pairs with a skip budget.
type Automated struct {
	scheduler *Scheduler
}

// NewAutomated creates an automated driver allowing maxSkips fruitless
// visits per (file, rule) pair.
func NewAutomated(maxSkips int) *Automated {
	return &Automated{scheduler: NewScheduler(maxSkips)}
}

// Scheduler exposes the driver's scheduler for reporting.
func (d *Automated) Scheduler() *Scheduler { return d.scheduler }

func (d *Automated) Mode() Mode { return ModeAutomated }

func (d *Automated) ConfirmParseErrors(context.Context, aggregate.WorkItem) (bool, error) {
	return false, nil
}

func (d *Automated) OfferAutofix(context.Context, aggregate.Summary) (bool, error) {
	return true, nil
}

func (d *Automated) Select(_ context.Context, items []aggregate.WorkItem) (Selection, error) {
	return d.scheduler.Next(items), nil
}

// Present applies all fixes when there are any, otherwise skips.
func (d *Automated) Present(_ context.Context, bundle *fixgen.FixBundle) (Action, error) {
	if bundle == nil || len(bundle.Fixes) == 0 {
		return Action{Kind: ActionSkip}, nil
	}
	return Action{Kind: ActionApplyFixes}, nil
}

func (d *Automated) Answer(context.Context, string) {}

func (d *Automated) Outcome(sel Selection, item aggregate.WorkItem, result *ActionResult) {
	applied := result != nil && result.Applied > 0
	d.scheduler.Record(Pair{File: sel.File, Rule: item.Rule()}, applied)
}
