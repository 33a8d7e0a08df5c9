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

// =============================================================================
// STATES
// =============================================================================

// State is a node of the fix loop.
type State int

const (
	StateScan State = iota
	StateParseError
	StateClean
	StateHasFindings
	StateAutofixOffered
	StateSelectRule
	StateGenerateFix
	StatePresent
	StateDone
	StateQuit
)

var stateNames = map[State]string{
	StateScan:           "SCAN",
	StateParseError:     "PARSE_ERROR",
	StateClean:          "CLEAN",
	StateHasFindings:    "HAS_FINDINGS",
	StateAutofixOffered: "AUTOFIX_OFFERED",
	StateSelectRule:     "SELECT_RULE",
	StateGenerateFix:    "GENERATE_FIX",
	StatePresent:        "PRESENT",
	StateDone:           "DONE",
	StateQuit:           "QUIT",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether s ends the loop.
func (s State) Terminal() bool {
	return s == StateDone || s == StateQuit
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is the outcome of a state's effect.
type Event int

const (
	// EventParseErrors: the scan found a parse-error bucket.
	EventParseErrors Event = iota
	// EventNoFindings: the scan found nothing.
	EventNoFindings
	// EventFindings: the scan found diagnostics.
	EventFindings
	// EventConfirmed: the user chose to continue past parse errors.
	EventConfirmed
	// EventDeclined: parse errors halt the run.
	EventDeclined
	// EventFixable: machine fixes are available and may be offered.
	EventFixable
	// EventSelectable: AI-eligible work items exist.
	EventSelectable
	// EventNothingSelectable: nothing to select; rescan.
	EventNothingSelectable
	// EventStalled: repeated scans made no progress.
	EventStalled
	// EventReportOnly: the mode only reports findings.
	EventReportOnly
	// EventAutofixRan: the analyzer's own fixer ran.
	EventAutofixRan
	// EventAutofixDeclined: the offer was refused.
	EventAutofixDeclined
	// EventSelected: a work item was chosen.
	EventSelected
	// EventExhausted: every candidate is excluded.
	EventExhausted
	// EventBundleReady: generation produced a bundle.
	EventBundleReady
	// EventNoBundle: generation produced nothing usable.
	EventNoBundle
	// EventFollowUp: a follow-up was answered; present again.
	EventFollowUp
	// EventActed: a terminal action other than quit completed.
	EventActed
	// EventAdvance: leave a state that has a single successor.
	EventAdvance
	// EventIterationLimit: the iteration bound was reached.
	EventIterationLimit
	// EventQuit: the user or policy ends the run.
	EventQuit
)

var eventNames = map[Event]string{
	EventParseErrors:       "parse_errors",
	EventNoFindings:        "no_findings",
	EventFindings:          "findings",
	EventConfirmed:         "confirmed",
	EventDeclined:          "declined",
	EventFixable:           "fixable",
	EventSelectable:        "selectable",
	EventNothingSelectable: "nothing_selectable",
	EventStalled:           "stalled",
	EventReportOnly:        "report_only",
	EventAutofixRan:        "autofix_ran",
	EventAutofixDeclined:   "autofix_declined",
	EventSelected:          "selected",
	EventExhausted:         "exhausted",
	EventBundleReady:       "bundle_ready",
	EventNoBundle:          "no_bundle",
	EventFollowUp:          "follow_up",
	EventActed:             "acted",
	EventAdvance:           "advance",
	EventIterationLimit:    "iteration_limit",
	EventQuit:              "quit",
}

// String returns the event name.
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// =============================================================================
// TRANSITIONS
// =============================================================================

type edge struct {
	from  State
	event Event
}

var transitions = map[edge]State{
	{StateScan, EventParseErrors}: StateParseError,
	{StateScan, EventNoFindings}:  StateClean,
	{StateScan, EventFindings}:    StateHasFindings,

	{StateParseError, EventConfirmed}: StateHasFindings,
	{StateParseError, EventDeclined}:  StateQuit,

	{StateClean, EventAdvance}: StateDone,

	{StateHasFindings, EventFixable}:           StateAutofixOffered,
	{StateHasFindings, EventSelectable}:        StateSelectRule,
	{StateHasFindings, EventNothingSelectable}: StateScan,
	{StateHasFindings, EventStalled}:           StateDone,
	{StateHasFindings, EventReportOnly}:        StateDone,

	{StateAutofixOffered, EventAutofixRan}:      StateScan,
	{StateAutofixOffered, EventAutofixDeclined}: StateSelectRule,

	{StateSelectRule, EventSelected}:          StateGenerateFix,
	{StateSelectRule, EventNothingSelectable}: StateScan,
	{StateSelectRule, EventExhausted}:         StateDone,

	{StateGenerateFix, EventBundleReady}: StatePresent,
	{StateGenerateFix, EventNoBundle}:    StateScan,

	{StatePresent, EventFollowUp}: StatePresent,
	{StatePresent, EventActed}:    StateScan,
}

// Transition returns the state reached from s on e.
//
// Description:
//
//	Transition is a pure function of (state, event). EventQuit moves any
//	non-terminal state to QUIT and EventIterationLimit moves any
//	non-terminal state to DONE. Terminal states absorb every event. An
//	event the state does not accept leaves the state unchanged; use
//	CanTransition to detect that.
func Transition(s State, e Event) State {
	next, _ := transition(s, e)
	return next
}

// CanTransition reports whether s accepts e.
func CanTransition(s State, e Event) bool {
	_, ok := transition(s, e)
	return ok
}

func transition(s State, e Event) (State, bool) {
	if s.Terminal() {
		return s, false
	}
	switch e {
	case EventQuit:
		return StateQuit, true
	case EventIterationLimit:
		return StateDone, true
	}
	next, ok := transitions[edge{s, e}]
	if !ok {
		return s, false
	}
	return next, true
}
