// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loop drives the scan, select, generate, act cycle.
//
// # Description
//
// The loop is an explicit state machine. Transition is a pure function of
// (state, event); the Runner performs each state's effect, turns its outcome
// into an Event and asks Transition where to go next. Interactive,
// report-only and automated behaviour differ only in the Driver that answers
// the Runner's questions.
//
// # Failure semantics
//
// Analyzer failure ends the run with ErrScanFailure. Parse errors end it
// with ErrParseErrors unless the driver confirms continuing. Oracle and
// patch failures are absorbed: they shrink or empty a bundle, or count as
// skips, and the loop carries on.
//
// # Thread Safety
//
// A Runner executes one run at a time.
package loop

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/fixgen"
	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/patch"
	"github.com/AleutianAI/lintpilot/services/lintpilot/session"
	"github.com/AleutianAI/lintpilot/services/lintpilot/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxIterations bounds the number of scans in one run.
const DefaultMaxIterations = 50

// Generator produces bundles and answers follow-up questions.
type Generator interface {
	Generate(ctx context.Context, item aggregate.WorkItem, config fixgen.ConfigFile, mgr *session.Manager) (*fixgen.FixBundle, error)
	FollowUp(ctx context.Context, bundle *fixgen.FixBundle, question string, mgr *session.Manager) (string, error)
}

// Applier performs file edits.
type Applier interface {
	ApplyFix(fix patch.LocationFix) error
	SuppressLine(file string, line int, rule string) error
	SuppressFile(file, rule string) error
	ReplaceFile(file, content string) error
}

// Config holds per-run settings.
type Config struct {
	// Target is the path handed to the analyzer.
	Target string

	// Root is the directory display paths are relative to.
	Root string

	// LintConfig is the lint config file disable edits rewrite.
	LintConfig string

	// MaxIterations bounds the number of scans. Zero uses the default.
	MaxIterations int

	// Provider names the oracle provider for the report.
	Provider string
}

// Runner executes the fix loop.
type Runner struct {
	cfg       Config
	analyzer  lint.Analyzer
	generator Generator
	applier   Applier
	driver    Driver
	observer  Observer
	sessions  *session.Manager
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithSessions sets the session manager.
func WithSessions(m *session.Manager) Option {
	return func(r *Runner) {
		if m != nil {
			r.sessions = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner.
//
// Errors: ErrInvalidInput when a collaborator is nil or Target is empty.
func NewRunner(cfg Config, analyzer lint.Analyzer, generator Generator, applier Applier, driver Driver, opts ...Option) (*Runner, error) {
	switch {
	case analyzer == nil:
		return nil, fmt.Errorf("%w: analyzer must not be nil", ErrInvalidInput)
	case generator == nil:
		return nil, fmt.Errorf("%w: generator must not be nil", ErrInvalidInput)
	case applier == nil:
		return nil, fmt.Errorf("%w: applier must not be nil", ErrInvalidInput)
	case driver == nil:
		return nil, fmt.Errorf("%w: driver must not be nil", ErrInvalidInput)
	case cfg.Target == "":
		return nil, fmt.Errorf("%w: target must not be empty", ErrInvalidInput)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	r := &Runner{
		cfg:       cfg,
		analyzer:  analyzer,
		generator: generator,
		applier:   applier,
		driver:    driver,
		observer:  NopObserver{},
		sessions:  session.NewManager(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Sessions returns the session manager.
func (r *Runner) Sessions() *session.Manager {
	return r.sessions
}

// runState is the mutable state of one run.
type runState struct {
	state      State
	iterations int

	summary    aggregate.Summary
	items      []aggregate.WorkItem
	selectable []aggregate.WorkItem

	selection Selection
	item      aggregate.WorkItem
	bundle    *fixgen.FixBundle

	parseConfirmed  bool
	autofixStalled  bool
	autofixBaseline int
	declinedFixable int
	idleScans       int

	err    error
	report *Report
}

// Run executes the loop until DONE or QUIT.
//
// Outputs:
//
//	*Report - Always non-nil; reflects the last scan
//	error - ErrScanFailure, ErrParseErrors, a driver error, or ctx.Err()
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	ctx, span := tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(
			attribute.String("loop.mode", string(r.driver.Mode())),
			attribute.String("loop.target", r.cfg.Target),
		),
	)
	defer span.End()

	st := &runState{
		state:           StateScan,
		autofixBaseline: -1,
		declinedFixable: -1,
		report: &Report{
			RunID:     uuid.NewString(),
			Mode:      r.driver.Mode(),
			Provider:  r.cfg.Provider,
			Target:    r.cfg.Target,
			StartedAt: time.Now(),
		},
	}

	logger := telemetry.LoggerWithTrace(ctx, r.logger)
	logger.Info("Fix loop started",
		slog.String("run_id", st.report.RunID),
		slog.String("mode", string(r.driver.Mode())),
		slog.String("target", r.cfg.Target),
	)

	for !st.state.Terminal() {
		if err := ctx.Err(); err != nil {
			st.err = err
			st.state = StateQuit
			break
		}

		event, err := r.step(ctx, st)
		if err != nil {
			st.err = err
			st.state = StateQuit
			break
		}
		if !CanTransition(st.state, event) {
			st.err = fmt.Errorf("%w: %s on %s", ErrInvalidTransition, st.state, event)
			st.state = StateQuit
			break
		}

		next := Transition(st.state, event)
		logger.Debug("Loop transition",
			slog.String("from", st.state.String()),
			slog.String("event", event.String()),
			slog.String("to", next.String()),
		)
		span.AddEvent("transition", trace.WithAttributes(
			attribute.String("from", st.state.String()),
			attribute.String("event", event.String()),
			attribute.String("to", next.String()),
		))
		st.state = next
	}

	rep := r.finish(st)
	if st.err != nil {
		span.RecordError(st.err)
		span.SetStatus(codes.Error, st.err.Error())
		logger.Error("Fix loop stopped",
			slog.String("run_id", rep.RunID),
			slog.String("error", st.err.Error()),
		)
		return rep, st.err
	}

	logger.Info("Fix loop finished",
		slog.String("run_id", rep.RunID),
		slog.String("state", rep.FinalState.String()),
		slog.Int("iterations", rep.Iterations),
		slog.Int("fixed", rep.Fixed),
		slog.Int("skipped", rep.Skipped),
	)
	return rep, nil
}

func (r *Runner) finish(st *runState) *Report {
	rep := st.report
	rep.FinishedAt = time.Now()
	rep.Iterations = st.iterations
	rep.FinalState = st.state
	rep.Summary = st.summary
	rep.WorkItems = st.items
	if st.err != nil {
		rep.Error = st.err.Error()
	}
	if auto, ok := r.driver.(*Automated); ok {
		rep.ExcludedPairs = auto.Scheduler().ExcludedPairs()
	}
	return rep
}

// step performs the effect of the current state and returns its event.
// A non-nil error ends the run.
func (r *Runner) step(ctx context.Context, st *runState) (Event, error) {
	switch st.state {
	case StateScan:
		return r.scan(ctx, st)
	case StateParseError:
		return r.confirmParseErrors(ctx, st)
	case StateClean:
		return EventAdvance, nil
	case StateHasFindings:
		return r.triage(st), nil
	case StateAutofixOffered:
		return r.autofix(ctx, st)
	case StateSelectRule:
		return r.selectRule(ctx, st)
	case StateGenerateFix:
		return r.generate(ctx, st)
	case StatePresent:
		return r.present(ctx, st)
	default:
		return 0, fmt.Errorf("%w: no effect for %s", ErrInvalidTransition, st.state)
	}
}

// =============================================================================
// STATE EFFECTS
// =============================================================================

func (r *Runner) scan(ctx context.Context, st *runState) (Event, error) {
	if st.iterations >= r.cfg.MaxIterations {
		r.logger.Warn("Iteration limit reached", slog.Int("max_iterations", r.cfg.MaxIterations))
		return EventIterationLimit, nil
	}
	st.iterations++
	recordIteration(ctx, r.driver.Mode())

	diags, err := r.analyzer.Run(ctx, r.cfg.Target)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScanFailure, err)
	}
	st.summary, st.items = aggregate.Aggregate(diags, r.cfg.Root)
	st.selectable = nil
	r.observer.Scanned(st.iterations, st.summary, st.items)

	// Autofix that did not reduce the fixable count is not offered again.
	if st.autofixBaseline >= 0 {
		if st.summary.Fixable >= st.autofixBaseline {
			st.autofixStalled = true
			r.logger.Info("Autofix made no progress; not offering it again",
				slog.Int("fixable", st.summary.Fixable),
			)
		}
		st.autofixBaseline = -1
	}

	if aggregate.ParseErrors(st.items) != nil && !st.parseConfirmed {
		return EventParseErrors, nil
	}
	if st.summary.Total == 0 {
		return EventNoFindings, nil
	}
	return EventFindings, nil
}

func (r *Runner) confirmParseErrors(ctx context.Context, st *runState) (Event, error) {
	bucket := aggregate.ParseErrors(st.items)
	if bucket == nil {
		return EventConfirmed, nil
	}
	ok, err := r.driver.ConfirmParseErrors(ctx, *bucket)
	if err != nil {
		return 0, err
	}
	if !ok {
		st.err = fmt.Errorf("%w: %d parse errors in %d files", ErrParseErrors, bucket.Count, len(bucket.Files()))
		return EventDeclined, nil
	}
	st.parseConfirmed = true
	return EventConfirmed, nil
}

func (r *Runner) triage(st *runState) Event {
	if r.driver.Mode() == ModeNonInteractive {
		return EventReportOnly
	}

	st.selectable = aggregate.Selectable(st.items)
	if st.summary.Fixable > 0 && !st.autofixStalled && st.declinedFixable != st.summary.Fixable {
		return EventFixable
	}
	if len(st.selectable) > 0 {
		st.idleScans = 0
		return EventSelectable
	}

	st.idleScans++
	if st.idleScans >= 2 {
		r.logger.Info("No selectable work and no progress; stopping",
			slog.Int("remaining", st.summary.Total),
		)
		return EventStalled
	}
	return EventNothingSelectable
}

func (r *Runner) autofix(ctx context.Context, st *runState) (Event, error) {
	ok, err := r.driver.OfferAutofix(ctx, st.summary)
	if err != nil {
		return 0, err
	}
	if !ok {
		st.declinedFixable = st.summary.Fixable
		return EventAutofixDeclined, nil
	}

	err = r.analyzer.RunAutoFix(ctx, r.cfg.Target)
	r.observer.AutofixRan(err)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		r.logger.Warn("Autofix failed", slog.String("error", err.Error()))
		st.autofixStalled = true
		return EventAutofixRan, nil
	}
	st.autofixBaseline = st.summary.Fixable
	st.idleScans = 0
	st.report.AutofixRuns++
	return EventAutofixRan, nil
}

func (r *Runner) selectRule(ctx context.Context, st *runState) (Event, error) {
	if len(st.selectable) == 0 {
		return EventNothingSelectable, nil
	}
	sel, err := r.driver.Select(ctx, st.selectable)
	if err != nil {
		return 0, err
	}
	switch {
	case sel.Quit:
		return EventQuit, nil
	case sel.Exhausted:
		return EventExhausted, nil
	case sel.Index < 0 || sel.Index >= len(st.selectable):
		return 0, fmt.Errorf("%w: selection %d out of %d items", ErrInvalidInput, sel.Index, len(st.selectable))
	}

	item := st.selectable[sel.Index]
	if sel.File != "" {
		if restricted := item.ForFile(sel.File); restricted.Count > 0 {
			item = restricted
		}
	}
	st.selection = sel
	st.item = item
	st.bundle = nil
	return EventSelected, nil
}

func (r *Runner) generate(ctx context.Context, st *runState) (Event, error) {
	if r.sessions.Enter(st.item.PrimaryFile()) {
		r.logger.Debug("Session reset for new file", slog.String("file", st.item.PrimaryFile()))
	}
	r.observer.Generating(st.item)

	bundle, err := r.generator.Generate(ctx, st.item, fixgen.ConfigFile{Path: r.cfg.LintConfig}, r.sessions)
	if err != nil || bundle == nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if err != nil {
			r.logger.Warn("No fix bundle",
				slog.String("rule", st.item.Rule()),
				slog.String("error", err.Error()),
			)
		}
		st.report.Skipped += st.item.Count
		r.driver.Outcome(st.selection, st.item, nil)
		return EventNoBundle, nil
	}
	st.bundle = bundle
	return EventBundleReady, nil
}

func (r *Runner) present(ctx context.Context, st *runState) (Event, error) {
	action, err := r.driver.Present(ctx, st.bundle)
	if err != nil {
		return 0, err
	}

	switch action.Kind {
	case ActionQuit:
		return EventQuit, nil
	case ActionFollowUp:
		answer, err := r.generator.FollowUp(ctx, st.bundle, action.Question, r.sessions)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			answer = "Follow-up failed: " + err.Error()
		}
		r.driver.Answer(ctx, answer)
		return EventFollowUp, nil
	}

	result, skipped := r.act(st, action)
	st.report.Skipped += skipped
	if result.Applied > 0 {
		st.idleScans = 0
	}
	recordAction(ctx, r.driver.Mode(), result, skipped)
	r.observer.Acted(st.bundle, result)
	r.driver.Outcome(st.selection, st.item, &result)
	return EventActed, nil
}

// =============================================================================
// ACTIONS
// =============================================================================

// act performs a terminal action and returns its result plus the number
// of occurrences it left unresolved.
func (r *Runner) act(st *runState, action Action) (ActionResult, int) {
	bundle := st.bundle
	rule := bundle.RuleID
	result := ActionResult{Kind: action.Kind}

	switch action.Kind {
	case ActionApplyFixes:
		for _, idx := range fixIndexes(action.Fixes, len(bundle.Fixes)) {
			if err := r.applier.ApplyFix(bundle.Fixes[idx]); err != nil {
				result.Failed++
				r.logger.Info("Fix not applied",
					slog.String("rule", rule),
					slog.String("file", bundle.Fixes[idx].File),
					slog.String("reason", err.Error()),
				)
				continue
			}
			result.Applied++
		}
		st.report.Fixed += result.Applied
		return result, max(0, st.item.Count-result.Applied)

	case ActionApplyDisable:
		edit := bundle.DisableEdit
		if !edit.Available() {
			result.Failed++
		} else if err := r.applier.ReplaceFile(edit.Path, edit.NewContent); err != nil {
			result.Failed++
			r.logger.Warn("Config edit not applied", slog.String("config", edit.Path), slog.String("error", err.Error()))
		} else {
			result.Applied++
			st.report.ConfigEdits++
		}
		return result, 0

	case ActionSuppressLine:
		for _, file := range bundle.Files() {
			for _, line := range linesDescending(st.item.Locations, file) {
				if err := r.applier.SuppressLine(file, line, rule); err != nil {
					result.Failed++
					r.logger.Warn("Line suppression failed", slog.String("file", file), slog.Int("line", line), slog.String("error", err.Error()))
					continue
				}
				result.Applied++
			}
		}
		st.report.Suppressed += result.Applied
		return result, 0

	case ActionSuppressFile:
		for _, file := range bundle.Files() {
			if err := r.applier.SuppressFile(file, rule); err != nil {
				result.Failed++
				r.logger.Warn("File suppression failed", slog.String("file", file), slog.String("error", err.Error()))
				continue
			}
			result.Applied++
		}
		st.report.Suppressed += result.Applied
		return result, 0

	default:
		result.Kind = ActionSkip
		return result, st.item.Count
	}
}

// fixIndexes returns the valid, distinct indexes in selected, or every
// index when selected is nil.
func fixIndexes(selected []int, n int) []int {
	if selected == nil {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	seen := make(map[int]bool, len(selected))
	var out []int
	for _, idx := range selected {
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

// linesDescending returns the distinct lines of locs in file, highest
// first, so earlier insertions do not shift later targets.
func linesDescending(locs []aggregate.Location, file string) []int {
	var lines []int
	for _, loc := range locs {
		if loc.FullPath == file && !slices.Contains(lines, loc.Line) {
			lines = append(lines, loc.Line)
		}
	}
	slices.SortFunc(lines, func(a, b int) int { return cmp.Compare(b, a) })
	return lines
}

// IsFatal reports whether err ends a run rather than degrading it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrScanFailure) || errors.Is(err, ErrParseErrors) || errors.Is(err, lint.ErrConfigMissing)
}
