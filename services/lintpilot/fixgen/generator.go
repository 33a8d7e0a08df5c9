// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixgen turns one work item into a FixBundle using the oracle.
//
// # Description
//
// Generation is best effort per step. The explanation and the disable edit
// degrade to placeholders; a location whose call fails or whose proposal
// fails validation is left out of the bundle. Only when no call produced a
// usable payload at all does Generate return ErrNoUsablePayload.
//
// Location calls are issued one at a time in the work item's location
// order, threading the session handle through each.
package fixgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/oracle"
	"github.com/AleutianAI/lintpilot/services/lintpilot/patch"
	"github.com/AleutianAI/lintpilot/services/lintpilot/session"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Oracle is the subset of oracle.Oracle the generator calls.
type Oracle interface {
	Explain(ctx context.Context, session string, req oracle.ExplainRequest) (oracle.Explanation, string, error)
	GenerateFix(ctx context.Context, session string, req oracle.FixRequest) (oracle.FixProposal, string, error)
	GenerateDisableEdit(ctx context.Context, session string, req oracle.DisableRequest) (oracle.DisableEdit, string, error)
	AskFollowUp(ctx context.Context, session string, req oracle.FollowUpRequest) (oracle.FollowUpAnswer, string, error)
}

// Generator builds FixBundles.
type Generator struct {
	oracle       Oracle
	contextLines int
	syntax       *SyntaxChecker
	validate     *validator.Validate
	logger       *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithContextLines sets how many lines either side of a finding are sent.
func WithContextLines(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.contextLines = n
		}
	}
}

// WithSyntaxCheck enables or disables the tree-sitter syntax gate.
func WithSyntaxCheck(enabled bool) Option {
	return func(g *Generator) {
		if enabled {
			g.syntax = NewSyntaxChecker()
		} else {
			g.syntax = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a Generator over o. The syntax gate is on by default.
func NewGenerator(o Oracle, opts ...Option) *Generator {
	g := &Generator{
		oracle:       o,
		contextLines: DefaultContextLines,
		syntax:       NewSyntaxChecker(),
		validate:     validator.New(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the FixBundle for item.
//
// Inputs:
//
//	ctx - Context for cancellation
//	item - A work item with a non-nil rule id
//	config - The live lint config the disable edit rewrites
//	mgr - Session manager whose handle is threaded through every call
//
// Outputs:
//
//	*FixBundle - The bundle; Count is the number of accepted fixes
//	error - ErrInvalidInput for parse-error items, ErrNoUsablePayload when
//	        every call failed, ctx.Err() on cancellation
func (g *Generator) Generate(ctx context.Context, item aggregate.WorkItem, config ConfigFile, mgr *session.Manager) (*FixBundle, error) {
	if item.IsParseError() {
		return nil, fmt.Errorf("%w: parse errors cannot be remediated", ErrInvalidInput)
	}
	if mgr == nil {
		mgr = session.NewManager()
	}
	rule := item.Rule()

	ctx, span := tracer.Start(ctx, "Generator.Generate",
		trace.WithAttributes(
			attribute.String("lint.rule", rule),
			attribute.Int("lint.locations", len(item.Locations)),
		),
	)
	defer span.End()

	bundle := &FixBundle{
		RuleID:   rule,
		Severity: item.Severity,
		Item:     item,
	}
	usable := 0

	// Explanation
	explanation, next, err := g.oracle.Explain(ctx, mgr.Handle(), oracle.ExplainRequest{
		RuleID:         rule,
		SampleSource:   item.SampleSources,
		SampleMessages: item.SampleMessages,
	})
	mgr.Update(next)
	if err != nil {
		g.logger.Warn("Explanation unavailable",
			slog.String("rule", rule),
			slog.String("error", err.Error()),
		)
		bundle.Explanation = oracle.PlaceholderExplanation()
	} else {
		bundle.Explanation = explanation
		usable++
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Disable edit
	var disableOK bool
	bundle.DisableEdit, disableOK = g.disableEdit(ctx, rule, config, mgr)
	if disableOK {
		usable++
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Per-location fixes
	for _, loc := range item.Locations {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fix, parsed, err := g.locationFix(ctx, rule, loc, mgr)
		if parsed {
			usable++
		}
		switch {
		case err == nil:
			bundle.Fixes = append(bundle.Fixes, fix)
			recordProposal(ctx, rule, "accepted")
		case errors.Is(err, ErrValidationRejected):
			bundle.Rejected++
			recordProposal(ctx, rule, "rejected")
			g.logger.Info("Fix proposal rejected",
				slog.String("rule", rule),
				slog.String("file", loc.ShortPath),
				slog.Int("line", loc.Line),
				slog.String("reason", err.Error()),
			)
		default:
			bundle.Failed++
			recordProposal(ctx, rule, "failed")
			g.logger.Warn("Fix proposal unavailable",
				slog.String("rule", rule),
				slog.String("file", loc.ShortPath),
				slog.Int("line", loc.Line),
				slog.String("error", err.Error()),
			)
		}
	}
	bundle.Count = len(bundle.Fixes)

	span.SetAttributes(
		attribute.Int("fixgen.accepted", bundle.Count),
		attribute.Int("fixgen.rejected", bundle.Rejected),
		attribute.Int("fixgen.failed", bundle.Failed),
	)

	if usable == 0 {
		return nil, fmt.Errorf("%w: rule %s", ErrNoUsablePayload, rule)
	}

	g.logger.Info("Fix bundle generated",
		slog.String("rule", rule),
		slog.Int("locations", len(item.Locations)),
		slog.Int("accepted", bundle.Count),
		slog.Int("rejected", bundle.Rejected),
		slog.Int("failed", bundle.Failed),
	)
	return bundle, nil
}

// disableEdit requests the config edit, falling back to an empty edit.
func (g *Generator) disableEdit(ctx context.Context, rule string, config ConfigFile, mgr *session.Manager) (ConfigEdit, bool) {
	failed := ConfigEdit{Path: config.Path, Diff: FailedDisableDiff}
	if config.Path == "" {
		return failed, false
	}

	text := config.Text
	if live, err := os.ReadFile(config.Path); err == nil {
		text = string(live)
	}

	edit, next, err := g.oracle.GenerateDisableEdit(ctx, mgr.Handle(), oracle.DisableRequest{
		RuleID:     rule,
		ConfigPath: config.Path,
		ConfigText: text,
	})
	mgr.Update(next)
	if err != nil {
		g.logger.Warn("Disable edit unavailable",
			slog.String("rule", rule),
			slog.String("error", err.Error()),
		)
		return failed, false
	}
	if err := checkConfigContent(ctx, config.Path, edit.NewContent, g.syntax); err != nil {
		g.logger.Warn("Disable edit rejected",
			slog.String("rule", rule),
			slog.String("config", config.Path),
			slog.String("reason", err.Error()),
		)
		return failed, true
	}
	return ConfigEdit{Path: config.Path, NewContent: edit.NewContent, Diff: edit.Diff}, true
}

// locationFix requests and validates one fix. parsed reports whether the
// oracle produced a payload, even one later rejected.
func (g *Generator) locationFix(ctx context.Context, rule string, loc aggregate.Location, mgr *session.Manager) (patch.LocationFix, bool, error) {
	data, err := os.ReadFile(loc.FullPath)
	if err != nil {
		return patch.LocationFix{}, false, fmt.Errorf("reading %s: %w", loc.FullPath, err)
	}

	proposal, next, err := g.oracle.GenerateFix(ctx, mgr.Handle(), oracle.FixRequest{
		RuleID:      rule,
		FilePath:    loc.ShortPath,
		Line:        loc.Line,
		Message:     loc.Message,
		CodeContext: contextWindow(string(data), loc.Line, g.contextLines),
	})
	mgr.Update(next)
	if err != nil {
		return patch.LocationFix{}, false, err
	}

	fix, err := g.validateProposal(ctx, loc, proposal)
	return fix, true, err
}

// validateProposal checks a proposal against the file as it is now and
// captures the fresh original text for its span.
func (g *Generator) validateProposal(ctx context.Context, loc aggregate.Location, p oracle.FixProposal) (patch.LocationFix, error) {
	if err := g.validate.Struct(p); err != nil {
		return patch.LocationFix{}, fmt.Errorf("%w: %v", ErrValidationRejected, err)
	}

	original, lines, err := patch.ReadSpan(loc.FullPath, p.StartLine, p.EndLine)
	if err != nil {
		if errors.Is(err, patch.ErrLineOutOfRange) {
			return patch.LocationFix{}, fmt.Errorf("%w: lines %d-%d outside file of %d lines", ErrValidationRejected, p.StartLine, p.EndLine, lines)
		}
		return patch.LocationFix{}, err
	}

	fixed := normalizeReplacement(p.FixedCode)
	if strings.TrimSpace(fixed) == "" {
		return patch.LocationFix{}, fmt.Errorf("%w: empty replacement", ErrValidationRejected)
	}
	if fixed == original {
		return patch.LocationFix{}, fmt.Errorf("%w: replacement equals original", ErrValidationRejected)
	}

	if err := g.checkSyntax(ctx, loc.FullPath, original, fixed); err != nil {
		return patch.LocationFix{}, err
	}

	return patch.LocationFix{
		File:      loc.FullPath,
		StartLine: p.StartLine,
		EndLine:   p.EndLine,
		Original:  original,
		Fixed:     fixed,
		Rationale: p.Explanation,
	}, nil
}

// checkSyntax rejects a fix that turns a clean file into one with parse
// errors. Files that already fail to parse are not gated.
func (g *Generator) checkSyntax(ctx context.Context, file, original, fixed string) error {
	if g.syntax == nil {
		return nil
	}
	language := lint.LanguageFromPath(file)
	if language == "" {
		return nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	before, err := g.syntax.Check(ctx, language, data)
	if err != nil || !before.Clean {
		return nil
	}

	after := strings.Replace(string(data), original, fixed, 1)
	res, err := g.syntax.Check(ctx, language, []byte(after))
	if err != nil {
		return nil
	}
	if !res.Clean {
		return fmt.Errorf("%w: fix introduces a syntax error at line %d", ErrValidationRejected, res.ErrorLine)
	}
	return nil
}

// FollowUp asks a free-form question about bundle.
func (g *Generator) FollowUp(ctx context.Context, bundle *FixBundle, question string, mgr *session.Manager) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	if mgr == nil {
		mgr = session.NewManager()
	}
	var contextText string
	if bundle != nil {
		contextText = bundle.Summary()
	}
	answer, next, err := g.oracle.AskFollowUp(ctx, mgr.Handle(), oracle.FollowUpRequest{
		Question: question,
		Context:  contextText,
	})
	mgr.Update(next)
	if err != nil {
		return "", err
	}
	return answer.Answer, nil
}
