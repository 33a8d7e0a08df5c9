// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle talks to the generative assistant and normalizes its replies.
//
// # Description
//
// The assistant is a black box reached through a Provider (claude CLI, codex
// CLI, OpenAI API, or a local Ollama model). Oracle wraps a Provider with the
// four request shapes the fix loop needs, a hard per-call timeout and the
// Normalizer, which turns whatever shape came back into a typed payload.
//
// # Sessions
//
// Conversation continuity is an explicit value. Every call takes the current
// session handle and returns the handle to use next; nothing is stored on the
// Oracle itself.
//
// # Thread Safety
//
// Oracle is safe for concurrent use if its Provider is.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 180 * time.Second

// Oracle issues typed requests through a Provider.
type Oracle struct {
	provider   Provider
	normalizer *Normalizer
	timeout    time.Duration
	raw        io.Writer
	redactor   Redactor
}

// Redactor masks secrets in prompt text before it leaves the process.
// restore maps the masked values back in reply text.
type Redactor interface {
	Redact(text string) (redacted string, restore func(string) string, count int)
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Oracle) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithNormalizer replaces the default Normalizer.
func WithNormalizer(n *Normalizer) Option {
	return func(o *Oracle) {
		if n != nil {
			o.normalizer = n
		}
	}
}

// WithRawOutput writes every raw reply to w before normalization.
func WithRawOutput(w io.Writer) Option {
	return func(o *Oracle) {
		o.raw = w
	}
}

// WithRedactor masks secrets in every prompt and restores them in replies.
func WithRedactor(r Redactor) Option {
	return func(o *Oracle) {
		o.redactor = r
	}
}

// New creates an Oracle over provider.
func New(provider Provider, opts ...Option) *Oracle {
	o := &Oracle{
		provider:   provider,
		normalizer: NewNormalizer(),
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProviderName returns the underlying provider's name.
func (o *Oracle) ProviderName() string {
	return o.provider.Name()
}

// Explain asks for a rule-level explanation.
func (o *Oracle) Explain(ctx context.Context, session string, req ExplainRequest) (Explanation, string, error) {
	out, next, err := call[Explanation](ctx, o, session, ExplainSchema, explainPrompt(req))
	if err == nil {
		out.Priority = ParsePriority(string(out.Priority))
	}
	return out, next, err
}

// GenerateFix asks for a fix at one location.
func (o *Oracle) GenerateFix(ctx context.Context, session string, req FixRequest) (FixProposal, string, error) {
	return call[FixProposal](ctx, o, session, FixSchema, fixPrompt(req))
}

// GenerateDisableEdit asks for a lint-config edit turning the rule off.
func (o *Oracle) GenerateDisableEdit(ctx context.Context, session string, req DisableRequest) (DisableEdit, string, error) {
	return call[DisableEdit](ctx, o, session, DisableSchema, disablePrompt(req))
}

// AskFollowUp asks a free-form question.
func (o *Oracle) AskFollowUp(ctx context.Context, session string, req FollowUpRequest) (FollowUpAnswer, string, error) {
	return call[FollowUpAnswer](ctx, o, session, FollowUpSchema, followUpPrompt(req))
}

// call runs one request: invoke with timeout, optionally echo raw output,
// refresh the session handle, normalize and decode.
//
// The returned handle is the reply's handle when it carries one, otherwise
// the handle passed in. It is returned on failure too, so a conversation the
// provider already started is not lost.
func call[T any](ctx context.Context, o *Oracle, session string, schema Schema, text string) (T, string, error) {
	var zero T
	if ctx == nil {
		return zero, session, fmt.Errorf("%w: ctx must not be nil", ErrOracleCall)
	}

	ctx, span := tracer.Start(ctx, "Oracle."+schema.Name,
		trace.WithAttributes(
			attribute.String("oracle.provider", o.provider.Name()),
			attribute.Bool("oracle.resume", session != ""),
		),
	)
	defer span.End()
	start := time.Now()

	restore := func(s string) string { return s }
	if o.redactor != nil {
		var masked int
		text, restore, masked = o.redactor.Redact(text)
		if masked > 0 {
			span.SetAttributes(attribute.Int("oracle.redacted", masked))
			slog.Info("Redacted secrets from prompt",
				slog.String("request", schema.Name),
				slog.Int("count", masked),
			)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	reply, err := o.provider.Invoke(callCtx, Prompt{
		System:  systemPrompt,
		Text:    text,
		Schema:  schema,
		Session: session,
	})
	if err != nil {
		switch {
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w: %s timed out after %v", ErrOracleCall, o.provider.Name(), o.timeout)
		case !errors.Is(err, ErrOracleCall):
			err = fmt.Errorf("%w: %v", ErrOracleCall, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordCall(ctx, o.provider.Name(), schema.Name, time.Since(start), false)
		slog.Warn("Oracle call failed",
			slog.String("provider", o.provider.Name()),
			slog.String("request", schema.Name),
			slog.String("error", err.Error()),
		)
		return zero, session, err
	}

	if reply == nil {
		reply = &Reply{}
	}
	restoreReply(reply, restore)
	if o.raw != nil && len(reply.Raw) > 0 {
		fmt.Fprintf(o.raw, "--- raw %s reply (%s) ---\n%s\n", schema.Name, o.provider.Name(), reply.Raw)
	}

	next := session
	if reply.SessionID != "" {
		next = reply.SessionID
	}

	out, err := Decode[T](ctx, o.normalizer, reply, schema)
	recordCall(ctx, o.provider.Name(), schema.Name, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("Oracle reply unusable",
			slog.String("provider", o.provider.Name()),
			slog.String("request", schema.Name),
			slog.String("error", err.Error()),
		)
		return zero, next, err
	}

	slog.Debug("Oracle call completed",
		slog.String("provider", o.provider.Name()),
		slog.String("request", schema.Name),
		slog.Duration("duration", time.Since(start)),
	)
	return out, next, nil
}

// restoreReply puts masked values back into every text slot of reply.
func restoreReply(reply *Reply, restore func(string) string) {
	if len(reply.Raw) > 0 {
		reply.Raw = []byte(restore(string(reply.Raw)))
	}
	reply.ErrorText = restore(reply.ErrorText)
	reply.Result = restoreValue(reply.Result, restore)
	if reply.Structured != nil {
		reply.Structured = restoreValue(reply.Structured, restore).(map[string]any)
	}
}

func restoreValue(v any, restore func(string) string) any {
	switch t := v.(type) {
	case string:
		return restore(t)
	case map[string]any:
		for k, inner := range t {
			t[k] = restoreValue(inner, restore)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = restoreValue(inner, restore)
		}
		return t
	default:
		return v
	}
}
