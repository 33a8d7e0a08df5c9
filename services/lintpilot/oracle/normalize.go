// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// SCHEMA
// =============================================================================

// Schema names the fields a payload is expected to carry.
type Schema struct {
	// Name identifies the request shape ("explain", "fix", ...).
	Name string

	// Fields are the canonical payload keys. At least one must be present.
	Fields []string

	// Aliases map alternative keys the assistant sometimes uses to canonical ones.
	Aliases map[string]string

	// JSON is a JSON Schema document for providers that can enforce one.
	JSON string
}

// =============================================================================
// NORMALIZER
// =============================================================================

// Attempt records one normalization strategy for debugging.
type Attempt struct {
	Strategy string
	OK       bool
	Detail   string
}

// Normalizer extracts a payload object from a heterogeneous Reply.
//
// Description:
//
//	Candidates are tried in this order:
//	  1. structured_output slot
//	  2. "result" as an object
//	  3. "result" as a string: fence stripped, parsed directly, then by
//	     balanced-brace scan
//	The first candidate exposing an expected field wins. Each attempt is
//	logged at debug level and recorded as a span event.
//
// Thread Safety: Safe for concurrent use.
type Normalizer struct {
	logger    *slog.Logger
	onAttempt func(Attempt)
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithLogger sets the logger used for attempt tracing.
func WithLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// WithAttemptHook registers a callback invoked for every attempt.
func WithAttemptHook(fn func(Attempt)) NormalizerOption {
	return func(n *Normalizer) {
		n.onAttempt = fn
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the payload object for schema.
//
// Inputs:
//
//	ctx - Carries the active span for attempt events
//	reply - The provider reply
//	schema - Expected payload fields
//
// Outputs:
//
//	map[string]any - Payload with aliases resolved to canonical keys
//	error - ErrOracleReportedError or ErrNormalize; no payload is fabricated
func (n *Normalizer) Normalize(ctx context.Context, reply *Reply, schema Schema) (map[string]any, error) {
	if reply == nil {
		return nil, fmt.Errorf("%w: nil reply", ErrNormalize)
	}
	if reply.IsError {
		n.record(ctx, schema, Attempt{Strategy: "error_check", Detail: reply.ErrorText})
		recordNormalize(ctx, schema.Name, "error")
		return nil, fmt.Errorf("%w: %s", ErrOracleReportedError, truncateString(reply.ErrorText, 300))
	}

	for _, variant := range reply.Variants() {
		switch variant.Kind {
		case VariantStructured, VariantResultObject:
			obj := canonicalize(variant.Object, schema)
			ok := hasExpectedField(obj, schema)
			n.record(ctx, schema, Attempt{Strategy: variant.Kind.String(), OK: ok})
			if ok {
				recordNormalize(ctx, schema.Name, variant.Kind.String())
				return obj, nil
			}

		case VariantResultString:
			obj, strategy, ok := n.fromText(ctx, variant.Text, schema)
			if ok {
				recordNormalize(ctx, schema.Name, strategy)
				return obj, nil
			}
		}
	}

	recordNormalize(ctx, schema.Name, "failed")
	return nil, fmt.Errorf("%w: no candidate exposed any of %v", ErrNormalize, schema.Fields)
}

// fromText parses a payload out of a string result.
func (n *Normalizer) fromText(ctx context.Context, text string, schema Schema) (map[string]any, string, bool) {
	candidate := stripFence(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		obj = canonicalize(obj, schema)
		ok := hasExpectedField(obj, schema)
		n.record(ctx, schema, Attempt{Strategy: "result_json", OK: ok})
		if ok {
			return obj, "result_json", true
		}
	} else {
		n.record(ctx, schema, Attempt{Strategy: "result_json", Detail: err.Error()})
	}

	scanned := false
	for from := 0; ; {
		found, end, ok := nextJSONObject(candidate, from)
		if !ok {
			break
		}
		scanned = true
		from = end

		var obj map[string]any
		if err := json.Unmarshal([]byte(found), &obj); err != nil {
			n.record(ctx, schema, Attempt{Strategy: "result_brace_scan", Detail: err.Error()})
			continue
		}
		obj = canonicalize(obj, schema)
		ok = hasExpectedField(obj, schema)
		n.record(ctx, schema, Attempt{Strategy: "result_brace_scan", OK: ok})
		if ok {
			return obj, "result_brace_scan", true
		}
	}

	if !scanned {
		n.record(ctx, schema, Attempt{Strategy: "result_brace_scan", Detail: "no balanced object"})
	}
	return nil, "", false
}

func (n *Normalizer) record(ctx context.Context, schema Schema, a Attempt) {
	if n.logger != nil {
		n.logger.Debug("Normalize attempt",
			slog.String("schema", schema.Name),
			slog.String("strategy", a.Strategy),
			slog.Bool("ok", a.OK),
			slog.String("detail", a.Detail),
		)
	}
	trace.SpanFromContext(ctx).AddEvent("normalize.attempt", trace.WithAttributes(
		attribute.String("schema", schema.Name),
		attribute.String("strategy", a.Strategy),
		attribute.Bool("ok", a.OK),
	))
	if n.onAttempt != nil {
		n.onAttempt(a)
	}
}

// Decode normalizes reply and decodes the payload into T.
func Decode[T any](ctx context.Context, n *Normalizer, reply *Reply, schema Schema) (T, error) {
	var out T
	obj, err := n.Normalize(ctx, reply, schema)
	if err != nil {
		return out, err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return out, fmt.Errorf("%w: re-encoding payload: %v", ErrNormalize, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: payload does not match %s: %v", ErrNormalize, schema.Name, err)
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// hasExpectedField is the single field-presence check for all strategies.
func hasExpectedField(obj map[string]any, schema Schema) bool {
	if obj == nil {
		return false
	}
	for _, field := range schema.Fields {
		if _, ok := obj[field]; ok {
			return true
		}
	}
	return false
}

// canonicalize returns obj with alias keys renamed to canonical keys.
// A canonical key already present wins over its alias.
func canonicalize(obj map[string]any, schema Schema) map[string]any {
	if len(schema.Aliases) == 0 || obj == nil {
		return obj
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for alias, canonical := range schema.Aliases {
		v, ok := out[alias]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
		delete(out, alias)
	}
	return out
}

// stripFence removes a leading ``` line (with or without a language tag)
// and a trailing ``` line.
func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = ""
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// findJSONObject returns the first balanced {...} object in input.
func findJSONObject(input string) (string, bool) {
	found, _, ok := nextJSONObject(input, 0)
	return found, ok
}

// nextJSONObject returns the first balanced {...} object at or after from,
// and the offset just past it.
//
// Quotes only open string literals once inside an object, so apostrophes
// and quoted words in surrounding prose do not affect the scan. Braces
// inside string literals and escaped quotes are ignored.
func nextJSONObject(input string, from int) (string, int, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := from; i < len(input); i++ {
		ch := input[i]
		if depth == 0 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1], i + 1, true
			}
		}
	}
	return "", len(input), false
}
