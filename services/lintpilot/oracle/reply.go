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
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// =============================================================================
// PROVIDER CONTRACT
// =============================================================================

// Prompt is one request to a provider.
type Prompt struct {
	// System carries standing instructions. CLI providers prepend it.
	System string

	// Text is the request body.
	Text string

	// Schema describes the payload the caller expects back.
	Schema Schema

	// Session is the conversation handle to continue, "" for a new one.
	Session string
}

// Provider is the transport to one generative assistant.
//
// Implementations return a Reply even when the assistant signalled an error
// in-band (IsError); a returned error means the call itself failed.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, prompt Prompt) (*Reply, error)
}

// =============================================================================
// REPLY
// =============================================================================

// Reply is a raw provider response before normalization.
//
// Description:
//
//	Providers fill whichever slots their wire format has. The claude CLI
//	fills Structured (with --json-schema), Result, IsError and SessionID.
//	HTTP providers only fill Result (a string) and SessionID.
type Reply struct {
	// Raw is the provider's unprocessed output, for --raw passthrough.
	Raw []byte

	// Structured is the dedicated structured-output slot.
	Structured map[string]any

	// Result is the "result" slot: a string or a map[string]any.
	Result any

	// IsError is set when the provider reported an error in-band.
	IsError bool

	// ErrorText describes an in-band error.
	ErrorText string

	// SessionID is the conversation handle returned by the provider.
	SessionID string
}

// VariantKind discriminates the shapes a reply slot can take.
type VariantKind int

const (
	// VariantStructured is the structured-output slot.
	VariantStructured VariantKind = iota

	// VariantResultObject is a "result" slot holding an object.
	VariantResultObject

	// VariantResultString is a "result" slot holding text.
	VariantResultString
)

// String returns the strategy name used in logs and metrics.
func (k VariantKind) String() string {
	switch k {
	case VariantStructured:
		return "structured_output"
	case VariantResultObject:
		return "result_object"
	case VariantResultString:
		return "result_string"
	default:
		return "unknown"
	}
}

// Variant is one candidate payload carried by a reply.
type Variant struct {
	Kind   VariantKind
	Object map[string]any
	Text   string
}

// Variants returns the reply's candidate payloads in normalization priority
// order. This is the only place reply slots are inspected.
func (r *Reply) Variants() []Variant {
	if r == nil {
		return nil
	}
	var out []Variant
	if r.Structured != nil {
		out = append(out, Variant{Kind: VariantStructured, Object: r.Structured})
	}
	switch v := r.Result.(type) {
	case map[string]any:
		out = append(out, Variant{Kind: VariantResultObject, Object: v})
	case string:
		if strings.TrimSpace(v) != "" {
			out = append(out, Variant{Kind: VariantResultString, Text: v})
		}
	}
	return out
}

// ParseReply decodes a provider's JSON envelope.
//
// Description:
//
//	Recognized envelope keys are structured_output, result, is_error,
//	error, subtype and session_id. Output that is not a JSON object is
//	kept whole as a string result so prose replies still reach the
//	normalizer.
func ParseReply(raw []byte) *Reply {
	reply := &Reply{Raw: raw}
	trimmed := bytes.TrimSpace(raw)

	var envelope map[string]any
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &envelope) != nil {
		reply.Result = string(trimmed)
		return reply
	}

	if !isEnvelope(envelope) {
		// A bare payload object.
		reply.Result = envelope
		return reply
	}

	if so, ok := envelope["structured_output"].(map[string]any); ok {
		reply.Structured = so
	}
	switch v := envelope["result"].(type) {
	case map[string]any, string:
		reply.Result = v
	}
	if sid, ok := envelope["session_id"].(string); ok {
		reply.SessionID = sid
	}
	if isErr, ok := envelope["is_error"].(bool); ok && isErr {
		reply.IsError = true
	}
	if subtype, ok := envelope["subtype"].(string); ok && strings.HasPrefix(subtype, "error") {
		reply.IsError = true
		reply.ErrorText = subtype
	}
	switch e := envelope["error"].(type) {
	case string:
		if e != "" {
			reply.IsError = true
			reply.ErrorText = e
		}
	case map[string]any:
		reply.IsError = true
		if msg, ok := e["message"].(string); ok {
			reply.ErrorText = msg
		}
	}
	if reply.IsError && reply.ErrorText == "" {
		if s, ok := reply.Result.(string); ok {
			reply.ErrorText = s
		}
	}
	return reply
}

// envelopeKeys mark an object as a provider envelope rather than a payload.
var envelopeKeys = []string{"result", "structured_output", "is_error", "session_id", "subtype"}

func isEnvelope(obj map[string]any) bool {
	for _, k := range envelopeKeys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}
