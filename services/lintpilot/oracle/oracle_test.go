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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lintpilot/services/lintpilot/redact"
)

// scriptedProvider replays canned replies and records prompts.
type scriptedProvider struct {
	replies []*Reply
	errs    []error
	prompts []Prompt
	delay   time.Duration
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Invoke(ctx context.Context, prompt Prompt) (*Reply, error) {
	p.prompts = append(p.prompts, prompt)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	i := len(p.prompts) - 1
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	if i < len(p.replies) {
		return p.replies[i], err
	}
	return nil, err
}

func TestOracle_SessionRefresh(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{Result: `{"answer":"one"}`, SessionID: "s-1"},
		{Result: `{"answer":"two"}`},
	}}
	o := New(provider)

	answer, next, err := o.AskFollowUp(context.Background(), "", FollowUpRequest{Question: "why?"})
	require.NoError(t, err)
	assert.Equal(t, "one", answer.Answer)
	assert.Equal(t, "s-1", next)

	answer, next, err = o.AskFollowUp(context.Background(), next, FollowUpRequest{Question: "and?"})
	require.NoError(t, err)
	assert.Equal(t, "two", answer.Answer)
	assert.Equal(t, "s-1", next, "handle kept when reply carries none")

	require.Len(t, provider.prompts, 2)
	assert.Equal(t, "", provider.prompts[0].Session)
	assert.Equal(t, "s-1", provider.prompts[1].Session)
	assert.Equal(t, FollowUpSchema.Name, provider.prompts[1].Schema.Name)
	assert.Contains(t, provider.prompts[1].Text, "and?")
}

func TestOracle_SessionReturnedOnDecodeFailure(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{{Result: "no json at all", SessionID: "s-new"}}}
	o := New(provider)

	_, next, err := o.GenerateFix(context.Background(), "s-old", FixRequest{RuleID: "eqeqeq"})
	assert.True(t, errors.Is(err, ErrNormalize))
	assert.Equal(t, "s-new", next)
}

func TestOracle_Timeout(t *testing.T) {
	provider := &scriptedProvider{delay: time.Second}
	o := New(provider, WithTimeout(20*time.Millisecond))

	_, next, err := o.Explain(context.Background(), "s-1", ExplainRequest{RuleID: "no-var"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOracleCall))
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, "s-1", next)
}

func TestOracle_ProviderErrorWrapped(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("spawn failed")}}
	_, _, err := New(provider).AskFollowUp(context.Background(), "", FollowUpRequest{Question: "q"})
	assert.True(t, errors.Is(err, ErrOracleCall))
	assert.Contains(t, err.Error(), "spawn failed")
}

func TestOracle_NilReply(t *testing.T) {
	provider := &scriptedProvider{}
	_, _, err := New(provider).AskFollowUp(context.Background(), "", FollowUpRequest{Question: "q"})
	assert.True(t, errors.Is(err, ErrNormalize))
}

func TestOracle_ExplainNormalizesPriority(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{Result: map[string]any{"problem": "p", "rationale": "r", "remediation": "m", "priority": "URGENT"}},
	}}
	exp, _, err := New(provider).Explain(context.Background(), "", ExplainRequest{RuleID: "no-var"})
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, exp.Priority)
	assert.Equal(t, "p", exp.Problem)
}

func TestOracle_RawOutput(t *testing.T) {
	var buf bytes.Buffer
	provider := &scriptedProvider{replies: []*Reply{
		{Raw: []byte(`{"result":"{\"answer\":\"a\"}"}`), Result: `{"answer":"a"}`},
	}}
	_, _, err := New(provider, WithRawOutput(&buf)).AskFollowUp(context.Background(), "", FollowUpRequest{Question: "q"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "raw followup reply (scripted)")
	assert.Contains(t, buf.String(), `{"result":`)
}

func TestOracle_NilContext(t *testing.T) {
	_, _, err := New(&scriptedProvider{}).AskFollowUp(nil, "", FollowUpRequest{}) //nolint:staticcheck
	assert.True(t, errors.Is(err, ErrOracleCall))
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority(" High "))
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityMedium, ParsePriority(""))
	assert.Equal(t, PriorityMedium, ParsePriority("critical"))
}

func TestOracle_RedactsPromptAndRestoresReply(t *testing.T) {
	scrubber, err := redact.New()
	require.NoError(t, err)

	key := "AKIA1234567890ABCDEF"
	provider := &scriptedProvider{replies: []*Reply{{
		Raw: []byte(`{"fixed_code":"const k = '__LINTPILOT_REDACTED_1__';"}`),
		Result: map[string]any{
			"start_line":  float64(3),
			"end_line":    float64(3),
			"fixed_code":  "const k = '__LINTPILOT_REDACTED_1__';",
			"explanation": "use const",
		},
	}}}
	var raw bytes.Buffer
	o := New(provider, WithRedactor(scrubber), WithRawOutput(&raw))

	fix, _, err := o.GenerateFix(context.Background(), "", FixRequest{
		RuleID:      "no-var",
		FilePath:    "/proj/aws.js",
		Line:        3,
		CodeContext: "   3 | var k = '" + key + "';",
	})
	require.NoError(t, err)

	require.Len(t, provider.prompts, 1)
	assert.NotContains(t, provider.prompts[0].Text, key)
	assert.Contains(t, provider.prompts[0].Text, "__LINTPILOT_REDACTED_1__")
	assert.Equal(t, "const k = '"+key+"';", fix.FixedCode)
	assert.Contains(t, raw.String(), key)
}

func TestRestoreValue_Nested(t *testing.T) {
	restore := func(s string) string {
		if s == "X" {
			return "secret"
		}
		return s
	}
	v := restoreValue(map[string]any{"a": []any{"X", 1.0}, "b": map[string]any{"c": "X"}}, restore)
	m := v.(map[string]any)
	assert.Equal(t, "secret", m["a"].([]any)[0])
	assert.Equal(t, 1.0, m["a"].([]any)[1])
	assert.Equal(t, "secret", m["b"].(map[string]any)["c"])
}
