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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply_ClaudeEnvelope(t *testing.T) {
	raw := []byte(`{"type":"result","subtype":"success","is_error":false,"result":"{\"answer\":\"hi\"}","session_id":"abc-123"}`)
	reply := ParseReply(raw)

	assert.False(t, reply.IsError)
	assert.Equal(t, "abc-123", reply.SessionID)
	assert.Equal(t, `{"answer":"hi"}`, reply.Result)
	assert.Nil(t, reply.Structured)
	assert.Equal(t, raw, reply.Raw)
}

func TestParseReply_StructuredOutput(t *testing.T) {
	reply := ParseReply([]byte(`{"result":"","structured_output":{"answer":"x"},"session_id":"s1"}`))
	require.NotNil(t, reply.Structured)
	assert.Equal(t, "x", reply.Structured["answer"])

	variants := reply.Variants()
	require.Len(t, variants, 1)
	assert.Equal(t, VariantStructured, variants[0].Kind)
}

func TestParseReply_ErrorSubtype(t *testing.T) {
	reply := ParseReply([]byte(`{"type":"result","subtype":"error_max_turns","is_error":true,"session_id":"s2"}`))
	assert.True(t, reply.IsError)
	assert.Equal(t, "error_max_turns", reply.ErrorText)
	assert.Equal(t, "s2", reply.SessionID)
}

func TestParseReply_ErrorObject(t *testing.T) {
	reply := ParseReply([]byte(`{"is_error":true,"error":{"message":"Rate limit reached"}}`))
	assert.True(t, reply.IsError)
	assert.Equal(t, "Rate limit reached", reply.ErrorText)
}

func TestParseReply_BarePayload(t *testing.T) {
	reply := ParseReply([]byte(`{"answer":"bare"}`))
	obj, ok := reply.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bare", obj["answer"])
	assert.False(t, reply.IsError)
}

func TestParseReply_Prose(t *testing.T) {
	reply := ParseReply([]byte("  Sure! {\"answer\": 1}  "))
	assert.Equal(t, `Sure! {"answer": 1}`, reply.Result)
}

func TestVariants_Order(t *testing.T) {
	reply := &Reply{
		Structured: map[string]any{"a": 1},
		Result:     "text",
	}
	variants := reply.Variants()
	require.Len(t, variants, 2)
	assert.Equal(t, VariantStructured, variants[0].Kind)
	assert.Equal(t, VariantResultString, variants[1].Kind)
	assert.Equal(t, "result_string", variants[1].Kind.String())

	assert.Empty(t, (&Reply{Result: "   "}).Variants())
	assert.Nil(t, (*Reply)(nil).Variants())
}

func TestParseCodexEvents(t *testing.T) {
	stream := []byte(`{"type":"thread.started","thread_id":"th_1"}
{"type":"turn.started"}
{"type":"item.completed","item":{"id":"i0","type":"reasoning","text":"thinking"}}
{"type":"item.completed","item":{"id":"i1","type":"agent_message","text":"{\"answer\":\"first\"}"}}
not json
{"type":"item.completed","item":{"id":"i2","type":"agent_message","text":"{\"answer\":\"final\"}"}}
{"type":"turn.completed","usage":{"input_tokens":10}}
`)
	reply := parseCodexEvents(stream)
	assert.Equal(t, "th_1", reply.SessionID)
	assert.Equal(t, `{"answer":"final"}`, reply.Result)
	assert.False(t, reply.IsError)
}

func TestParseCodexEvents_TurnFailed(t *testing.T) {
	stream := []byte(`{"type":"thread.started","thread_id":"th_2"}
{"type":"turn.failed","error":{"message":"model overloaded"}}
`)
	reply := parseCodexEvents(stream)
	assert.True(t, reply.IsError)
	assert.Equal(t, "model overloaded", reply.ErrorText)
	assert.Equal(t, "th_2", reply.SessionID)
}

func TestCallError_RateLimit(t *testing.T) {
	err := callError("claude", "429 Too Many Requests", nil)
	assert.True(t, errors.Is(err, ErrOracleCall))
	assert.True(t, errors.Is(err, ErrRateLimited))

	err = callError("claude", "boom", errors.New("exit status 1"))
	assert.True(t, errors.Is(err, ErrOracleCall))
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestClaudeProvider_Args(t *testing.T) {
	p := NewClaudeProvider("sonnet", "")
	args := p.args(Prompt{Session: "s-9", Schema: FollowUpSchema})
	assert.Equal(t, []string{
		"-p", "--output-format", "json",
		"--model", "sonnet",
		"--resume", "s-9",
		"--json-schema", FollowUpSchema.JSON,
	}, args)

	p.UseJSONSchema = false
	assert.Equal(t, []string{"-p", "--output-format", "json", "--model", "sonnet"}, p.args(Prompt{Schema: FollowUpSchema}))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "claude", p.Name())

	p, err = NewProvider(ProviderConfig{Name: "Codex", Binary: "/opt/codex"})
	require.NoError(t, err)
	assert.Equal(t, "codex", p.Name())
	assert.Equal(t, "/opt/codex", p.(*CodexProvider).Binary)

	_, err = NewProvider(ProviderConfig{Name: "gemini"})
	assert.True(t, errors.Is(err, ErrUnknownProvider))

	_, err = NewProvider(ProviderConfig{Name: "openai"})
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = NewProvider(ProviderConfig{Name: "ollama"})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestConversations(t *testing.T) {
	c := newConversations()
	h1 := c.append("", turn{user: "q1", assistant: "a1"})
	require.NotEmpty(t, h1)

	h2 := c.append(h1, turn{user: "q2", assistant: "a2"})
	assert.Equal(t, h1, h2)
	assert.Len(t, c.history(h1), 2)

	h3 := c.append("unknown-handle", turn{user: "q", assistant: "a"})
	assert.NotEqual(t, h1, h3)
	assert.NotEqual(t, "unknown-handle", h3)
	assert.Equal(t, 2, c.len())
	assert.Empty(t, c.history("missing"))
}

func TestConversations_KeepsRecentTurns(t *testing.T) {
	c := newConversations()
	c.maxTurns = 3

	h := ""
	for i := 1; i <= 5; i++ {
		h = c.append(h, turn{user: fmt.Sprintf("q%d", i), assistant: fmt.Sprintf("a%d", i)})
	}
	history := c.history(h)
	require.Len(t, history, 3)
	assert.Equal(t, "q3", history[0].user)
	assert.Equal(t, "q5", history[2].user)
}

func TestConversations_HistoryFitsByteBudget(t *testing.T) {
	c := newConversations()
	c.maxBytes = 10

	h := c.append("", turn{user: strings.Repeat("x", 8), assistant: "a"})
	h = c.append(h, turn{user: "q2", assistant: "a2"})
	h = c.append(h, turn{user: "q3", assistant: "a3"})

	history := c.history(h)
	require.Len(t, history, 2, "oldest turn exceeds the budget")
	assert.Equal(t, "q2", history[0].user)

	h = c.append(h, turn{user: strings.Repeat("y", 20), assistant: "a"})
	assert.Empty(t, c.history(h), "a single oversized turn is not replayed")
}

func TestConversations_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newConversations()
	c.maxConvs = 2

	first := c.append("", turn{user: "q", assistant: "a"})
	second := c.append("", turn{user: "q", assistant: "a"})
	c.append(first, turn{user: "q", assistant: "a"})
	third := c.append("", turn{user: "q", assistant: "a"})

	assert.Equal(t, 2, c.len())
	assert.Empty(t, c.history(second))
	assert.Len(t, c.history(first), 2)
	assert.Len(t, c.history(third), 1)

	next := c.append(second, turn{user: "q", assistant: "a"})
	assert.NotEqual(t, second, next, "an evicted handle starts a new conversation")
}

func TestOpenAIProvider_KeyOnlySentPerRequest(t *testing.T) {
	const key = "sk-test-0123456789abcdef"
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"answer\":\"ok\"}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: key, BaseURL: srv.URL, Model: "gpt-test"})
	require.NoError(t, err)
	assert.NotContains(t, fmt.Sprintf("%+v", p.client), key)

	reply, err := p.Invoke(context.Background(), Prompt{System: "s", Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+key, gotAuth)
	assert.Equal(t, `{"answer":"ok"}`, reply.Result)
	assert.NotEmpty(t, reply.SessionID)
}
