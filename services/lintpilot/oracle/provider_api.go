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
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
)

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// turn is one exchanged message in an HTTP-backed conversation.
type turn struct {
	user      string
	assistant string
}

func (t turn) size() int { return len(t.user) + len(t.assistant) }

// Conversation bounds. Older turns and least recently used conversations
// are dropped.
const (
	defaultMaxTurns         = 6
	defaultMaxHistoryBytes  = 48 * 1024
	defaultMaxConversations = 8
)

// conversations keeps HTTP conversations keyed by an opaque session handle.
//
// HTTP providers are stateless, so the handle returned to callers is a uuid
// minted here and the history lives in process memory. Each conversation
// keeps its last maxTurns turns, history replays at most maxBytes of them,
// and only the maxConvs most recently used conversations are kept.
type conversations struct {
	mu    sync.Mutex
	turns map[string][]turn
	order []string // least recently used first

	maxTurns int
	maxBytes int
	maxConvs int
}

func newConversations() *conversations {
	return &conversations{
		turns:    make(map[string][]turn),
		maxTurns: defaultMaxTurns,
		maxBytes: defaultMaxHistoryBytes,
		maxConvs: defaultMaxConversations,
	}
}

// history returns a copy of the newest turns for handle that fit the byte
// budget, oldest first. Unknown handles are empty.
func (c *conversations) history(handle string) []turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.turns[handle]
	first, used := len(all), 0
	for first > 0 && used+all[first-1].size() <= c.maxBytes {
		first--
		used += all[first].size()
	}
	return append([]turn(nil), all[first:]...)
}

// append records a turn and returns the handle to use next.
func (c *conversations) append(handle string, t turn) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.turns[handle]; !ok || handle == "" {
		handle = uuid.NewString()
	}
	kept := append(c.turns[handle], t)
	if len(kept) > c.maxTurns {
		kept = append([]turn(nil), kept[len(kept)-c.maxTurns:]...)
	}
	c.turns[handle] = kept
	c.touch(handle)

	for len(c.order) > c.maxConvs {
		evicted := c.order[0]
		c.order = c.order[1:]
		delete(c.turns, evicted)
		slog.Debug("Evicted conversation", slog.String("session", evicted))
	}
	return handle
}

// touch moves handle to the most recently used end. Callers hold mu.
func (c *conversations) touch(handle string) {
	for i, h := range c.order {
		if h == handle {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, handle)
}

// len reports how many conversations are stored.
func (c *conversations) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// replyFromText wraps plain assistant text the way the CLI providers report it.
func replyFromText(text, session string) *Reply {
	return &Reply{Raw: []byte(text), Result: text, SessionID: session}
}

// =============================================================================
// OPENAI
// =============================================================================

// OpenAIProvider calls the chat completions API in JSON mode.
//
// Description:
//
//	The API key is sealed in a memguard Enclave. The client carries no key;
//	keyTransport opens the enclave for each request to set the
//	Authorization header. Requests are paced by a token bucket.
//
// Thread Safety: Safe for concurrent use.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	convs   *conversations
}

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// RequestsPerMinute paces calls. Zero means unlimited.
	RequestsPerMinute int
}

// NewOpenAIProvider creates an OpenAI provider.
//
// Errors: ErrInvalidConfig when the key is empty.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: openai provider needs an API key", ErrInvalidConfig)
	}
	clientCfg := openai.DefaultConfig("")
	clientCfg.HTTPClient = &http.Client{Transport: &keyTransport{
		key:  memguard.NewEnclave([]byte(cfg.APIKey)),
		base: http.DefaultTransport,
	}}

	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	slog.Info("Initializing OpenAI provider", slog.String("model", model))
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		limiter: newLimiter(cfg.RequestsPerMinute),
		convs:   newConversations(),
	}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// keyTransport sets the bearer token from a sealed enclave on each request.
type keyTransport struct {
	key  *memguard.Enclave
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper. The opened buffer is destroyed
// before the request is sent.
func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	buf, err := t.key.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening key enclave: %v", ErrInvalidConfig, err)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+buf.String())
	buf.Destroy()
	return t.base.RoundTrip(req)
}

// Invoke implements Provider.
func (p *OpenAIProvider) Invoke(ctx context.Context, prompt Prompt) (*Reply, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
	}
	for _, t := range p.convs.history(prompt.Session) {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.user},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.assistant},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.Text})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, callError(p.Name(), "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, callError(p.Name(), "no choices returned", nil)
	}

	content := resp.Choices[0].Message.Content
	session := p.convs.append(prompt.Session, turn{user: prompt.Text, assistant: content})
	return replyFromText(content, session), nil
}

// =============================================================================
// OLLAMA
// =============================================================================

// OllamaProvider calls a local Ollama model through langchaingo.
//
// Thread Safety: Safe for concurrent use.
type OllamaProvider struct {
	llm     llms.Model
	model   string
	limiter *rate.Limiter
	convs   *conversations
}

// OllamaConfig configures an OllamaProvider.
type OllamaConfig struct {
	ServerURL         string
	Model             string
	RequestsPerMinute int
}

// NewOllamaProvider creates an Ollama provider.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	model := cfg.Model
	if model == "" {
		return nil, fmt.Errorf("%w: ollama provider needs a model", ErrInvalidConfig)
	}
	opts := []ollama.Option{ollama.WithModel(model), ollama.WithFormat("json")}
	if cfg.ServerURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama client: %v", ErrInvalidConfig, err)
	}

	slog.Info("Initializing Ollama provider", slog.String("model", model))
	return &OllamaProvider{
		llm:     llm,
		model:   model,
		limiter: newLimiter(cfg.RequestsPerMinute),
		convs:   newConversations(),
	}, nil
}

// Name implements Provider.
func (p *OllamaProvider) Name() string { return "ollama" }

// Invoke implements Provider.
func (p *OllamaProvider) Invoke(ctx context.Context, prompt Prompt) (*Reply, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.System),
	}
	for _, t := range p.convs.history(prompt.Session) {
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeHuman, t.user),
			llms.TextParts(llms.ChatMessageTypeAI, t.assistant),
		)
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt.Text))

	resp, err := p.llm.GenerateContent(ctx, messages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, callError(p.Name(), "generate failed", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, callError(p.Name(), "no choices returned", nil)
	}

	content := resp.Choices[0].Content
	session := p.convs.append(prompt.Session, turn{user: prompt.Text, assistant: content})
	return replyFromText(content, session), nil
}

// newLimiter returns a limiter allowing rpm requests per minute, or an
// unlimited one for rpm <= 0.
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
}
