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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
)

// =============================================================================
// SUBPROCESS HELPER
// =============================================================================

// cliResult is the captured output of an assistant subprocess.
type cliResult struct {
	stdout []byte
	stderr string
	err    error
}

// runCLI runs binary with args, feeding stdin, in dir.
func runCLI(ctx context.Context, binary string, args []string, stdin, dir string) cliResult {
	cmd := exec.CommandContext(ctx, binary, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return cliResult{stdout: stdout.Bytes(), stderr: stderr.String(), err: err}
}

// =============================================================================
// CLAUDE CLI
// =============================================================================

// ClaudeProvider runs `claude -p --output-format json`.
//
// Description:
//
//	The prompt is sent on stdin. With a session handle the call resumes that
//	conversation (--resume). When the schema carries a JSON Schema it is
//	passed with --json-schema so the reply fills structured_output.
type ClaudeProvider struct {
	Binary  string
	Model   string
	WorkDir string

	// UseJSONSchema enables --json-schema (claude CLI 2.x and later).
	UseJSONSchema bool
}

// NewClaudeProvider creates a claude CLI provider.
func NewClaudeProvider(model, workDir string) *ClaudeProvider {
	return &ClaudeProvider{
		Binary:        "claude",
		Model:         model,
		WorkDir:       workDir,
		UseJSONSchema: true,
	}
}

// Name implements Provider.
func (p *ClaudeProvider) Name() string { return "claude" }

// Invoke implements Provider.
func (p *ClaudeProvider) Invoke(ctx context.Context, prompt Prompt) (*Reply, error) {
	args := p.args(prompt)
	res := runCLI(ctx, p.Binary, args, combinedPrompt(prompt), p.WorkDir)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(bytes.TrimSpace(res.stdout)) == 0 {
		if res.err != nil {
			return nil, callError(p.Name(), res.stderr, res.err)
		}
		return nil, callError(p.Name(), "empty response", nil)
	}

	reply := ParseReply(res.stdout)
	if res.err != nil && !reply.IsError {
		reply.IsError = true
		if reply.ErrorText == "" {
			reply.ErrorText = strings.TrimSpace(res.stderr)
		}
	}
	if reply.IsError && isRateLimitMessage(reply.ErrorText) {
		return reply, callError(p.Name(), reply.ErrorText, nil)
	}
	return reply, nil
}

func (p *ClaudeProvider) args(prompt Prompt) []string {
	args := []string{"-p", "--output-format", "json"}
	if p.Model != "" {
		args = append(args, "--model", p.Model)
	}
	if prompt.Session != "" {
		args = append(args, "--resume", prompt.Session)
	}
	if p.UseJSONSchema && prompt.Schema.JSON != "" {
		args = append(args, "--json-schema", prompt.Schema.JSON)
	}
	return args
}

// =============================================================================
// CODEX CLI
// =============================================================================

// CodexProvider runs `codex exec --json` in a read-only sandbox.
//
// Description:
//
//	codex streams JSONL events. The thread id from thread.started is the
//	session handle, the last agent_message item is the result text, and
//	turn.failed or error events mark the reply as an error.
type CodexProvider struct {
	Binary  string
	Model   string
	WorkDir string
}

// NewCodexProvider creates a codex CLI provider.
func NewCodexProvider(model, workDir string) *CodexProvider {
	return &CodexProvider{Binary: "codex", Model: model, WorkDir: workDir}
}

// Name implements Provider.
func (p *CodexProvider) Name() string { return "codex" }

// Invoke implements Provider.
func (p *CodexProvider) Invoke(ctx context.Context, prompt Prompt) (*Reply, error) {
	args := []string{"exec", "--json", "--sandbox", "read-only", "--skip-git-repo-check"}
	if p.Model != "" {
		args = append(args, "--model", p.Model)
	}
	if prompt.Session != "" {
		args = append(args, "resume", prompt.Session)
	}
	args = append(args, "-")

	res := runCLI(ctx, p.Binary, args, combinedPrompt(prompt), p.WorkDir)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(bytes.TrimSpace(res.stdout)) == 0 {
		if res.err != nil {
			return nil, callError(p.Name(), res.stderr, res.err)
		}
		return nil, callError(p.Name(), "empty response", nil)
	}

	reply := parseCodexEvents(res.stdout)
	if res.err != nil && !reply.IsError && reply.Result == nil {
		reply.IsError = true
		reply.ErrorText = strings.TrimSpace(res.stderr)
	}
	return reply, nil
}

// parseCodexEvents folds a codex JSONL stream into a Reply.
func parseCodexEvents(stream []byte) *Reply {
	reply := &Reply{Raw: stream}
	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var ev map[string]any
		if json.Unmarshal(scanner.Bytes(), &ev) != nil {
			continue
		}
		switch ev["type"] {
		case "thread.started":
			if id, ok := ev["thread_id"].(string); ok {
				reply.SessionID = id
			}
		case "item.completed":
			item, ok := ev["item"].(map[string]any)
			if !ok {
				continue
			}
			if item["type"] == "agent_message" {
				if text, ok := item["text"].(string); ok && text != "" {
					reply.Result = text
				}
			}
		case "turn.failed":
			reply.IsError = true
			if e, ok := ev["error"].(map[string]any); ok {
				if msg, ok := e["message"].(string); ok {
					reply.ErrorText = msg
				}
			}
			if reply.ErrorText == "" {
				reply.ErrorText = "turn failed"
			}
		case "error":
			if msg, ok := ev["message"].(string); ok && msg != "" {
				reply.IsError = true
				reply.ErrorText = msg
			}
		}
	}
	if reply.IsError && reply.ErrorText == "" {
		reply.ErrorText = "codex reported an error"
	}
	return reply
}
