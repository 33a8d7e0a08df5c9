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
	"fmt"
	"strings"
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	// Name is one of "claude", "codex", "openai", "ollama".
	Name string

	Model   string
	WorkDir string

	// Binary overrides the executable for CLI providers.
	Binary string

	// APIKey and BaseURL are used by the openai provider.
	APIKey  string
	BaseURL string

	// ServerURL is the Ollama endpoint.
	ServerURL string

	RequestsPerMinute int
}

// ProviderNames lists the supported providers.
var ProviderNames = []string{"claude", "codex", "openai", "ollama"}

// NewProvider builds the provider named in cfg.
//
// Errors: ErrUnknownProvider for an unsupported name, ErrInvalidConfig when
// the named provider cannot be constructed.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", "claude":
		p := NewClaudeProvider(cfg.Model, cfg.WorkDir)
		if cfg.Binary != "" {
			p.Binary = cfg.Binary
		}
		return p, nil
	case "codex":
		p := NewCodexProvider(cfg.Model, cfg.WorkDir)
		if cfg.Binary != "" {
			p.Binary = cfg.Binary
		}
		return p, nil
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			RequestsPerMinute: cfg.RequestsPerMinute,
		})
	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			ServerURL:         cfg.ServerURL,
			Model:             cfg.Model,
			RequestsPerMinute: cfg.RequestsPerMinute,
		})
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownProvider, cfg.Name, strings.Join(ProviderNames, ", "))
	}
}
