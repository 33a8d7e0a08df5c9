// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/telemetry"
)

// LintpilotConfig is the contents of lintpilot.yaml / lintpilot.toml.
type LintpilotConfig struct {
	// Provider selects the oracle backend.
	Provider string `yaml:"provider" toml:"provider" validate:"required,oneof=claude codex openai ollama"`

	// Model is passed to the provider; empty uses the provider's default.
	Model string `yaml:"model,omitempty" toml:"model"`

	// Timeout bounds a single oracle call.
	Timeout time.Duration `yaml:"timeout" toml:"timeout" validate:"gt=0"`

	// Mode is the default run mode when no mode flag is given.
	Mode string `yaml:"mode,omitempty" toml:"mode" validate:"omitempty,oneof=interactive non-interactive auto"`

	MaxIterations int  `yaml:"max_iterations" toml:"max_iterations" validate:"gte=1"`
	MaxSkips      int  `yaml:"max_skips" toml:"max_skips" validate:"gte=0"`
	ContextLines  int  `yaml:"context_lines" toml:"context_lines" validate:"gte=0,lte=200"`
	SyntaxCheck   bool `yaml:"syntax_check" toml:"syntax_check"`

	// RedactSecrets masks credentials in source snippets before they reach
	// the provider.
	RedactSecrets bool `yaml:"redact_secrets" toml:"redact_secrets"`

	// Personality overrides LINTPILOT_PERSONALITY when set.
	Personality string `yaml:"personality,omitempty" toml:"personality" validate:"omitempty,oneof=full standard minimal machine"`

	Lint      LintConfig       `yaml:"lint" toml:"lint"`
	Claude    CLIConfig        `yaml:"claude,omitempty" toml:"claude"`
	Codex     CLIConfig        `yaml:"codex,omitempty" toml:"codex"`
	OpenAI    OpenAIConfig     `yaml:"openai,omitempty" toml:"openai"`
	Ollama    OllamaConfig     `yaml:"ollama,omitempty" toml:"ollama"`
	Log       LogConfig        `yaml:"log" toml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry" toml:"telemetry"`

	// Path is the file the config was read from; empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

// LintConfig configures the analyzer.
type LintConfig struct {
	// Command runs ESLint, e.g. "npx eslint" or "./node_modules/.bin/eslint".
	Command string `yaml:"command,omitempty" toml:"command"`

	// Config pins the lint config file, bypassing discovery.
	Config string `yaml:"config,omitempty" toml:"config"`

	// Timeout bounds a single lint run. Zero uses the analyzer default.
	Timeout time.Duration `yaml:"timeout,omitempty" toml:"timeout" validate:"gte=0"`

	Policy lint.RulePolicy `yaml:"policy,omitempty" toml:"policy"`
}

// CLIConfig configures a provider backed by a local CLI.
type CLIConfig struct {
	Binary string `yaml:"binary,omitempty" toml:"binary"`
}

// OpenAIConfig configures the openai provider.
type OpenAIConfig struct {
	// APIKey is usually supplied through OPENAI_API_KEY instead.
	APIKey            string `yaml:"api_key,omitempty" toml:"api_key"`
	BaseURL           string `yaml:"base_url,omitempty" toml:"base_url" validate:"omitempty,url"`
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty" toml:"requests_per_minute" validate:"gte=0"`
}

// OllamaConfig configures the ollama provider.
type OllamaConfig struct {
	Host              string `yaml:"host,omitempty" toml:"host" validate:"omitempty,url"`
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty" toml:"requests_per_minute" validate:"gte=0"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn warning error"`

	// Dir enables a JSON log file per day.
	Dir string `yaml:"dir,omitempty" toml:"dir"`

	JSON bool `yaml:"json,omitempty" toml:"json"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() LintpilotConfig {
	return LintpilotConfig{
		Provider:      "claude",
		Timeout:       180 * time.Second,
		MaxIterations: 50,
		MaxSkips:      2,
		ContextLines:  10,
		SyntaxCheck:   true,
		RedactSecrets: true,
		Log: LogConfig{
			Level: "warn",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}
