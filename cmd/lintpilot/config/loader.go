// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the lintpilot tool configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/lintpilot/services/lintpilot/oracle"
)

// FileNames are the config names searched for, in order, in each directory.
var FileNames = []string{"lintpilot.yaml", "lintpilot.yml", "lintpilot.toml", ".lintpilot.yaml"}

var (
	// ErrInvalidConfig is returned when a config fails validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupportedFormat is returned for a config file with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

var validate = validator.New()

// Find walks up from start looking for one of FileNames. It returns "" when
// no config exists between start and the filesystem root.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load reads the configuration.
//
// Description:
//
//	When path is empty the config is discovered from start with Find; a
//	missing file is not an error and yields the defaults. File values are
//	laid over DefaultConfig, then environment overrides are applied, then
//	the result is validated.
//
// Inputs:
//
//	path - Explicit config file, or "" to discover.
//	start - Directory (or file) discovery begins at.
//
// Outputs:
//
//	*LintpilotConfig - The loaded config.
//	error - Read, decode, or ErrInvalidConfig errors.
func Load(path, start string) (*LintpilotConfig, error) {
	cfg := DefaultConfig()

	if path == "" {
		found, err := Find(start)
		if err != nil {
			return nil, err
		}
		path = found
	}

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
		cfg.Path = path
	}

	ApplyEnv(&cfg, os.Getenv)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *LintpilotConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read the config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

// ApplyEnv applies environment overrides. getenv is os.Getenv outside tests.
//
//   - LINTPILOT_PROVIDER, LINTPILOT_MODEL: provider and model
//   - OPENAI_API_KEY, OPENAI_BASE_URL: openai credentials and endpoint
//   - OLLAMA_HOST: ollama endpoint
//   - LINTPILOT_PERSONALITY: output personality
func ApplyEnv(cfg *LintpilotConfig, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Provider, "LINTPILOT_PROVIDER")
	set(&cfg.Model, "LINTPILOT_MODEL")
	set(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&cfg.Ollama.Host, "OLLAMA_HOST")
	set(&cfg.Personality, "LINTPILOT_PERSONALITY")
}

func normalize(cfg *LintpilotConfig) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Personality = strings.ToLower(strings.TrimSpace(cfg.Personality))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	// OLLAMA_HOST is commonly "host:port".
	if h := cfg.Ollama.Host; h != "" && !strings.Contains(h, "://") {
		cfg.Ollama.Host = "http://" + h
	}
}

// Validate checks cfg against its struct tags.
func Validate(cfg *LintpilotConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ProviderConfig builds the oracle provider settings for workDir.
func (c *LintpilotConfig) ProviderConfig(workDir string) oracle.ProviderConfig {
	pc := oracle.ProviderConfig{
		Name:    c.Provider,
		Model:   c.Model,
		WorkDir: workDir,
	}
	switch c.Provider {
	case "claude":
		pc.Binary = c.Claude.Binary
	case "codex":
		pc.Binary = c.Codex.Binary
	case "openai":
		pc.APIKey = c.OpenAI.APIKey
		pc.BaseURL = c.OpenAI.BaseURL
		pc.RequestsPerMinute = c.OpenAI.RequestsPerMinute
	case "ollama":
		pc.ServerURL = c.Ollama.Host
		pc.RequestsPerMinute = c.Ollama.RequestsPerMinute
	}
	return pc
}

// WriteDefault writes the default config as YAML to path, creating its
// directory. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	cfg := DefaultConfig()
	cfg.Telemetry.Environment = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
