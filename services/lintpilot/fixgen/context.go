// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixgen

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/patch"
	"gopkg.in/yaml.v3"
)

// DefaultContextLines is the number of lines shown either side of a finding.
const DefaultContextLines = 10

// contextWindow renders lines line-radius..line+radius of content, clipped
// to the file, as "%5d | text" with the finding's line marked ">".
func contextWindow(content string, line, radius int) string {
	lines := patch.SplitLines(content)
	start := max(1, line-radius)
	end := min(len(lines), line+radius)

	var b strings.Builder
	for i := start; i <= end; i++ {
		marker := " "
		if i == line {
			marker = ">"
		}
		text := strings.TrimRight(lines[i-1], "\r\n")
		fmt.Fprintf(&b, "%s%5d | %s\n", marker, i, text)
	}
	return b.String()
}

// normalizeReplacement strips one trailing line terminator from fixed so
// the replaced span keeps its own.
func normalizeReplacement(fixed string) string {
	fixed = strings.TrimSuffix(fixed, "\n")
	return strings.TrimSuffix(fixed, "\r")
}

// checkConfigContent reports whether content is valid for the config at
// path: JSON for .json, YAML for .yml/.yaml, either for a bare .eslintrc,
// and a clean tree-sitter parse for JavaScript/TypeScript configs.
func checkConfigContent(ctx context.Context, path, content string, syntax *SyntaxChecker) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: empty config content", ErrValidationRejected)
	}

	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	switch {
	case ext == ".json":
		if !json.Valid([]byte(content)) {
			return fmt.Errorf("%w: %s is not valid JSON", ErrValidationRejected, base)
		}
	case ext == ".yml" || ext == ".yaml":
		if err := validYAML(content); err != nil {
			return fmt.Errorf("%w: %s is not valid YAML: %v", ErrValidationRejected, base, err)
		}
	case base == ".eslintrc":
		if !json.Valid([]byte(content)) && validYAML(content) != nil {
			return fmt.Errorf("%w: %s is neither JSON nor YAML", ErrValidationRejected, base)
		}
	default:
		language := lint.LanguageFromPath(path)
		if language == "" || syntax == nil {
			return nil
		}
		res, err := syntax.Check(ctx, language, []byte(content))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidationRejected, err)
		}
		if !res.Clean {
			return fmt.Errorf("%w: %s has a syntax error at line %d", ErrValidationRejected, base, res.ErrorLine)
		}
	}
	return nil
}

func validYAML(content string) error {
	var doc any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return err
	}
	if _, ok := doc.(map[string]any); !ok {
		return fmt.Errorf("top level is not a mapping")
	}
	return nil
}
