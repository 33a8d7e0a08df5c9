// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"fmt"
	"os"
	"path/filepath"
)

// FlatConfigNames are ESLint v9+ config file names, in precedence order.
var FlatConfigNames = []string{
	"eslint.config.js",
	"eslint.config.mjs",
	"eslint.config.cjs",
	"eslint.config.ts",
	"eslint.config.mts",
	"eslint.config.cts",
}

// LegacyConfigNames are eslintrc file names, in ESLint's precedence order.
var LegacyConfigNames = []string{
	".eslintrc.js",
	".eslintrc.cjs",
	".eslintrc.yaml",
	".eslintrc.yml",
	".eslintrc.json",
	".eslintrc",
}

// FindConfig locates the ESLint config governing start.
//
// Description:
//
//	Walks from start (or its directory, if start is a file) up to the
//	filesystem root. In each directory the preferred family is checked
//	first, then the other family, so a v9 binary still finds a project
//	that has not migrated off .eslintrc.
//
// Inputs:
//
//	start - Target file or directory
//	preferFlat - True to check flat config names before legacy names
//
// Outputs:
//
//	string - Absolute path of the config file
//	error - ErrConfigMissing if nothing was found
func FindConfig(start string, preferFlat bool) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	names := append(append([]string{}, LegacyConfigNames...), FlatConfigNames...)
	if preferFlat {
		names = append(append([]string{}, FlatConfigNames...), LegacyConfigNames...)
	}

	for {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w: no eslint config at or above %s", ErrConfigMissing, abs)
}
