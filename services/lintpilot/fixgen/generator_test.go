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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/lintpilot/services/lintpilot/aggregate"
	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/oracle"
	"github.com/AleutianAI/lintpilot/services/lintpilot/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracle answers from per-request functions and records calls.
type fakeOracle struct {
	explain  func() (oracle.Explanation, error)
	disable  func(req oracle.DisableRequest) (oracle.DisableEdit, error)
	fix      func(req oracle.FixRequest) (oracle.FixProposal, error)
	followUp func(req oracle.FollowUpRequest) (oracle.FollowUpAnswer, error)

	fixRequests []oracle.FixRequest
	sessions    []string
	counter     int
}

func (f *fakeOracle) nextSession(in string) string {
	f.sessions = append(f.sessions, in)
	f.counter++
	return "s" + strings.Repeat("+", f.counter)
}

func (f *fakeOracle) Explain(_ context.Context, s string, _ oracle.ExplainRequest) (oracle.Explanation, string, error) {
	next := f.nextSession(s)
	if f.explain == nil {
		return oracle.Explanation{}, next, oracle.ErrNormalize
	}
	e, err := f.explain()
	return e, next, err
}

func (f *fakeOracle) GenerateDisableEdit(_ context.Context, s string, req oracle.DisableRequest) (oracle.DisableEdit, string, error) {
	next := f.nextSession(s)
	if f.disable == nil {
		return oracle.DisableEdit{}, next, oracle.ErrNormalize
	}
	e, err := f.disable(req)
	return e, next, err
}

func (f *fakeOracle) GenerateFix(_ context.Context, s string, req oracle.FixRequest) (oracle.FixProposal, string, error) {
	next := f.nextSession(s)
	f.fixRequests = append(f.fixRequests, req)
	if f.fix == nil {
		return oracle.FixProposal{}, next, oracle.ErrNormalize
	}
	p, err := f.fix(req)
	return p, next, err
}

func (f *fakeOracle) AskFollowUp(_ context.Context, s string, req oracle.FollowUpRequest) (oracle.FollowUpAnswer, string, error) {
	next := f.nextSession(s)
	if f.followUp == nil {
		return oracle.FollowUpAnswer{}, next, oracle.ErrNormalize
	}
	a, err := f.followUp(req)
	return a, next, err
}

// project writes files under a temp dir and returns the dir.
func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// itemFor aggregates one rule's diagnostics at the given file lines.
func itemFor(t *testing.T, dir, rule string, at map[string][]int) aggregate.WorkItem {
	t.Helper()
	var diags []lint.Diagnostic
	for _, name := range []string{"a.js", "b.js", "c.js"} {
		for _, line := range at[name] {
			diags = append(diags, lint.Diagnostic{
				RuleID:   lint.RuleRef(rule),
				Severity: lint.SeverityError,
				File:     filepath.Join(dir, name),
				Line:     line,
				Column:   1,
				Message:  "Unexpected var, use let or const instead.",
			})
		}
	}
	_, items := aggregate.Aggregate(diags, dir)
	require.Len(t, items, 1)
	return items[0]
}

const sampleJS = "var a = 1;\nvar b = 2;\nvar c = 3;\n"

func replaceVar(req oracle.FixRequest) (oracle.FixProposal, error) {
	return oracle.FixProposal{StartLine: req.Line, EndLine: req.Line, FixedCode: "const " + string(rune('a'+req.Line-1)) + " = " + string(rune('0'+req.Line)) + ";"}, nil
}

func TestGenerate_OneFixCallPerLocation(t *testing.T) {
	dir := project(t, map[string]string{"a.js": sampleJS})
	item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {1, 2, 3}})

	fo := &fakeOracle{
		explain: func() (oracle.Explanation, error) {
			return oracle.Explanation{Problem: "var is function scoped", Priority: oracle.PriorityLow}, nil
		},
		fix: replaceVar,
	}
	g := NewGenerator(fo)

	bundle, err := g.Generate(context.Background(), item, ConfigFile{}, session.NewManager())
	require.NoError(t, err)
	require.Len(t, fo.fixRequests, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{fo.fixRequests[0].Line, fo.fixRequests[1].Line, fo.fixRequests[2].Line})

	assert.Equal(t, "no-var", bundle.RuleID)
	assert.Equal(t, 3, bundle.Count)
	require.Len(t, bundle.Fixes, 3)
	assert.Equal(t, "var a = 1;", bundle.Fixes[0].Original)
	assert.Equal(t, "const a = 1;", bundle.Fixes[0].Fixed)
	assert.Equal(t, "var c = 3;", bundle.Fixes[2].Original)
	assert.Equal(t, FailedDisableDiff, bundle.DisableEdit.Diff)
	assert.False(t, bundle.DisableEdit.Available())
}

func TestGenerate_RejectsInvertedRange(t *testing.T) {
	lines := make([]string, 12)
	for i := range lines {
		lines[i] = "var x" + string(rune('a'+i)) + " = 0;"
	}
	dir := project(t, map[string]string{"a.js": strings.Join(lines, "\n") + "\n"})
	item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {7}})

	fo := &fakeOracle{
		fix: func(oracle.FixRequest) (oracle.FixProposal, error) {
			return oracle.FixProposal{StartLine: 10, EndLine: 5, FixedCode: "let x = 0;"}, nil
		},
	}
	bundle, err := NewGenerator(fo).Generate(context.Background(), item, ConfigFile{}, nil)
	require.NoError(t, err, "a parsed but rejected proposal still counts as a payload")
	assert.Empty(t, bundle.Fixes)
	assert.Equal(t, 0, bundle.Count)
	assert.Equal(t, 1, bundle.Rejected)
}

func TestGenerate_ValidationRules(t *testing.T) {
	dir := project(t, map[string]string{"a.js": sampleJS})
	item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {1}})

	tests := []struct {
		name     string
		proposal oracle.FixProposal
	}{
		{"start below one", oracle.FixProposal{StartLine: 0, EndLine: 1, FixedCode: "let a = 1;"}},
		{"end past file", oracle.FixProposal{StartLine: 3, EndLine: 4, FixedCode: "let c = 3;"}},
		{"empty replacement", oracle.FixProposal{StartLine: 1, EndLine: 1, FixedCode: ""}},
		{"whitespace replacement", oracle.FixProposal{StartLine: 1, EndLine: 1, FixedCode: "  \n"}},
		{"bare newline", oracle.FixProposal{StartLine: 1, EndLine: 1, FixedCode: "\n"}},
		{"unchanged", oracle.FixProposal{StartLine: 1, EndLine: 1, FixedCode: "var a = 1;\n"}},
		{"syntax error", oracle.FixProposal{StartLine: 1, EndLine: 1, FixedCode: "const a = (1;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fo := &fakeOracle{fix: func(oracle.FixRequest) (oracle.FixProposal, error) { return tt.proposal, nil }}
			bundle, err := NewGenerator(fo).Generate(context.Background(), item, ConfigFile{}, nil)
			require.NoError(t, err)
			assert.Equal(t, 0, bundle.Count)
			assert.Equal(t, 1, bundle.Rejected)
		})
	}
}

func TestGenerate_SyntaxGateDisabled(t *testing.T) {
	dir := project(t, map[string]string{"a.js": sampleJS})
	item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {1}})
	fo := &fakeOracle{fix: func(oracle.FixRequest) (oracle.FixProposal, error) {
		return oracle.FixProposal{StartLine: 1, EndLine: 1, FixedCode: "const a = (1;"}, nil
	}}

	bundle, err := NewGenerator(fo, WithSyntaxCheck(false)).Generate(context.Background(), item, ConfigFile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.Count)
}

func TestGenerate_ExplanationPlaceholder(t *testing.T) {
	dir := project(t, map[string]string{"a.js": sampleJS})
	item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {2}})
	fo := &fakeOracle{fix: replaceVar}

	bundle, err := NewGenerator(fo).Generate(context.Background(), item, ConfigFile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Failed to generate explanation", bundle.Explanation.Problem)
	assert.Equal(t, oracle.PriorityMedium, bundle.Explanation.Priority)
	assert.Equal(t, 1, bundle.Count)
}

func TestGenerate_NoUsablePayload(t *testing.T) {
	dir := project(t, map[string]string{"a.js": sampleJS, ".eslintrc.json": `{"rules":{}}`})
	item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {1, 2}})
	fo := &fakeOracle{}

	config := ConfigFile{Path: filepath.Join(dir, ".eslintrc.json"), Text: `{"rules":{}}`}
	bundle, err := NewGenerator(fo).Generate(context.Background(), item, config, nil)
	assert.Nil(t, bundle)
	assert.True(t, errors.Is(err, ErrNoUsablePayload))
}

func TestGenerate_ParseErrorItem(t *testing.T) {
	_, err := NewGenerator(&fakeOracle{}).Generate(context.Background(), aggregate.WorkItem{}, ConfigFile{}, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestGenerate_DisableEdit(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		content   string
		wantValid bool
	}{
		{"json ok", ".eslintrc.json", "{\n  \"rules\": {\"no-var\": \"off\"}\n}\n", true},
		{"json broken", ".eslintrc.json", "{\"rules\": {\"no-var\": \"off\"}", false},
		{"yaml ok", ".eslintrc.yml", "rules:\n  no-var: \"off\"\n", true},
		{"yaml scalar", ".eslintrc.yaml", "just text", false},
		{"bare eslintrc yaml", ".eslintrc", "rules:\n  no-var: off\n", true},
		{"flat config ok", "eslint.config.js", "export default [{ rules: { 'no-var': 'off' } }];\n", true},
		{"flat config broken", "eslint.config.js", "export default [{ rules: { 'no-var': 'off' };\n", false},
		{"empty", ".eslintrc.json", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := project(t, map[string]string{"a.js": sampleJS, tt.config: "original"})
			item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {1}})
			configPath := filepath.Join(dir, tt.config)

			var seen oracle.DisableRequest
			fo := &fakeOracle{
				disable: func(req oracle.DisableRequest) (oracle.DisableEdit, error) {
					seen = req
					return oracle.DisableEdit{NewContent: tt.content, Diff: "-a\n+b"}, nil
				},
			}
			bundle, err := NewGenerator(fo).Generate(context.Background(), item, ConfigFile{Path: configPath, Text: "stale"}, nil)
			require.NoError(t, err)
			assert.Equal(t, "original", seen.ConfigText, "live config text is sent")
			assert.Equal(t, "no-var", seen.RuleID)

			if tt.wantValid {
				assert.True(t, bundle.DisableEdit.Available())
				assert.Equal(t, tt.content, bundle.DisableEdit.NewContent)
			} else {
				assert.False(t, bundle.DisableEdit.Available())
				assert.Equal(t, FailedDisableDiff, bundle.DisableEdit.Diff)
			}
		})
	}
}

func TestGenerate_ThreadsSession(t *testing.T) {
	dir := project(t, map[string]string{"a.js": sampleJS})
	item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {1, 2}})
	fo := &fakeOracle{fix: replaceVar}
	mgr := session.NewManager()
	mgr.Update("start")

	_, err := NewGenerator(fo).Generate(context.Background(), item, ConfigFile{}, mgr)
	require.NoError(t, err)

	// explain, then two fixes; each call sees the previous call's handle.
	assert.Equal(t, []string{"start", "s+", "s++"}, fo.sessions)
	assert.Equal(t, "s+++", mgr.Handle())
}

func TestGenerate_MultiFileOrder(t *testing.T) {
	dir := project(t, map[string]string{"a.js": sampleJS, "b.js": sampleJS})
	item := itemFor(t, dir, "no-var", map[string][]int{"a.js": {3}, "b.js": {1}})
	fo := &fakeOracle{fix: replaceVar}

	bundle, err := NewGenerator(fo).Generate(context.Background(), item, ConfigFile{}, nil)
	require.NoError(t, err)
	require.Len(t, bundle.Fixes, 2)
	assert.Equal(t, filepath.Join(dir, "a.js"), bundle.Fixes[0].File)
	assert.Equal(t, filepath.Join(dir, "b.js"), bundle.Fixes[1].File)
	assert.Equal(t, []string{filepath.Join(dir, "a.js"), filepath.Join(dir, "b.js")}, bundle.Files())
	assert.Equal(t, "a.js", fo.fixRequests[0].FilePath)
}

func TestFollowUp(t *testing.T) {
	var seen oracle.FollowUpRequest
	fo := &fakeOracle{followUp: func(req oracle.FollowUpRequest) (oracle.FollowUpAnswer, error) {
		seen = req
		return oracle.FollowUpAnswer{Answer: "because hoisting"}, nil
	}}
	bundle := &FixBundle{RuleID: "no-var", Explanation: oracle.Explanation{Problem: "var hoists"}}

	answer, err := NewGenerator(fo).FollowUp(context.Background(), bundle, "why?", nil)
	require.NoError(t, err)
	assert.Equal(t, "because hoisting", answer)
	assert.Equal(t, "why?", seen.Question)
	assert.Contains(t, seen.Context, "Rule: no-var")

	_, err = NewGenerator(fo).FollowUp(context.Background(), bundle, " ", nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestContextWindow(t *testing.T) {
	content := "l1\nl2\nl3\nl4\nl5\n"
	got := contextWindow(content, 2, 1)
	assert.Equal(t, "     1 | l1\n>    2 | l2\n     3 | l3\n", got)

	got = contextWindow(content, 5, 10)
	assert.True(t, strings.HasPrefix(got, "     1 | l1\n"))
	assert.True(t, strings.HasSuffix(got, ">    5 | l5\n"))
}

func TestConfigEditStat(t *testing.T) {
	edit := ConfigEdit{Diff: "--- a/.eslintrc.json\n+++ b/.eslintrc.json\n@@ -1,3 +1,3 @@\n {\n-  \"rules\": {}\n+  \"rules\": {\"no-var\": \"off\"}\n }\n"}
	stat, ok := edit.Stat()
	require.True(t, ok)
	assert.Equal(t, DiffStat{Added: 1, Removed: 1}, stat)

	_, ok = ConfigEdit{Diff: "Turned no-var off."}.Stat()
	assert.False(t, ok)
}
