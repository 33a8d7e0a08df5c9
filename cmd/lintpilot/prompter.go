// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// errAborted is returned by a Prompter when the user cancels (Ctrl+C, "q",
// or end of input).
var errAborted = errors.New("prompt aborted")

// Prompter asks the user questions.
//
// # Description
//
// The interactive driver talks to the user only through a Prompter, so the
// terminal forms (huh) and the plain line reader are interchangeable and
// tests can script answers.
//
// # Thread Safety
//
// Not safe for concurrent use. The fix loop asks one question at a time.
type Prompter interface {
	// Select returns the index of the chosen option.
	Select(ctx context.Context, title string, options []string) (int, error)

	// MultiSelect returns the indexes of the chosen options, in order.
	MultiSelect(ctx context.Context, title string, options []string) ([]int, error)

	// Input returns a line of free text.
	Input(ctx context.Context, title string) (string, error)

	// Confirm returns a yes/no answer.
	Confirm(ctx context.Context, title string, def bool) (bool, error)
}

// =============================================================================
// HUH PROMPTER
// =============================================================================

// huhPrompter renders terminal forms.
type huhPrompter struct {
	accessible bool
}

func newHuhPrompter(accessible bool) *huhPrompter {
	return &huhPrompter{accessible: accessible}
}

func (p *huhPrompter) run(ctx context.Context, field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).
		WithAccessible(p.accessible).
		WithShowHelp(false).
		RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return errAborted
	}
	return err
}

func (p *huhPrompter) Select(ctx context.Context, title string, options []string) (int, error) {
	choice := 0
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i)
	}
	field := huh.NewSelect[int]().Title(title).Options(opts...).Value(&choice)
	if err := p.run(ctx, field); err != nil {
		return 0, err
	}
	return choice, nil
}

func (p *huhPrompter) MultiSelect(ctx context.Context, title string, options []string) ([]int, error) {
	var chosen []int
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i).Selected(true)
	}
	field := huh.NewMultiSelect[int]().Title(title).Options(opts...).Value(&chosen)
	if err := p.run(ctx, field); err != nil {
		return nil, err
	}
	return chosen, nil
}

func (p *huhPrompter) Input(ctx context.Context, title string) (string, error) {
	var text string
	field := huh.NewInput().Title(title).Value(&text)
	if err := p.run(ctx, field); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *huhPrompter) Confirm(ctx context.Context, title string, def bool) (bool, error) {
	answer := def
	field := huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&answer)
	if err := p.run(ctx, field); err != nil {
		return false, err
	}
	return answer, nil
}

// =============================================================================
// LINE PROMPTER
// =============================================================================

// linePrompter reads numbered answers from a line-oriented reader. It is
// used when stdin is not a terminal.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

// readLine returns the next trimmed line. EOF and "q" abort.
func (p *linePrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *linePrompter) listOptions(title string, options []string) {
	fmt.Fprintln(p.out, title)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
}

func (p *linePrompter) Select(ctx context.Context, title string, options []string) (int, error) {
	p.listOptions(title, options)
	for {
		fmt.Fprint(p.out, "> ")
		line, err := p.readLine(ctx)
		if err != nil {
			return 0, err
		}
		if strings.EqualFold(line, "q") {
			return 0, errAborted
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "Enter a number from 1 to %d.\n", len(options))
	}
}

func (p *linePrompter) MultiSelect(ctx context.Context, title string, options []string) ([]int, error) {
	p.listOptions(title+" (comma-separated, empty for all)", options)
	for {
		fmt.Fprint(p.out, "> ")
		line, err := p.readLine(ctx)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(line, "q") {
			return nil, errAborted
		}
		if line == "" || strings.EqualFold(line, "all") {
			all := make([]int, len(options))
			for i := range all {
				all[i] = i
			}
			return all, nil
		}
		if chosen, ok := parseIndexes(line, len(options)); ok {
			return chosen, nil
		}
		fmt.Fprintf(p.out, "Enter numbers from 1 to %d, e.g. 1,3.\n", len(options))
	}
}

func (p *linePrompter) Input(ctx context.Context, title string) (string, error) {
	fmt.Fprintf(p.out, "%s\n> ", title)
	return p.readLine(ctx)
}

func (p *linePrompter) Confirm(ctx context.Context, title string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		fmt.Fprintf(p.out, "%s %s ", title, hint)
		line, err := p.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "q":
			return false, errAborted
		}
	}
}

// parseIndexes parses "1, 3,2" into zero-based indexes in [0, n). Duplicates
// are dropped; order of first appearance is kept.
func parseIndexes(line string, n int) ([]int, bool) {
	seen := make(map[int]bool)
	var out []int
	for _, field := range strings.Split(line, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil || v < 1 || v > n {
			return nil, false
		}
		if !seen[v-1] {
			seen[v-1] = true
			out = append(out, v-1)
		}
	}
	return out, len(out) > 0
}
