// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides styled terminal output for the lintpilot CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	ColorAccent  = lipgloss.Color("#2CD7C7")
	ColorPrimary = lipgloss.Color("#20B9B4")
	ColorBorder  = lipgloss.Color("#16858E")
	ColorSlate   = lipgloss.Color("#5C7A84")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorAdded   = lipgloss.Color("#3FB950")
	ColorRemoved = lipgloss.Color("#F85149")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Added     lipgloss.Style
	Removed   lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
	Added:     lipgloss.NewStyle().Foreground(ColorAdded),
	Removed:   lipgloss.NewStyle().Foreground(ColorRemoved),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon styled for the current personality.
func (i Icon) Render() string {
	if !ShouldShowColors() {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// =============================================================================
// PRINTER
// =============================================================================

// Printer writes personality-aware output. Status lines go to Out;
// machine-mode warnings and errors go to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// NewPrinter creates a Printer. Nil writers default to stdout and stderr.
func NewPrinter(out, errOut io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{Out: out, Err: errOut}
}

func style(s lipgloss.Style, text string) string {
	if !ShouldShowColors() {
		return text
	}
	return s.Render(text)
}

// Title prints a heading. Machine mode omits it.
func (p *Printer) Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.Out, style(Styles.Title, text))
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(p.Out, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.Out, "%s %s\n", IconSuccess.Render(), style(Styles.Success, text))
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(p.Err, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.Out, "%s %s\n", IconWarning.Render(), style(Styles.Warning, text))
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(p.Err, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.Out, "%s %s\n", IconError.Render(), style(Styles.Error, text))
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintln(p.Out, text)
		return
	}
	fmt.Fprintf(p.Out, "%s %s\n", style(Styles.Muted, "│"), text)
}

// Muted prints secondary text. Machine mode omits it.
func (p *Printer) Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.Out, style(Styles.Muted, text))
}

// Box prints content under a title, boxed at the full level.
func (p *Printer) Box(title, content string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(p.Out, "%s:\n%s\n", title, content)
	case PersonalityFull:
		fmt.Fprintln(p.Out, Styles.Box.Width(boxWidth(content)).Render(Styles.Title.Render(title)+"\n"+content))
	default:
		fmt.Fprintln(p.Out, style(Styles.Title, title))
		fmt.Fprintln(p.Out, content)
	}
}

// WarningBox prints content under a warning title.
func (p *Printer) WarningBox(title, content string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(p.Err, "WARN %s:\n%s\n", title, content)
	case PersonalityFull:
		fmt.Fprintln(p.Out, Styles.WarningBox.Width(boxWidth(content)).Render(Styles.Warning.Bold(true).Render(title)+"\n"+content))
	default:
		fmt.Fprintf(p.Out, "%s %s\n%s\n", IconWarning.Render(), style(Styles.Warning, title), content)
	}
}

// boxWidth sizes a box to its widest line, between 40 and 100 columns.
func boxWidth(content string) int {
	w := 40
	for _, line := range strings.Split(content, "\n") {
		if lw := lipgloss.Width(line) + 4; lw > w {
			w = lw
		}
	}
	return min(w, 100)
}

// Counts prints "n label" pairs on one line, e.g. fixed/skipped totals.
func (p *Printer) Counts(pairs ...CountPair) {
	if GetPersonality().Level == PersonalityMachine {
		parts := make([]string, len(pairs))
		for i, c := range pairs {
			parts[i] = fmt.Sprintf("%s=%d", c.Label, c.N)
		}
		fmt.Fprintf(p.Out, "SUMMARY: %s\n", strings.Join(parts, " "))
		return
	}
	parts := make([]string, len(pairs))
	for i, c := range pairs {
		parts[i] = style(c.Style, fmt.Sprintf("%d", c.N)) + " " + style(Styles.Muted, c.Label)
	}
	fmt.Fprintf(p.Out, "\n%s\n", strings.Join(parts, "  "))
}

// CountPair is one entry for Counts.
type CountPair struct {
	N     int
	Label string
	Style lipgloss.Style
}

// =============================================================================
// DIFFS
// =============================================================================

// DiffBlock renders a before/after pair as "-" and "+" prefixed lines.
func DiffBlock(original, fixed string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(original, "\n"), "\n") {
		sb.WriteString(style(Styles.Removed, "- "+line))
		sb.WriteByte('\n')
	}
	for _, line := range strings.Split(strings.TrimRight(fixed, "\n"), "\n") {
		sb.WriteString(style(Styles.Added, "+ "+line))
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ColorizeUnifiedDiff styles the added and removed lines of a unified diff.
// Headers and context pass through unchanged.
func ColorizeUnifiedDiff(diff string) string {
	if !ShouldShowColors() {
		return diff
	}
	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = Styles.Bold.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = Styles.Added.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = Styles.Removed.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = Styles.Subtitle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
