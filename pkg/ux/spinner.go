// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SpinnerType defines the animation style.
type SpinnerType int

const (
	SpinnerDots SpinnerType = iota
	SpinnerLine
	SpinnerPulse
	SpinnerPoints
)

func (t SpinnerType) frames() spinner.Spinner {
	switch t {
	case SpinnerLine:
		return spinner.Line
	case SpinnerPulse:
		return spinner.Pulse
	case SpinnerPoints:
		return spinner.Points
	default:
		return spinner.Dot
	}
}

// Spinner is an animated indicator for slow calls (lint runs, oracle
// requests). It animates on its own goroutine and clears its line on Stop.
type Spinner struct {
	message    string
	spinType   SpinnerType
	out        io.Writer
	stop       chan struct{}
	done       chan struct{}
	mu         sync.Mutex
	isRunning  bool
	frameIndex int
}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		spinType: SpinnerDots,
		out:      os.Stderr,
	}
}

// WithType sets the animation style.
func (s *Spinner) WithType(t SpinnerType) *Spinner {
	s.spinType = t
	return s
}

// WithWriter redirects the spinner.
func (s *Spinner) WithWriter(w io.Writer) *Spinner {
	if w != nil {
		s.out = w
	}
	return s
}

// Start begins the animation. In machine mode it prints the message once.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	if !ShouldShowProgress() {
		fmt.Fprintf(s.out, "PROGRESS: %s\n", s.currentMessage())
		close(s.done)
		return
	}

	go s.run()
}

func (s *Spinner) run() {
	anim := s.spinType.frames()
	ticker := time.NewTicker(anim.FPS)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			fmt.Fprint(s.out, "\r\033[K")
			close(s.done)
			return
		case <-ticker.C:
			s.mu.Lock()
			frame := style(Styles.Highlight, anim.Frames[s.frameIndex])
			s.frameIndex = (s.frameIndex + 1) % len(anim.Frames)
			msg := s.message
			s.mu.Unlock()
			fmt.Fprintf(s.out, "\r%s %s", frame, msg)
		}
	}
}

// Stop halts the animation and clears the line. Safe to call twice.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	select {
	case <-done:
	default:
		close(stop)
		<-done
	}
}

// UpdateMessage changes the message while running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *Spinner) currentMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// WithSpinner runs fn behind a spinner.
func WithSpinner(message string, fn func() error) error {
	spin := NewSpinner(message)
	spin.Start()
	defer spin.Stop()
	return fn()
}
