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
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewSpinner_Defaults(t *testing.T) {
	spin := NewSpinner("Scanning...")
	if spin.message != "Scanning..." {
		t.Errorf("message = %q", spin.message)
	}
	if spin.spinType != SpinnerDots {
		t.Errorf("spinType = %v, want SpinnerDots", spin.spinType)
	}
}

func TestSpinnerType_Frames(t *testing.T) {
	for _, st := range []SpinnerType{SpinnerDots, SpinnerLine, SpinnerPulse, SpinnerPoints} {
		anim := st.frames()
		if len(anim.Frames) == 0 || anim.FPS <= 0 {
			t.Errorf("SpinnerType(%d) has no frames or FPS", st)
		}
	}
}

func TestSpinner_MachineModePrintsOnce(t *testing.T) {
	withLevel(t, PersonalityMachine, func() {
		var out syncBuffer
		spin := NewSpinner("Asking the assistant").WithWriter(&out)
		spin.Start()
		spin.Start()
		spin.Stop()
		spin.Stop()

		if got := out.String(); got != "PROGRESS: Asking the assistant\n" {
			t.Errorf("output = %q", got)
		}
	})
}

func TestSpinner_AnimatesAndClears(t *testing.T) {
	withLevel(t, PersonalityMinimal, func() {
		var out syncBuffer
		spin := NewSpinner("Linting").WithType(SpinnerLine).WithWriter(&out)
		spin.Start()

		deadline := time.Now().Add(2 * time.Second)
		for !strings.Contains(out.String(), "Linting") && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		spin.UpdateMessage("Linting again")
		spin.Stop()

		got := out.String()
		if !strings.Contains(got, "Linting") {
			t.Errorf("spinner never drew: %q", got)
		}
		if !strings.HasSuffix(got, "\r\033[K") {
			t.Errorf("spinner did not clear its line: %q", got)
		}
	})
}

func TestSpinner_Restart(t *testing.T) {
	withLevel(t, PersonalityMachine, func() {
		var out syncBuffer
		spin := NewSpinner("again").WithWriter(&out)
		spin.Start()
		spin.Stop()
		spin.Start()
		spin.Stop()
		if strings.Count(out.String(), "PROGRESS") != 2 {
			t.Errorf("output = %q", out.String())
		}
	})
}

func TestWithSpinner_ReturnsError(t *testing.T) {
	withLevel(t, PersonalityMachine, func() {
		want := errors.New("boom")
		if err := WithSpinner("working", func() error { return want }); !errors.Is(err, want) {
			t.Errorf("WithSpinner error = %v, want %v", err, want)
		}
	})
}
