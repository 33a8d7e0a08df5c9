// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_InitiallyEmpty(t *testing.T) {
	m := NewManager()
	assert.Equal(t, "", m.Handle())
	assert.Equal(t, "", m.File())
	assert.Equal(t, 0, m.Resets())
}

func TestManager_UpdateIgnoresEmpty(t *testing.T) {
	m := NewManager()
	m.Update("h1")
	m.Update("")
	assert.Equal(t, "h1", m.Handle())

	m.Update("h2")
	assert.Equal(t, "h2", m.Handle())
}

func TestManager_Reset(t *testing.T) {
	m := NewManager()
	m.Update("h1")
	m.Reset()
	assert.Equal(t, "", m.Handle())
	assert.Equal(t, 1, m.Resets())
}

func TestManager_ResetsOnceBetweenFiles(t *testing.T) {
	m := NewManager()

	assert.False(t, m.Enter("src/a.js"))
	m.Update("conversation-a")

	assert.False(t, m.Enter("src/a.js"), "same file keeps the session")
	assert.Equal(t, "conversation-a", m.Handle())

	assert.True(t, m.Enter("src/b.js"))
	assert.Equal(t, "", m.Handle())
	assert.Equal(t, "src/b.js", m.File())
	assert.Equal(t, 1, m.Resets())
}

func TestManager_EnterCleansPaths(t *testing.T) {
	m := NewManager()
	m.Enter("src/a.js")
	assert.False(t, m.Enter("src/./a.js"))
	assert.Equal(t, 0, m.Resets())
}
