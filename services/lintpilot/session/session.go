// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session tracks the assistant's conversation handle and the file it
// is bound to.
//
// A Manager holds the opaque handle the oracle returned last. The fix loop
// calls Enter before every work item; moving to a different file discards
// the handle so context from one file never leaks into another.
package session

import (
	"log/slog"
	"path/filepath"
	"sync"
)

// Manager holds the current conversation handle.
//
// Thread Safety: Safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	handle string
	file   string
	resets int
}

// NewManager creates a Manager with no handle and no file.
func NewManager() *Manager {
	return &Manager{}
}

// Handle returns the current handle, "" when none.
func (m *Manager) Handle() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Update stores handle as the current one. Empty handles are ignored so a
// reply without a handle does not end the conversation.
func (m *Manager) Update(handle string) {
	if handle == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle = handle
}

// Reset discards the current handle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *Manager) reset() {
	slog.Debug("Session reset",
		slog.String("previous_file", m.file),
		slog.Bool("had_handle", m.handle != ""),
	)
	m.handle = ""
	m.resets++
}

// Enter binds the manager to file.
//
// Description:
//
//	The first Enter only records the file. Later calls reset the session
//	when file differs from the previous one (compared after filepath.Clean).
//
// Outputs:
//
//	bool - True when the session was reset
func (m *Manager) Enter(file string) bool {
	file = filepath.Clean(file)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == "" {
		m.file = file
		return false
	}
	if m.file == file {
		return false
	}
	m.reset()
	m.file = file
	return true
}

// File returns the file the session is bound to.
func (m *Manager) File() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file
}

// Resets returns how many times the session was reset.
func (m *Manager) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}
