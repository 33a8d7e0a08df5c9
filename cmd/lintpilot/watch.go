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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/lintpilot/services/lintpilot/lint"
	"github.com/AleutianAI/lintpilot/services/lintpilot/loop"
)

// defaultDebounce is how long the tree must be quiet before a re-run.
const defaultDebounce = 500 * time.Millisecond

// changeWatcher reports debounced changes to source files and the lint
// config under a root directory.
//
// # Thread Safety
//
// Not safe for concurrent use; one goroutine calls Wait and Drain.
type changeWatcher struct {
	watcher    *fsnotify.Watcher
	root       string
	lintConfig string
	debounce   time.Duration
	logger     *slog.Logger
}

// newChangeWatcher watches root and every subdirectory except node_modules
// and hidden directories.
func newChangeWatcher(root, lintConfig string, debounce time.Duration, logger *slog.Logger) (*changeWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	cw := &changeWatcher{
		watcher:    w,
		root:       root,
		lintConfig: lintConfig,
		debounce:   debounce,
		logger:     logger,
	}
	if err := cw.addRecursive(root); err != nil {
		w.Close()
		return nil, err
	}
	// The lint config may live above the target directory.
	if lintConfig != "" && !strings.HasPrefix(lintConfig, root+string(filepath.Separator)) {
		if err := w.Add(filepath.Dir(lintConfig)); err != nil {
			logger.Warn("Cannot watch lint config", slog.String("config", lintConfig), slog.String("error", err.Error()))
		}
	}
	return cw, nil
}

func (cw *changeWatcher) Close() error {
	return cw.watcher.Close()
}

func (cw *changeWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return cw.watcher.Add(path)
	})
}

// skipDir reports whether a directory is never watched.
func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}

// relevant reports whether a change to path should trigger a re-run.
func (cw *changeWatcher) relevant(path string) bool {
	if path == cw.lintConfig {
		return true
	}
	rel, err := filepath.Rel(cw.root, path)
	if err == nil {
		for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
			if part != "." && skipDir(part) {
				return false
			}
		}
	}
	return lint.IsSourceFile(path)
}

// Wait blocks until a relevant change is followed by a quiet debounce
// window, and returns the changed paths sorted.
func (cw *changeWatcher) Wait(ctx context.Context) ([]string, error) {
	changed := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return nil, errors.New("watcher closed")
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
					_ = cw.addRecursive(event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) || !cw.relevant(event.Name) {
				continue
			}
			changed[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
				timerC = timer.C
			} else {
				timer.Reset(cw.debounce)
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return nil, errors.New("watcher closed")
			}
			cw.logger.Warn("Watch error", slog.String("error", err.Error()))

		case <-timerC:
			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			return paths, nil
		}
	}
}

// Drain discards events until none arrive for one debounce window, so the
// loop's own edits do not trigger a re-run.
func (cw *changeWatcher) Drain(ctx context.Context) {
	quiet := time.NewTimer(cw.debounce)
	defer quiet.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-quiet.C:
			return
		case _, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			quiet.Reset(cw.debounce)
		case _, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// watch runs the loop, then re-runs it after every debounced change until
// ctx is cancelled. A run that ends in QUIT stops watching; parse errors
// keep watching so the user can fix them.
func (a *app) watch(ctx context.Context) error {
	cw, err := newChangeWatcher(a.root, a.lintCfg, defaultDebounce, a.logger)
	if err != nil {
		return err
	}
	defer cw.Close()

	for {
		report, err := a.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case errors.Is(err, loop.ErrParseErrors):
			a.printer.Error(err.Error())
		case err != nil:
			return err
		case report != nil && report.FinalState != loop.StateDone:
			return nil
		}

		cw.Drain(ctx)
		a.printer.Muted("Watching for changes (Ctrl+C to stop)")
		paths, err := cw.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		a.logger.Info("Change detected", slog.Int("files", len(paths)), slog.String("first", paths[0]))
		a.printer.Info(fmt.Sprintf("%d file(s) changed, re-running", len(paths)))
	}
}
