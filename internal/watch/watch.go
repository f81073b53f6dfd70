// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package watch implements the ambient filesystem watcher that feeds a
// session's ensure_synced incremental path: an optional supplement to C8
// (spec §9) for callers that want the graph kept warm without polling.
// Not part of the core engine — the core is push-driven (explicit sync
// calls); this package is the external collaborator that decides when to
// push.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var skipDirs = map[string]bool{
	"__pycache__": true, ".git": true, ".lens": true, ".venv": true,
	"venv": true, "env": true, "node_modules": true, ".mypy_cache": true,
	".pytest_cache": true, ".ruff_cache": true, "dist": true, "build": true,
	".tox": true, ".next": true, ".nuxt": true, "out": true,
}

// Watcher recursively watches a project tree and invokes a settle
// callback (ordinarily session.EnsureSynced) after a debounce window
// following the last filesystem event, coalescing bursts of saves (an
// editor writing several files in one commit, a branch checkout) into a
// single sync rather than one per event.
type Watcher struct {
	root     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	log      *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Watcher rooted at root. It does not start watching until
// Start is called.
func New(root string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w := &Watcher{
		root:     root,
		debounce: debounce,
		fsw:      fsw,
		log:      slog.Default().With("component", "watch"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers every non-skipped directory under root with the
// underlying fsnotify watcher; fsnotify watches directories non-recursively,
// so each one needs its own Add call.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && skipDirs[name] {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.log.Warn("cannot watch directory", "path", path, "error", addErr)
		}
		return nil
	})
}

// Start runs the event loop in a background goroutine, calling onSettle
// once the debounce window has elapsed since the last event. Start
// returns immediately; call Stop to shut the watcher down.
func (w *Watcher) Start(ctx context.Context, onSettle func(context.Context) error) {
	go w.run(ctx, onSettle)
}

func (w *Watcher) run(ctx context.Context, onSettle func(context.Context) error) {
	defer close(w.doneCh)
	defer w.fsw.Close()

	settled := make(chan struct{})
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.onEvent(event, settled)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		case <-settled:
			if err := onSettle(ctx); err != nil {
				w.log.Warn("sync after filesystem change failed", "error", err)
			}
		}
	}
}

func (w *Watcher) onEvent(event fsnotify.Event, settled chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addTree(event.Name)
		}
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case settled <- struct{}{}:
		default:
		}
	})
}

// Stop ends the watcher's event loop and waits for it to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}
