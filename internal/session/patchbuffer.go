// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"lens/internal/model"
)

// PatchBuffer accumulates pending line-range replacements, grouped by
// file, and flushes them deepest-first within each file so an earlier
// patch's line-number shift never invalidates a later one still queued
// for the same file. A failure partway through a flush rolls every
// already-applied file in that flush back to its pre-flush snapshot.
type PatchBuffer struct {
	s       *Session
	pending map[string][]model.Patch // keyed by file path
}

func newPatchBuffer(s *Session) *PatchBuffer {
	return &PatchBuffer{s: s, pending: map[string][]model.Patch{}}
}

// Add queues a patch for later flushing, stamping it with a fresh id if
// the caller left one unset.
func (b *PatchBuffer) Add(p model.Patch) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	b.pending[p.FilePath] = append(b.pending[p.FilePath], p)
}

// Pending returns the number of queued patches.
func (b *PatchBuffer) Pending() int {
	n := 0
	for _, ps := range b.pending {
		n += len(ps)
	}
	return n
}

// Discard clears the buffer without writing anything to disk.
func (b *PatchBuffer) Discard() {
	b.pending = map[string][]model.Patch{}
}

// Flush applies every queued patch, deepest line-range first within each
// file, writing each file atomically (temp file + rename). If any file's
// apply fails, every file already written during this flush is restored
// from its pre-flush snapshot and the buffer is left untouched so the
// caller can retry or discard.
func (b *PatchBuffer) Flush() error {
	type snapshot struct {
		path    string
		content []byte
		existed bool
	}
	var applied []snapshot

	rollback := func() {
		for _, snap := range applied {
			if !snap.existed {
				_ = os.Remove(snap.path)
				continue
			}
			_ = os.WriteFile(snap.path, snap.content, 0o644)
		}
	}

	paths := make([]string, 0, len(b.pending))
	for p := range b.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, relPath := range paths {
		absPath := filepath.Join(b.s.ProjectRoot, relPath)

		before, err := os.ReadFile(absPath)
		existed := err == nil
		if err != nil && !os.IsNotExist(err) {
			rollback()
			return model.NewIOFailure(absPath, err)
		}

		patches := append([]model.Patch(nil), b.pending[relPath]...)
		sort.Slice(patches, func(i, j int) bool { return patches[i].StartLine > patches[j].StartLine })

		newContent, err := applyPatches(string(before), patches)
		if err != nil {
			rollback()
			return model.NewPatchConflict(err.Error())
		}

		if err := writeFileAtomic(absPath, newContent); err != nil {
			rollback()
			return model.NewIOFailure(absPath, err)
		}
		applied = append(applied, snapshot{path: absPath, content: before, existed: existed})
	}

	b.Discard()
	b.s.Invalidate()
	return nil
}

// applyPatches replaces each patch's 1-indexed inclusive [StartLine,
// EndLine] line range with its NewSource, processing patches deepest
// (highest StartLine) first so earlier replacements never shift the line
// numbers a later one was computed against.
func applyPatches(content string, patches []model.Patch) (string, error) {
	lines := strings.Split(content, "\n")
	for _, p := range patches {
		start, end := p.StartLine-1, p.EndLine-1
		if start < 0 || end >= len(lines) || start > end {
			return "", &lineRangeError{patch: p, total: len(lines)}
		}
		replacement := strings.Split(p.NewSource, "\n")
		lines = append(lines[:start], append(replacement, lines[end+1:]...)...)
	}
	return strings.Join(lines, "\n"), nil
}

type lineRangeError struct {
	patch model.Patch
	total int
}

func (e *lineRangeError) Error() string {
	return "patch line range out of bounds for " + e.patch.FilePath
}

func writeFileAtomic(path string, content string) error {
	tmp := path + ".lens.tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
