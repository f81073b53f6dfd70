// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lens/internal/contract"
	"lens/internal/model"
	"lens/internal/parser"
	"lens/internal/session"
)

// BatchUpdate is one node's proposed new source within a batch.
type BatchUpdate struct {
	NodeID    string
	NewSource string
}

// TestRunner re-runs the project's test suite after a batch has been
// applied and before it is considered final; a non-nil error triggers a
// full rollback of every file the batch touched. Test-running subprocess
// glue is an external collaborator (spec §1); Batch only defines the hook.
type TestRunner func(ctx context.Context) error

// Batch validates and applies every update atomically: any single syntax
// or size failure aborts before anything is written, and if testRerun is
// supplied and returns an error after the batch lands, every touched file
// is restored to its pre-batch content and re-parsed.
func Batch(ctx context.Context, s *session.Session, updates []BatchUpdate, testRerun TestRunner, reasoning string) model.Result[model.Diff] {
	if len(updates) == 0 {
		return model.Ok(model.Diff{})
	}

	g, err := s.Graph()
	if err != nil {
		return model.Err[model.Diff](model.NewIOFailure(s.LensDir, err))
	}

	sources := make([]string, len(updates))
	for i, u := range updates {
		sources[i] = u.NewSource
	}
	if r := contract.ValidateBatchSize(sources); !r.OK {
		return model.Err[model.Diff](model.NewRuleViolation("batch_size", r.Message))
	}

	type resolvedUpdate struct {
		id   string
		node model.Node
		src  string
	}
	resolved := make([]resolvedUpdate, 0, len(updates))
	for _, u := range updates {
		id, eerr := ResolveNodeID(g, u.NodeID)
		if eerr != nil {
			return model.Err[model.Diff](eerr)
		}
		node := g.Nodes[id]
		if err := parser.ValidateSyntax(node.FilePath, []byte(u.NewSource)); err != nil {
			return model.Err[model.Diff](model.NewSyntaxInvalid(node.FilePath + ": " + err.Error()))
		}
		resolved = append(resolved, resolvedUpdate{id: id, node: node, src: u.NewSource})
	}

	// Snapshot every touched file's full content before anything is
	// written, so a post-apply test failure can restore it byte-for-byte
	// regardless of how the patch buffer shifted its line numbers.
	touchedFiles := map[string]bool{}
	for _, ru := range resolved {
		touchedFiles[ru.node.FilePath] = true
	}
	snapshots := map[string][]byte{}
	for f := range touchedFiles {
		abs := filepath.Join(s.ProjectRoot, f)
		content, err := os.ReadFile(abs)
		if err != nil {
			return model.Err[model.Diff](model.NewIOFailure(abs, err))
		}
		snapshots[f] = content
	}

	for _, ru := range resolved {
		s.Patches().Add(model.Patch{
			FilePath:  ru.node.FilePath,
			StartLine: ru.node.StartLine,
			EndLine:   ru.node.EndLine,
			NewSource: ru.src,
			NodeID:    ru.id,
		})
	}
	if err := s.Patches().Flush(); err != nil {
		return model.Err[model.Diff](model.NewPatchConflict(err.Error()))
	}

	files := make([]string, 0, len(touchedFiles))
	for f := range touchedFiles {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		if err := s.ReparseFile(ctx, f); err != nil {
			return model.Err[model.Diff](model.NewIOFailure(f, err))
		}
	}

	if testRerun != nil {
		if err := testRerun(ctx); err != nil {
			restoreSnapshots(s.ProjectRoot, snapshots)
			for _, f := range files {
				_ = s.ReparseFile(ctx, f)
			}
			return model.Err[model.Diff](model.NewRuleViolation("batch_test_rerun", err.Error()))
		}
	}

	modified := make([]string, 0, len(resolved))
	for _, ru := range resolved {
		modified = append(modified, ru.id)
		s.History().Append(model.ChangeRecord{
			Timestamp:  time.Now(),
			NodeID:     ru.id,
			Action:     model.ActionModified,
			PreSource:  ru.node.SourceCode,
			PostSource: ru.src,
			PreHash:    ru.node.Hash,
			PostHash:   model.ComputeHash(ru.src),
			Reasoning:  reasoning,
		})
	}
	sort.Strings(modified)

	return model.Ok(model.Diff{Modified: modified}).WithAffected(modified)
}

// restoreSnapshots writes every file back to its pre-batch byte content,
// best-effort: a failed restore on one file does not stop the others.
func restoreSnapshots(root string, snapshots map[string][]byte) {
	for f, content := range snapshots {
		abs := filepath.Join(root, f)
		_ = writeFileAtomic(abs, string(content))
	}
}
