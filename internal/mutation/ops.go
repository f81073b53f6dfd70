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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lens/internal/arch"
	"lens/internal/graph"
	"lens/internal/model"
	"lens/internal/parser"
	"lens/internal/session"
)

// AddPosition selects where AddNode inserts the new source: right after an
// anchor node, or at the end of the target file.
type AddPosition string

const (
	PositionAfterAnchor AddPosition = "after_anchor"
	PositionEndOfFile   AddPosition = "end_of_file"
)

// AddResult reports where a newly inserted fragment landed, since it has
// no node id until the next reparse assigns one.
type AddResult struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// loadedContext bundles the graph plus the C10 rule/metric inputs
// computeWarnings needs, loaded once per operation.
type loadedContext struct {
	g            *graph.Graph
	rules        []arch.Rule
	classMetrics map[string]arch.ClassMetrics
}

func load(s *session.Session) (*loadedContext, error) {
	g, err := s.Graph()
	if err != nil {
		return nil, err
	}
	rules, err := arch.LoadRules(s.LensDir)
	if err != nil {
		return nil, err
	}
	return &loadedContext{g: g, rules: rules, classMetrics: arch.ComputeClassMetrics(g)}, nil
}

// ValidateChange is the dry-run counterpart of UpdateNode: it resolves the
// node, syntactically validates newSource, computes the impact zone and
// proactive warnings, and returns without ever writing to disk or
// invalidating the graph (Testable property 7).
func ValidateChange(s *session.Session, nodeID, newSource string) model.Result[graph.ImpactZone] {
	lc, err := load(s)
	if err != nil {
		return model.Err[graph.ImpactZone](model.NewIOFailure(s.LensDir, err))
	}
	resolved, eerr := ResolveNodeID(lc.g, nodeID)
	if eerr != nil {
		return model.Err[graph.ImpactZone](eerr)
	}
	node := lc.g.Nodes[resolved]

	if err := parser.ValidateSyntax(node.FilePath, []byte(newSource)); err != nil {
		return model.Err[graph.ImpactZone](model.NewSyntaxInvalid(err.Error()))
	}

	zone := lc.g.ImpactZone(resolved, 2)
	warnings := computeWarnings(lc.g, lc.rules, lc.classMetrics, node, newSource)
	return model.Ok(zone).WithWarnings(warnings).WithAffected(affectedIDs(zone))
}

// UpdateNode replaces nodeID's full source_code with newSource, queues and
// flushes the single-file patch, re-parses the touched file, and records
// the change in history. Syntax is validated before anything is written.
func UpdateNode(ctx context.Context, s *session.Session, nodeID, newSource, reasoning string) model.Result[model.Node] {
	lc, err := load(s)
	if err != nil {
		return model.Err[model.Node](model.NewIOFailure(s.LensDir, err))
	}
	resolved, eerr := ResolveNodeID(lc.g, nodeID)
	if eerr != nil {
		return model.Err[model.Node](eerr)
	}
	node := lc.g.Nodes[resolved]

	if err := parser.ValidateSyntax(node.FilePath, []byte(newSource)); err != nil {
		return model.Err[model.Node](model.NewSyntaxInvalid(err.Error()))
	}

	zone := lc.g.ImpactZone(resolved, 2)
	warnings := computeWarnings(lc.g, lc.rules, lc.classMetrics, node, newSource)

	s.Patches().Add(model.Patch{
		FilePath:  node.FilePath,
		StartLine: node.StartLine,
		EndLine:   node.EndLine,
		NewSource: newSource,
		NodeID:    resolved,
	})
	if err := s.Patches().Flush(); err != nil {
		return model.Err[model.Node](model.NewPatchConflict(err.Error()))
	}
	if err := s.ReparseFile(ctx, node.FilePath); err != nil {
		return model.Err[model.Node](model.NewIOFailure(node.FilePath, err))
	}

	s.History().Append(model.ChangeRecord{
		Timestamp:     time.Now(),
		NodeID:        resolved,
		Action:        model.ActionModified,
		PreSource:     node.SourceCode,
		PostSource:    newSource,
		PreHash:       node.Hash,
		PostHash:      model.ComputeHash(newSource),
		AffectedNodes: affectedIDs(zone),
		Reasoning:     reasoning,
	})

	updated, err := s.Graph()
	if err != nil {
		return model.Err[model.Node](model.NewIOFailure(s.LensDir, err))
	}
	return model.Ok(updated.Nodes[resolved]).WithWarnings(warnings).WithAffected(affectedIDs(zone))
}

// PatchNode finds oldFragment in nodeID's current source, requires it to
// occur exactly once (Testable property 8), and replaces it with
// newFragment before delegating to UpdateNode's validate+apply path.
func PatchNode(ctx context.Context, s *session.Session, nodeID, oldFragment, newFragment, reasoning string) model.Result[model.Node] {
	g, err := s.Graph()
	if err != nil {
		return model.Err[model.Node](model.NewIOFailure(s.LensDir, err))
	}
	resolved, eerr := ResolveNodeID(g, nodeID)
	if eerr != nil {
		return model.Err[model.Node](eerr)
	}
	node := g.Nodes[resolved]

	count := strings.Count(node.SourceCode, oldFragment)
	if count != 1 {
		return model.Err[model.Node](model.NewPatchConflict(
			fmt.Sprintf("fragment occurs %d times in %s, expected exactly 1", count, resolved)))
	}
	newSource := strings.Replace(node.SourceCode, oldFragment, newFragment, 1)
	return UpdateNode(ctx, s, resolved, newSource, reasoning)
}

// AddNode inserts source either immediately after an anchor node's last
// line or at the end of a file, then re-parses that file so the new
// fragment is assigned a node id on the next graph read.
func AddNode(ctx context.Context, s *session.Session, filePath, anchorNodeID, source string) model.Result[AddResult] {
	g, err := s.Graph()
	if err != nil {
		return model.Err[AddResult](model.NewIOFailure(s.LensDir, err))
	}

	targetFile := filePath
	insertAfter := -1 // -1 means end of file
	if anchorNodeID != "" {
		resolved, eerr := ResolveNodeID(g, anchorNodeID)
		if eerr != nil {
			return model.Err[AddResult](eerr)
		}
		anchor := g.Nodes[resolved]
		targetFile = anchor.FilePath
		insertAfter = anchor.EndLine
	}

	absPath := filepath.Join(s.ProjectRoot, targetFile)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return model.Err[AddResult](model.NewIOFailure(absPath, err))
	}

	lines := strings.Split(string(content), "\n")
	at := insertAfter
	if at < 0 || at > len(lines) {
		at = len(lines)
	}
	newLines := strings.Split(strings.TrimRight(source, "\n"), "\n")

	out := make([]string, 0, len(lines)+len(newLines))
	out = append(out, lines[:at]...)
	out = append(out, newLines...)
	out = append(out, lines[at:]...)

	if err := writeFileAtomic(absPath, strings.Join(out, "\n")); err != nil {
		return model.Err[AddResult](model.NewIOFailure(absPath, err))
	}
	if err := s.ReparseFile(ctx, targetFile); err != nil {
		return model.Err[AddResult](model.NewIOFailure(targetFile, err))
	}

	return model.Ok(AddResult{FilePath: targetFile, StartLine: at + 1, EndLine: at + len(newLines)})
}

// DeleteNode removes nodeID's line range from its file and re-parses it.
// Any edge left pointing at the deleted id becomes a dangling external on
// the next graph read. The ids of the node's two-hop impact zone, computed
// before the delete, are returned as the result's affected list.
func DeleteNode(ctx context.Context, s *session.Session, nodeID, reasoning string) model.Result[string] {
	g, err := s.Graph()
	if err != nil {
		return model.Err[string](model.NewIOFailure(s.LensDir, err))
	}
	resolved, eerr := ResolveNodeID(g, nodeID)
	if eerr != nil {
		return model.Err[string](eerr)
	}
	node := g.Nodes[resolved]
	zone := g.ImpactZone(resolved, 2)

	absPath := filepath.Join(s.ProjectRoot, node.FilePath)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return model.Err[string](model.NewIOFailure(absPath, err))
	}
	lines := strings.Split(string(content), "\n")
	start, end := node.StartLine-1, node.EndLine-1
	if start < 0 || end >= len(lines) || start > end {
		return model.Err[string](model.NewPatchConflict("node line range out of bounds for " + node.FilePath))
	}
	out := append(append([]string{}, lines[:start]...), lines[end+1:]...)

	if err := writeFileAtomic(absPath, strings.Join(out, "\n")); err != nil {
		return model.Err[string](model.NewIOFailure(absPath, err))
	}
	if err := s.ReparseFile(ctx, node.FilePath); err != nil {
		return model.Err[string](model.NewIOFailure(node.FilePath, err))
	}

	s.History().Append(model.ChangeRecord{
		Timestamp:     time.Now(),
		NodeID:        resolved,
		Action:        model.ActionDeleted,
		PreSource:     node.SourceCode,
		PreHash:       node.Hash,
		AffectedNodes: affectedIDs(zone),
		Reasoning:     reasoning,
	})

	return model.Ok(resolved).WithAffected(affectedIDs(zone))
}

// affectedIDs flattens an impact zone's direct and indirect predecessors
// into one id list for the response envelope's Affected field.
func affectedIDs(zone graph.ImpactZone) []string {
	ids := make([]string, 0, len(zone.Direct)+len(zone.Indirect))
	for _, d := range zone.Direct {
		ids = append(ids, d.NodeID)
	}
	ids = append(ids, zone.Indirect...)
	return ids
}

// writeFileAtomic writes content to path via a temp file plus rename,
// mirroring the patch buffer's own atomic-write helper (session package)
// for the node-granularity add/delete paths that don't go through it.
func writeFileAtomic(path, content string) error {
	tmp := path + ".lens.tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
