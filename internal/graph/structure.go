// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"sort"
	"strings"

	"lens/internal/model"
)

// StructureMode selects how much detail Structure returns per file.
type StructureMode string

const (
	ModeSummary StructureMode = "summary"
	ModeCompact StructureMode = "compact"
	ModeFull    StructureMode = "full"
)

// FileEntry is one file's worth of grouped code nodes in the structure
// view: classes (each with their methods nested), then bare functions.
type FileEntry struct {
	Path        string
	ClassCount  int
	FuncCount   int
	MethodCount int
	Classes     []ClassEntry `json:"classes,omitempty"`
	Functions   []model.Node `json:"functions,omitempty"`
}

// ClassEntry is a class node with its methods nested under it.
type ClassEntry struct {
	Node    model.Node
	Methods []model.Node
}

// StructureResult is the paginated file-oriented tree Structure returns.
type StructureResult struct {
	Files      []FileEntry
	TotalFiles int
	Offset     int
	Limit      int
}

// Structure groups every code node by file path, applies path_prefix
// filtering, sorts file paths, paginates by offset/limit, and renders each
// file according to mode: summary returns per-file counts only, compact
// returns only aggregate totals (no per-file detail), full returns the
// complete nested class/function/method tree.
func (g *Graph) Structure(mode StructureMode, limit, offset int, pathPrefix string) StructureResult {
	byFile := make(map[string][]model.Node)
	for _, n := range g.Nodes {
		if !n.IsCode() || n.Kind == model.KindBlock {
			continue
		}
		if pathPrefix != "" && !strings.HasPrefix(n.FilePath, pathPrefix) {
			continue
		}
		byFile[n.FilePath] = append(byFile[n.FilePath], n)
	}

	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	result := StructureResult{TotalFiles: len(paths), Offset: offset, Limit: limit}
	if mode == ModeCompact {
		return result
	}

	end := len(paths)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	if offset > end {
		offset = end
	}

	for _, p := range paths[offset:end] {
		result.Files = append(result.Files, buildFileEntry(p, byFile[p], mode))
	}
	return result
}

func buildFileEntry(path string, nodes []model.Node, mode StructureMode) FileEntry {
	entry := FileEntry{Path: path}
	classMethods := make(map[string][]model.Node)
	var classes []model.Node
	var functions []model.Node

	for _, n := range nodes {
		switch n.Kind {
		case model.KindClass:
			classes = append(classes, n)
			entry.ClassCount++
		case model.KindMethod:
			owner := owningClassID(n.ID)
			classMethods[owner] = append(classMethods[owner], n)
			entry.MethodCount++
		case model.KindFunction:
			functions = append(functions, n)
			entry.FuncCount++
		}
	}

	if mode != ModeFull {
		return entry
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	for _, c := range classes {
		methods := classMethods[c.ID]
		sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
		entry.Classes = append(entry.Classes, ClassEntry{Node: c, Methods: methods})
	}
	sort.Slice(functions, func(i, j int) bool { return functions[i].Name < functions[j].Name })
	entry.Functions = functions
	return entry
}

// owningClassID trims a method id's last dotted segment to find its
// enclosing class id.
func owningClassID(methodID string) string {
	idx := strings.LastIndexByte(methodID, '.')
	if idx < 0 {
		return methodID
	}
	return methodID[:idx]
}
