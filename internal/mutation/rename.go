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
	"regexp"
	"sort"
	"strings"
	"time"

	"lens/internal/model"
	"lens/internal/session"
)

// Rename changes nodeID's short name to newName everywhere it textually
// appears: the node's own declaration and body (including self-calls),
// and every other node's source that carries a calls/inherits/uses/
// decorates edge to it. Spec §4.7 scopes rename "across the project";
// this is the static, textual analog — every rewrite is a whole-word
// substitution confined to a node's own line range, never a blind
// project-wide find/replace, so an unrelated same-named symbol elsewhere
// in the tree is left untouched.
func Rename(ctx context.Context, s *session.Session, nodeID, newName, reasoning string) model.Result[string] {
	g, err := s.Graph()
	if err != nil {
		return model.Err[string](model.NewIOFailure(s.LensDir, err))
	}
	resolved, eerr := ResolveNodeID(g, nodeID)
	if eerr != nil {
		return model.Err[string](eerr)
	}
	node := g.Nodes[resolved]
	oldShort := node.Name
	if oldShort == "" || newName == "" || oldShort == newName {
		return model.Err[string](model.NewPatchConflict("rename requires a distinct non-empty new name"))
	}

	newID := renamedID(resolved, newName)
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(oldShort) + `\b`)

	touched := map[string]model.Node{resolved: node}
	for _, e := range g.In(resolved, model.EdgeCalls, model.EdgeInherits, model.EdgeUses, model.EdgeDecorates) {
		if caller, ok := g.Nodes[e.FromNode]; ok && !caller.IsVirtual() {
			touched[e.FromNode] = caller
		}
	}

	filePatches := map[string][]model.Patch{}
	for id, n := range touched {
		rewritten := pattern.ReplaceAllString(n.SourceCode, newName)
		if rewritten == n.SourceCode {
			continue
		}
		filePatches[n.FilePath] = append(filePatches[n.FilePath], model.Patch{
			FilePath:  n.FilePath,
			StartLine: n.StartLine,
			EndLine:   n.EndLine,
			NewSource: rewritten,
			NodeID:    id,
		})
	}

	for _, patches := range filePatches {
		for _, p := range patches {
			s.Patches().Add(p)
		}
	}
	if err := s.Patches().Flush(); err != nil {
		return model.Err[string](model.NewPatchConflict(err.Error()))
	}

	files := make([]string, 0, len(filePatches))
	for f := range filePatches {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		if err := s.ReparseFile(ctx, f); err != nil {
			return model.Err[string](model.NewIOFailure(f, err))
		}
	}

	affected := make([]string, 0, len(touched)-1)
	for id := range touched {
		if id != resolved {
			affected = append(affected, id)
		}
	}
	sort.Strings(affected)

	s.History().Append(model.ChangeRecord{
		Timestamp:     time.Now(),
		NodeID:        resolved,
		Action:        model.ActionModified,
		PreSource:     node.SourceCode,
		PreHash:       node.Hash,
		AffectedNodes: affected,
		Reasoning:     reasoning + " (renamed " + oldShort + " -> " + newName + ")",
	})

	return model.Ok(newID).WithAffected(affected)
}

// renamedID replaces the last dotted segment of id (the short name) with
// newName, leaving its qualifying prefix untouched.
func renamedID(id, newName string) string {
	i := strings.LastIndex(id, ".")
	if i < 0 {
		return newName
	}
	return id[:i+1] + newName
}
