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
	"sort"
	"strings"

	"lens/internal/graph"
	"lens/internal/model"
	"lens/internal/normalizer"
)

const maxCandidates = 5

// ResolveNodeID settles a caller-supplied node id argument against the
// materialized graph: an exact id wins outright; otherwise the id is
// treated as a (possibly partially qualified) suffix and looked up in a
// fresh suffix index built over every known node id, mirroring the
// normalizer's own endpoint rewriting (spec §4.2). A unique suffix match
// resolves silently; a suffix shared by more than one node id fails with
// AmbiguousNodeId and every sharer as a candidate; no match at all fails
// with NodeNotFound and a short list of near-miss ids.
func ResolveNodeID(g *graph.Graph, id string) (string, *model.EngineError) {
	if g.HasNode(id) {
		return id, nil
	}

	ids := make([]string, 0, len(g.Nodes))
	for nid := range g.Nodes {
		ids = append(ids, nid)
	}
	idx := normalizer.BuildSuffixIndex(ids)

	if full, ok := idx.Lookup(id); ok {
		return full, nil
	}
	if idx.Ambiguous(id) {
		return "", model.NewAmbiguousNodeID(id, sharersOfSuffix(ids, id))
	}

	return "", model.NewNodeNotFound(id, nearMatches(ids, id))
}

// sharersOfSuffix returns every node id in ids whose dotted path ends with
// suffix, for the AmbiguousNodeId candidate list.
func sharersOfSuffix(ids []string, suffix string) []string {
	want := "." + suffix
	var out []string
	for _, id := range ids {
		if id == suffix || strings.HasSuffix(id, want) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// nearMatches returns up to maxCandidates node ids that share a dotted
// segment with id, as a best-effort "did you mean" hint for NodeNotFound.
func nearMatches(ids []string, id string) []string {
	last := id
	if i := strings.LastIndex(id, "."); i >= 0 {
		last = id[i+1:]
	}
	var out []string
	for _, cand := range ids {
		if strings.Contains(cand, last) {
			out = append(out, cand)
			if len(out) >= maxCandidates {
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
