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

// SearchMatch is one node matched by Search, tagged with which field the
// query string was found in so a caller can rank or explain results.
type SearchMatch struct {
	Node      model.Node
	MatchedOn string // "name", "qualified_name", "file_path", or "id"
}

// Search performs a case-insensitive substring scan over every node's id,
// name, qualified name, and file path, returning matches sorted by node id
// for deterministic output. An empty query matches nothing.
func (g *Graph) Search(query string) []SearchMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matches []SearchMatch
	for _, id := range ids {
		n := g.Nodes[id]
		switch {
		case strings.Contains(strings.ToLower(n.Name), q):
			matches = append(matches, SearchMatch{Node: n, MatchedOn: "name"})
		case strings.Contains(strings.ToLower(n.QualifiedName), q):
			matches = append(matches, SearchMatch{Node: n, MatchedOn: "qualified_name"})
		case strings.Contains(strings.ToLower(n.FilePath), q):
			matches = append(matches, SearchMatch{Node: n, MatchedOn: "file_path"})
		case strings.Contains(strings.ToLower(id), q):
			matches = append(matches, SearchMatch{Node: n, MatchedOn: "id"})
		}
	}
	return matches
}
