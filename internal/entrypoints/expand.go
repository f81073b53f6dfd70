// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package entrypoints

import "lens/internal/model"

// Registry classifies nodes as entry points, combining the declarative
// pattern table with custom predicates and a graph post-pass that expands
// entry status along three relationships the declarative grammar can't see
// on its own: decorator targets, __all__ exports, and class/function nesting.
type Registry struct {
	patterns   []Pattern
	predicates []Predicate
}

// NewRegistry builds a registry from the built-in pattern and predicate
// tables.
func NewRegistry() *Registry {
	return &Registry{patterns: DefaultPatterns(), predicates: DefaultPredicates()}
}

// Category returns the first matching category for n, and whether any
// pattern or predicate matched at all.
func (r *Registry) Category(n model.Node) (string, bool) {
	for _, p := range r.patterns {
		if p.Matches(n) {
			return p.Category, true
		}
	}
	for _, pr := range r.predicates {
		if pr.Match(n) {
			return pr.Category, true
		}
	}
	return "", false
}

// IsEntry reports whether n matches any declarative pattern or predicate,
// ignoring the graph expansions in Expand.
func (r *Registry) IsEntry(n model.Node) bool {
	_, ok := r.Category(n)
	return ok
}

// Classify returns the set of node ids among nodes that the declarative
// table and predicates alone mark as entry points.
func (r *Registry) Classify(nodes []model.Node) map[string]bool {
	out := make(map[string]bool)
	for _, n := range nodes {
		if r.IsEntry(n) {
			out[n.ID] = true
		}
	}
	return out
}

// Expand runs the three graph post-passes over an initial entry set,
// returning the union. It is a fixed-point over each relationship in
// isolation (a single pass per relationship suffices since none of the
// three relationships chain into each other: decoration, __all__ export,
// and nesting are each one hop from a known entry or exporting module).
//
//   - decorates-target: if A decorates B, B is reachable the way a
//     registered callback is, independent of who calls it directly.
//   - __all__-exported: a module-level __all__ list is itself a module
//     block entry (module_block pattern); anything that block's source
//     names becomes an entry, honoring the export contract.
//   - class/nested inheritance: a class's methods, and a function's
//     nested functions/classes, inherit the class's or the outer
//     function's entry status.
func Expand(nodes []model.Node, edges []model.Edge, initial map[string]bool) map[string]bool {
	out := make(map[string]bool, len(initial))
	for id := range initial {
		out[id] = true
	}

	expandDecorates(edges, out)
	expandAllExports(nodes, out)
	expandNesting(nodes, out)

	return out
}

// expandDecorates promotes decoration targets: any node decorated by an
// already-entry node becomes an entry itself (e.g. a router registers a
// handler via a decorator; the handler is reachable through the
// registration, not a direct call edge).
func expandDecorates(edges []model.Edge, out map[string]bool) {
	for _, e := range edges {
		if e.Kind != model.EdgeDecorates {
			continue
		}
		if out[e.FromNode] {
			out[e.ToNode] = true
		}
	}
}

// expandAllExports promotes every name listed in a module's __all__
// declaration to entry status, using the "all_exports" list the parser
// stores in the metadata of the block holding the __all__ assignment.
func expandAllExports(nodes []model.Node, out map[string]bool) {
	for _, n := range nodes {
		if n.Kind != model.KindBlock {
			continue
		}
		if names, ok := n.Metadata["all_exports"]; ok {
			switch list := names.(type) {
			case []string:
				for _, exported := range list {
					out[exported] = true
				}
			case []any: // the list as decoded from the graph store's JSON metadata
				for _, v := range list {
					if exported, ok := v.(string); ok {
						out[exported] = true
					}
				}
			}
		}
	}
}

// expandNesting promotes a class's methods and a function's nested
// functions/classes to the entry status of their enclosing node, using the
// qualified_name prefix relationship rather than an edge (nesting is a
// structural property, not a resolved edge).
func expandNesting(nodes []model.Node, out map[string]bool) {
	changed := true
	for changed {
		changed = false
		for _, n := range nodes {
			if out[n.ID] {
				continue
			}
			parent, ok := enclosingID(n, nodes)
			if ok && out[parent] {
				out[n.ID] = true
				changed = true
			}
		}
	}
}

// enclosingID finds the nearest enclosing node's id for n by trimming the
// last dotted segment of its qualified name and checking membership, so a
// nested function's parent is the innermost class or function, not the
// module.
func enclosingID(n model.Node, nodes []model.Node) (string, bool) {
	qn := n.QualifiedName
	if qn == "" {
		qn = n.ID
	}
	idx := lastDot(qn)
	if idx < 0 {
		return "", false
	}
	parent := qn[:idx]
	for _, candidate := range nodes {
		if candidate.ID == parent || candidate.QualifiedName == parent {
			return candidate.ID, true
		}
	}
	return "", false
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
