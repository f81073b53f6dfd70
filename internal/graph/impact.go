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

import "lens/internal/model"

// DirectPredecessor is one direct caller/inheritor/user of an impacted node,
// separated by the edge kind that connects it.
type DirectPredecessor struct {
	NodeID string
	Kind   model.EdgeKind
}

// ImpactZone is the result of a reverse-reachability query rooted at a node:
// its direct predecessors by edge kind, every indirect predecessor up to
// the requested depth, any incoming edge left unresolved, and the total
// affected count.
type ImpactZone struct {
	NodeID            string
	Direct            []DirectPredecessor
	Indirect          []string
	UntrackedWarnings []string
	TotalAffected     int
}

// ImpactZone computes the reverse-reachability set of id truncated at
// depth hops (testable property 5: impact_zone(n, depth=k) equals the set
// of ancestors of n in the reverse graph truncated at distance k).
func (g *Graph) ImpactZone(id string, depth int) ImpactZone {
	zone := ImpactZone{NodeID: id}
	if depth <= 0 {
		return zone
	}

	visited := map[string]bool{id: true}
	indirectSeen := map[string]bool{}
	frontier := []string{id}

	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		for _, cur := range frontier {
			for _, e := range g.in[cur] {
				if e.Confidence == model.ConfidenceUnresolved {
					zone.UntrackedWarnings = append(zone.UntrackedWarnings, e.FromNode)
				}
				if visited[e.FromNode] {
					continue
				}
				visited[e.FromNode] = true
				if d == 1 {
					zone.Direct = append(zone.Direct, DirectPredecessor{NodeID: e.FromNode, Kind: e.Kind})
				} else if !indirectSeen[e.FromNode] {
					indirectSeen[e.FromNode] = true
					zone.Indirect = append(zone.Indirect, e.FromNode)
				}
				next = append(next, e.FromNode)
			}
		}
		frontier = next
	}

	zone.TotalAffected = len(zone.Direct) + len(zone.Indirect)
	return zone
}
