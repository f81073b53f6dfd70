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

// CircularImports returns every simple cycle of length >= 2 in the
// subgraph induced by imports edges, each as an ordered node-id slice
// starting and ending implicitly at the same node (the start node is not
// repeated at the end).
//
// Cycles are enumerated with Johnson's algorithm restricted to the
// imports-only adjacency: for each start node in id order, DFS the
// subgraph of nodes >= start, blocking and unblocking vertices to avoid
// revisiting the same cycle rooted at an earlier start.
func (g *Graph) CircularImports() [][]string {
	sub := importSubgraph(g)
	order := sortedKeys(sub)

	var cycles [][]string
	for i, start := range order {
		restricted := restrictTo(sub, order[i:])
		blocked := map[string]bool{}
		blockMap := map[string]map[string]bool{}
		var stack []string
		findCycles(start, start, restricted, blocked, blockMap, &stack, &cycles)
	}
	return cycles
}

func importSubgraph(g *Graph) map[string][]string {
	sub := make(map[string][]string)
	for from, edges := range g.out {
		for _, e := range edges {
			if e.Kind != model.EdgeImports {
				continue
			}
			sub[from] = append(sub[from], e.ToNode)
			if _, ok := sub[e.ToNode]; !ok {
				sub[e.ToNode] = nil
			}
		}
	}
	return sub
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// simple insertion sort keeps this dependency-free and the set is small
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func restrictTo(sub map[string][]string, allowed []string) map[string][]string {
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}
	out := make(map[string][]string, len(allowed))
	for from, tos := range sub {
		if !allow[from] {
			continue
		}
		for _, to := range tos {
			if allow[to] {
				out[from] = append(out[from], to)
			}
		}
	}
	return out
}

// findCycles is a direct simple-cycle DFS (Johnson's blocking scheme) over
// the restricted subgraph rooted at start, reporting every cycle that
// returns to start.
func findCycles(start, cur string, sub map[string][]string, blocked map[string]bool, blockMap map[string]map[string]bool, stack *[]string, cycles *[][]string) bool {
	*stack = append(*stack, cur)
	blocked[cur] = true

	found := false
	for _, next := range sub[cur] {
		if next == start {
			if len(*stack) >= 2 {
				cycle := make([]string, len(*stack))
				copy(cycle, *stack)
				*cycles = append(*cycles, cycle)
			}
			found = true
		} else if !blocked[next] {
			if findCycles(start, next, sub, blocked, blockMap, stack, cycles) {
				found = true
			}
		}
	}

	if found {
		unblock(cur, blocked, blockMap)
	} else {
		for _, next := range sub[cur] {
			if blockMap[next] == nil {
				blockMap[next] = map[string]bool{}
			}
			blockMap[next][cur] = true
		}
	}

	*stack = (*stack)[:len(*stack)-1]
	return found
}

func unblock(node string, blocked map[string]bool, blockMap map[string]map[string]bool) {
	blocked[node] = false
	for b := range blockMap[node] {
		delete(blockMap[node], b)
		if blocked[b] {
			unblock(b, blocked, blockMap)
		}
	}
}
