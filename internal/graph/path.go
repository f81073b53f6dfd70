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

// ShortestPath returns the shortest directed node-id path from 'from' to
// 'to' via breadth-first search over any edge kind, or nil if no path
// exists. When from == to it returns the one-element path [from].
func (g *Graph) ShortestPath(from, to string) []string {
	if from == to {
		return []string{from}
	}

	visited := map[string]bool{from: true}
	prev := map[string]string{}
	queue := []string{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.out[cur] {
			if visited[e.ToNode] {
				continue
			}
			visited[e.ToNode] = true
			prev[e.ToNode] = cur
			if e.ToNode == to {
				return reconstructPath(prev, from, to)
			}
			queue = append(queue, e.ToNode)
		}
	}
	return nil
}

func reconstructPath(prev map[string]string, from, to string) []string {
	path := []string{to}
	cur := to
	for cur != from {
		cur = prev[cur]
		path = append(path, cur)
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
