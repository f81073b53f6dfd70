// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package arch

import (
	"path"
	"sort"

	"lens/internal/graph"
)

// Component is a directory-based cluster of code nodes: every file under
// the same directory belongs to the same component.
type Component struct {
	Dir       string
	NodeCount int
	Cohesion  float64  // internal edges / (internal + external) edges
	PublicAPI []string // node ids with an incoming edge from another component
	Internal  []string // node ids with no external incoming edge
}

// ComputeComponents clusters every code node in g by the directory of its
// file path and scores each cluster's cohesion.
func ComputeComponents(g *graph.Graph) map[string]Component {
	dirOf := make(map[string]string, len(g.Nodes))
	for id, n := range g.Nodes {
		if !n.IsCode() {
			continue
		}
		dirOf[id] = path.Dir(n.FilePath)
	}

	internalEdges := map[string]int{}
	externalEdges := map[string]int{}
	hasExternalIncoming := map[string]bool{}
	nodeCount := map[string]int{}
	for _, dir := range dirOf {
		nodeCount[dir]++
	}

	for _, e := range g.AllEdges() {
		fromDir, fromOK := dirOf[e.FromNode]
		toDir, toOK := dirOf[e.ToNode]
		if !fromOK || !toOK {
			continue
		}
		if fromDir == toDir {
			internalEdges[fromDir]++
		} else {
			externalEdges[fromDir]++
			hasExternalIncoming[e.ToNode] = true
		}
	}

	components := make(map[string]Component, len(nodeCount))
	for dir, count := range nodeCount {
		internal := internalEdges[dir]
		external := externalEdges[dir]
		cohesion := 0.0
		if internal+external > 0 {
			cohesion = float64(internal) / float64(internal+external)
		}
		components[dir] = Component{Dir: dir, NodeCount: count, Cohesion: cohesion}
	}

	for id, dir := range dirOf {
		c := components[dir]
		if hasExternalIncoming[id] {
			c.PublicAPI = append(c.PublicAPI, id)
		} else {
			c.Internal = append(c.Internal, id)
		}
		components[dir] = c
	}
	for dir, c := range components {
		sort.Strings(c.PublicAPI)
		sort.Strings(c.Internal)
		components[dir] = c
	}
	return components
}
