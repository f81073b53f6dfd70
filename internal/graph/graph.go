// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package graph holds the in-memory directed graph (C6) materialized from
// a synced project: impact zone, dependency tree, dead-code reachability,
// shortest path, circular-import detection, and the file-oriented
// structure view. The graph is rebuilt from the store on every
// materialization and never persisted itself.
package graph

import "lens/internal/model"

// adjacency is a from-node -> list of outgoing edges index.
type adjacency map[string][]model.Edge

// Graph is an in-memory directed multigraph over the synced node/edge set.
type Graph struct {
	Nodes map[string]model.Node

	out adjacency // outgoing edges, keyed by FromNode
	in  adjacency // incoming edges, keyed by ToNode
}

// Build materializes a Graph from a flat node/edge list, as loaded from the
// graph store.
func Build(nodes []model.Node, edges []model.Edge) *Graph {
	g := &Graph{
		Nodes: make(map[string]model.Node, len(nodes)),
		out:   make(adjacency),
		in:    make(adjacency),
	}
	for _, n := range nodes {
		g.Nodes[n.ID] = n
	}
	for _, e := range edges {
		g.out[e.FromNode] = append(g.out[e.FromNode], e)
		g.in[e.ToNode] = append(g.in[e.ToNode], e)
	}
	return g
}

// Out returns the outgoing edges from id, optionally filtered to kinds.
func (g *Graph) Out(id string, kinds ...model.EdgeKind) []model.Edge {
	return filterKinds(g.out[id], kinds)
}

// In returns the incoming edges to id, optionally filtered to kinds.
func (g *Graph) In(id string, kinds ...model.EdgeKind) []model.Edge {
	return filterKinds(g.in[id], kinds)
}

func filterKinds(edges []model.Edge, kinds []model.EdgeKind) []model.Edge {
	if len(kinds) == 0 {
		return edges
	}
	want := make(map[model.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	out := make([]model.Edge, 0, len(edges))
	for _, e := range edges {
		if want[e.Kind] {
			out = append(out, e)
		}
	}
	return out
}

// HasNode reports whether id is present in the materialized node set.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.Nodes[id]
	return ok
}

// AllEdges returns every edge in the graph, in no particular order. Used
// by callers that need the flat edge set rather than a per-node adjacency
// lookup (entry-point graph post-passes, architecture rule checks).
func (g *Graph) AllEdges() []model.Edge {
	edges := make([]model.Edge, 0, len(g.out))
	for _, es := range g.out {
		edges = append(edges, es...)
	}
	return edges
}
