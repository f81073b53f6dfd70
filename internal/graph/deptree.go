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

// DependencyNode is one node in the nested successor tree.
type DependencyNode struct {
	NodeID   string
	Kind     model.EdgeKind
	Children []DependencyNode
	Cycle    bool // true if this node closes a cycle back to an ancestor
}

// DependencyTree builds the nested tree of id's successors up to maxDepth,
// breaking any cycle back to a node already on the current path rather
// than recursing forever.
func (g *Graph) DependencyTree(id string, maxDepth int) DependencyNode {
	root := DependencyNode{NodeID: id}
	ancestors := map[string]bool{id: true}
	root.Children = g.children(id, maxDepth, ancestors)
	return root
}

func (g *Graph) children(id string, depthLeft int, ancestors map[string]bool) []DependencyNode {
	if depthLeft <= 0 {
		return nil
	}
	edges := g.out[id]
	out := make([]DependencyNode, 0, len(edges))
	for _, e := range edges {
		if ancestors[e.ToNode] {
			out = append(out, DependencyNode{NodeID: e.ToNode, Kind: e.Kind, Cycle: true})
			continue
		}
		ancestors[e.ToNode] = true
		child := DependencyNode{
			NodeID:   e.ToNode,
			Kind:     e.Kind,
			Children: g.children(e.ToNode, depthLeft-1, ancestors),
		}
		delete(ancestors, e.ToNode)
		out = append(out, child)
	}
	return out
}
