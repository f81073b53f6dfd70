// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package resolver implements the resolver plane (C5): six independent
// enrichers that run sequentially over the normalized node/edge set,
// each emitting additional virtual nodes and edges specific to one
// cross-cutting concern (HTTP APIs, SQL/ORM usage, environment and
// infrastructure config, native/FFI bridges, CI workflows, and an
// optional language-server deep-resolution pass).
package resolver

import (
	"log/slog"

	"lens/internal/model"
)

// Resolver is one independent enricher. It consumes the full node and
// edge set as currently known (including any earlier resolver's output)
// and returns nodes/edges to append.
type Resolver interface {
	Name() string
	Resolve(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge, error)
}

// Pipeline runs a fixed ordered list of resolvers. A single resolver's
// failure is logged and skipped; the pipeline always continues to the
// next stage so one bad mapper cannot block enrichment entirely.
type Pipeline struct {
	stages []Resolver
	logger *slog.Logger
}

// NewPipeline builds a pipeline over stages, run in the given order.
func NewPipeline(logger *slog.Logger, stages ...Resolver) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Run executes every stage in order, accumulating nodes/edges so later
// stages see earlier stages' output, and returns the full enriched sets.
func (p *Pipeline) Run(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge) {
	for _, stage := range p.stages {
		newNodes, newEdges, err := stage.Resolve(nodes, edges)
		if err != nil {
			p.logger.Warn("resolver.stage_failed", "resolver", stage.Name(), "error", err)
			continue
		}
		nodes = append(nodes, newNodes...)
		edges = append(edges, newEdges...)
	}
	return nodes, edges
}

// edgeSeen is a small helper resolvers share to dedupe emitted edges by
// (from, to, kind) within a single Resolve call.
type edgeSeen map[string]bool

func (s edgeSeen) claim(e model.Edge) bool {
	k := e.Key()
	if s[k] {
		return false
	}
	s[k] = true
	return true
}
