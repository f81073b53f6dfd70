// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package arch implements architecture and quality analysis (C10): class
// and project metrics, directory-based component cohesion, the
// persisted architecture-fitness rule engine, and the aggregate
// vibecheck score. Every computation here is read-only over an already
// materialized graph; nothing in this package mutates project state.
package arch

import (
	"sort"
	"strings"

	"lens/internal/graph"
	"lens/internal/model"
)

// ClassMetrics summarizes one class node's shape.
type ClassMetrics struct {
	ClassID         string
	MethodCount     int
	PublicMethods   int
	PrivateMethods  int
	Lines           int
	DependencyCount int
	InternalCalls   int
	PrefixHistogram map[string]int
	PercentileRank  float64 // 0-100, over method count among all classes
}

// ProjectMetrics aggregates method-count statistics across every class in
// the project.
type ProjectMetrics struct {
	TotalClasses int
	Avg          float64
	Median       float64
	Min          int
	Max          int
	P90          float64
	P95          float64
}

// ComputeClassMetrics computes ClassMetrics for every class node in g.
// It is computed on demand from the graph by each caller; results are not
// stored at sync time.
func ComputeClassMetrics(g *graph.Graph) map[string]ClassMetrics {
	classes := classNodes(g)
	counts := make([]int, 0, len(classes))
	raw := make(map[string]ClassMetrics, len(classes))

	for _, cls := range classes {
		methods := methodsOf(g, cls.ID)
		cm := ClassMetrics{
			ClassID:         cls.ID,
			MethodCount:     len(methods),
			Lines:           cls.EndLine - cls.StartLine + 1,
			PrefixHistogram: map[string]int{},
		}
		internalIDs := make(map[string]bool, len(methods)+1)
		internalIDs[cls.ID] = true
		for _, m := range methods {
			internalIDs[m.ID] = true
		}
		for _, m := range methods {
			if strings.HasPrefix(m.Name, "_") {
				cm.PrivateMethods++
			} else {
				cm.PublicMethods++
			}
			cm.PrefixHistogram[methodPrefix(m.Name)]++

			for _, e := range g.Out(m.ID, model.EdgeCalls, model.EdgeUses) {
				if internalIDs[e.ToNode] {
					cm.InternalCalls++
				} else {
					cm.DependencyCount++
				}
			}
		}
		raw[cls.ID] = cm
		counts = append(counts, cm.MethodCount)
	}

	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)
	for id, cm := range raw {
		cm.PercentileRank = percentileRankOf(sorted, cm.MethodCount)
		raw[id] = cm
	}
	return raw
}

// ComputeProjectMetrics aggregates method-count statistics over every
// class in classMetrics.
func ComputeProjectMetrics(classMetrics map[string]ClassMetrics) ProjectMetrics {
	counts := make([]int, 0, len(classMetrics))
	for _, cm := range classMetrics {
		counts = append(counts, cm.MethodCount)
	}
	sort.Ints(counts)

	pm := ProjectMetrics{TotalClasses: len(counts)}
	if len(counts) == 0 {
		return pm
	}
	pm.Min = counts[0]
	pm.Max = counts[len(counts)-1]

	sum := 0
	for _, c := range counts {
		sum += c
	}
	pm.Avg = float64(sum) / float64(len(counts))
	pm.Median = percentile(counts, 50)
	pm.P90 = percentile(counts, 90)
	pm.P95 = percentile(counts, 95)
	return pm
}

func classNodes(g *graph.Graph) []model.Node {
	var out []model.Node
	for _, n := range g.Nodes {
		if n.Kind == model.KindClass {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// methodsOf returns the immediate methods of a class: nodes whose id is a
// single dotted segment below classID, i.e. no further "." beyond the
// class's own prefix.
func methodsOf(g *graph.Graph, classID string) []model.Node {
	prefix := classID + "."
	var out []model.Node
	for _, n := range g.Nodes {
		if n.Kind != model.KindMethod || !strings.HasPrefix(n.ID, prefix) {
			continue
		}
		rest := strings.TrimPrefix(n.ID, prefix)
		if strings.Contains(rest, ".") {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func methodPrefix(name string) string {
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i]
	}
	return name
}

func percentile(sorted []int, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return float64(sorted[0])
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[hi]-sorted[lo])
}

func percentileRankOf(sorted []int, value int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	below := sort.SearchInts(sorted, value)
	return float64(below) / float64(len(sorted)) * 100
}
