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
	"strings"
	"time"

	"lens/internal/graph"
	"lens/internal/model"
)

// CoverageData is opt-in runtime coverage data written by an external
// test run (.lens/coverage.json). A nil CoverageData, or one older than
// the freshness window, falls back to the static "has a test caller"
// approximation.
type CoverageData struct {
	WrittenAt    time.Time
	CoveredLines int
	TotalLines   int
}

const coverageFreshness = 5 * time.Minute

// Vibecheck is the aggregate 0-100 project quality score and its
// component breakdown.
type Vibecheck struct {
	Score                int
	Grade                string
	TestCoverage         float64 // 0-25
	DeadCodePenalty      float64 // 0 to -20
	CircularImportsPen   float64 // 0 to -15
	ArchCompliancePen    float64 // 0 to -15
	DocumentationScore   float64 // 0-10
	GraphConfidenceScore float64 // 0-15
}

// ComputeVibecheck combines test coverage, dead code, circular imports,
// architecture-rule compliance, documentation coverage, and graph
// confidence over internal-only edges into one aggregate score.
func ComputeVibecheck(g *graph.Graph, entryIDs []string, rules []Rule, classMetrics map[string]ClassMetrics, cov *CoverageData, now time.Time) Vibecheck {
	v := Vibecheck{}
	v.TestCoverage = testCoverageScore(g, cov, now)
	v.DeadCodePenalty = deadCodePenalty(g, entryIDs)
	v.CircularImportsPen = circularImportsPenalty(g)
	v.ArchCompliancePen = archCompliancePenalty(g, classMetrics, rules)
	v.DocumentationScore = documentationScore(g)
	v.GraphConfidenceScore = graphConfidenceScore(g)

	total := v.TestCoverage + v.DeadCodePenalty + v.CircularImportsPen + v.ArchCompliancePen +
		v.DocumentationScore + v.GraphConfidenceScore + 65 // base: arch-rule/dead-code/cycle penalties are negative deltas off a neutral baseline
	v.Score = clampScore(total)
	v.Grade = letterGrade(v.Score)
	return v
}

func testCoverageScore(g *graph.Graph, cov *CoverageData, now time.Time) float64 {
	if cov != nil && cov.TotalLines > 0 && now.Sub(cov.WrittenAt) <= coverageFreshness {
		return 25 * float64(cov.CoveredLines) / float64(cov.TotalLines)
	}
	var total, withCaller int
	for id, n := range g.Nodes {
		if n.Kind != model.KindFunction && n.Kind != model.KindMethod {
			continue
		}
		total++
		if hasTestCaller(g, id) {
			withCaller++
		}
	}
	if total == 0 {
		return 25
	}
	return 25 * float64(withCaller) / float64(total)
}

func deadCodePenalty(g *graph.Graph, entryIDs []string) float64 {
	var codeIDs []string
	for id, n := range g.Nodes {
		if n.IsCode() {
			codeIDs = append(codeIDs, id)
		}
	}
	if len(codeIDs) == 0 {
		return 0
	}
	dead := g.DeadCode(entryIDs)
	pct := float64(len(dead)) / float64(len(codeIDs)) * 100
	penalty := -pct
	if penalty < -20 {
		penalty = -20
	}
	return penalty
}

func circularImportsPenalty(g *graph.Graph) float64 {
	cycles := g.CircularImports()
	penalty := -5 * float64(len(cycles))
	if penalty < -15 {
		penalty = -15
	}
	return penalty
}

func archCompliancePenalty(g *graph.Graph, classMetrics map[string]ClassMetrics, rules []Rule) float64 {
	violations := Check(g, classMetrics, rules)
	penalty := -3 * float64(len(violations))
	if penalty < -15 {
		penalty = -15
	}
	return penalty
}

func documentationScore(g *graph.Graph) float64 {
	var total, documented int
	for _, n := range g.Nodes {
		if !n.IsCode() || n.Kind == model.KindBlock {
			continue
		}
		total++
		if strings.TrimSpace(n.Docstring) != "" {
			documented++
		}
	}
	if total == 0 {
		return 10
	}
	return 10 * float64(documented) / float64(total)
}

func graphConfidenceScore(g *graph.Graph) float64 {
	var total, resolved int
	for _, e := range g.AllEdges() {
		if e.Confidence == model.ConfidenceExternal {
			continue
		}
		total++
		if e.Confidence == model.ConfidenceResolved {
			resolved++
		}
	}
	if total == 0 {
		return 15
	}
	return 15 * float64(resolved) / float64(total)
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v + 0.5)
}

func letterGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
