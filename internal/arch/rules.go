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
	"strings"

	"lens/internal/graph"
	"lens/internal/model"
)

// RuleType enumerates the architecture-fitness rule kinds persisted in
// arch_rules.json.
type RuleType string

const (
	RuleNoDependency      RuleType = "no_dependency"
	RuleMaxClassMethods   RuleType = "max_class_methods"
	RuleRequiredTest      RuleType = "required_test"
	RuleNoCircularImports RuleType = "no_circular_imports"
)

// Rule is one opaque-id architecture-fitness rule.
type Rule struct {
	ID          string   `json:"id"`
	Type        RuleType `json:"type"`
	Description string   `json:"description,omitempty"`

	// no_dependency
	FromGlob string `json:"from_glob,omitempty"`
	ToGlob   string `json:"to_glob,omitempty"`

	// max_class_methods
	Threshold int `json:"threshold,omitempty"`

	// required_test: glob of function/method names that must carry an
	// incoming edge from a test node.
	NameGlob string `json:"name_glob,omitempty"`
}

// Violation is one rule's failure against a specific node.
type Violation struct {
	RuleID string
	NodeID string
	Reason string
}

// Check runs every rule in rules against g (and its precomputed class
// metrics) and returns every violation found.
func Check(g *graph.Graph, classMetrics map[string]ClassMetrics, rules []Rule) []Violation {
	var violations []Violation
	for _, r := range rules {
		switch r.Type {
		case RuleNoDependency:
			violations = append(violations, checkNoDependency(g, r)...)
		case RuleMaxClassMethods:
			violations = append(violations, checkMaxClassMethods(classMetrics, r)...)
		case RuleRequiredTest:
			violations = append(violations, checkRequiredTest(g, r)...)
		case RuleNoCircularImports:
			violations = append(violations, checkNoCircularImports(g, r)...)
		}
	}
	return violations
}

// globMatch matches a dotted id against a glob pattern. A "/" in the
// pattern is folded to "." so callers can write path-style patterns
// against dotted node ids.
func globMatch(pattern, id string) bool {
	pattern = strings.ReplaceAll(pattern, "/", ".")
	ok, err := path.Match(pattern, id)
	return err == nil && ok
}

func checkNoDependency(g *graph.Graph, r Rule) []Violation {
	var out []Violation
	for _, e := range g.AllEdges() {
		if e.Kind != model.EdgeImports && e.Kind != model.EdgeCalls && e.Kind != model.EdgeUses {
			continue
		}
		if globMatch(r.FromGlob, e.FromNode) && globMatch(r.ToGlob, e.ToNode) {
			out = append(out, Violation{
				RuleID: r.ID,
				NodeID: e.FromNode,
				Reason: e.FromNode + " depends on " + e.ToNode + ", forbidden by " + r.FromGlob + " -> " + r.ToGlob,
			})
		}
	}
	return out
}

func checkMaxClassMethods(classMetrics map[string]ClassMetrics, r Rule) []Violation {
	var out []Violation
	for id, cm := range classMetrics {
		if cm.MethodCount > r.Threshold {
			out = append(out, Violation{
				RuleID: r.ID,
				NodeID: id,
				Reason: "has more than the allowed method count",
			})
		}
	}
	return out
}

func checkRequiredTest(g *graph.Graph, r Rule) []Violation {
	var out []Violation
	for id, n := range g.Nodes {
		if n.Kind != model.KindFunction && n.Kind != model.KindMethod {
			continue
		}
		if !globMatch(r.NameGlob, n.Name) {
			continue
		}
		if !hasTestCaller(g, id) {
			out = append(out, Violation{RuleID: r.ID, NodeID: id, Reason: "no incoming edge from a test"})
		}
	}
	return out
}

func hasTestCaller(g *graph.Graph, id string) bool {
	for _, e := range g.In(id) {
		caller, ok := g.Nodes[e.FromNode]
		if !ok {
			continue
		}
		if strings.HasPrefix(caller.Name, "test_") || strings.HasPrefix(caller.Name, "Test") ||
			strings.Contains(caller.FilePath, "tests/") || strings.Contains(caller.FilePath, "test/") {
			return true
		}
	}
	return false
}

func checkNoCircularImports(g *graph.Graph, r Rule) []Violation {
	var out []Violation
	for _, cycle := range g.CircularImports() {
		if len(cycle) == 0 {
			continue
		}
		out = append(out, Violation{
			RuleID: r.ID,
			NodeID: cycle[0],
			Reason: "participates in an import cycle: " + strings.Join(cycle, " -> "),
		})
	}
	return out
}
