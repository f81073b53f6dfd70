// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"fmt"
	"regexp"
	"strings"

	"lens/internal/arch"
	"lens/internal/graph"
	"lens/internal/model"
)

const (
	highImpactThreshold     = 10
	moderateImpactThreshold = 5
	minSecretLiteralLen     = 8
)

var secretAssignment = regexp.MustCompile(`(?i)\b(password|api_key|apikey|access_key|token|secret)\b\s*[:=]\s*['"\x60]([^'"\x60]{8,})['"\x60]`)

var ioMarkers = []string{
	"open(", "requests.", "urllib.", "http.client", "client.get(", "client.post(",
	"cursor.", "subprocess.", "socket.", "fetch(", "axios.",
}

// computeWarnings runs every proactive check from spec §4.7 against the
// node being mutated and its proposed new source, ahead of an apply. Every
// check is advisory: none of them block update_node or patch_node, only
// validate_change's dry run surfaces them without also applying.
func computeWarnings(g *graph.Graph, rules []arch.Rule, classMetrics map[string]arch.ClassMetrics, node model.Node, newSource string) []model.Warning {
	var warnings []model.Warning
	warnings = append(warnings, highImpactWarning(g, node.ID)...)
	warnings = append(warnings, noTestsWarning(g, node)...)
	warnings = append(warnings, circularDependencyWarning(g, node)...)
	warnings = append(warnings, hardcodedSecretWarnings(node.ID, newSource)...)
	warnings = append(warnings, ioWithoutHandlingWarning(node.ID, newSource)...)
	warnings = append(warnings, ruleViolationWarnings(g, rules, classMetrics, node.ID)...)
	return warnings
}

// highImpactWarning counts node's direct predecessors (callers,
// inheritors, users) and warns at two severities per spec §4.7.
func highImpactWarning(g *graph.Graph, nodeID string) []model.Warning {
	zone := g.ImpactZone(nodeID, 1)
	n := len(zone.Direct)
	switch {
	case n > highImpactThreshold:
		return []model.Warning{{
			Kind:    model.WarnHighImpact,
			NodeID:  nodeID,
			Message: fmt.Sprintf("HIGH IMPACT: %d direct callers/users depend on this node", n),
		}}
	case n > moderateImpactThreshold:
		return []model.Warning{{
			Kind:    model.WarnHighImpact,
			NodeID:  nodeID,
			Message: fmt.Sprintf("moderate impact: %d direct callers/users depend on this node", n),
		}}
	default:
		return nil
	}
}

// noTestsWarning reports when nodeID has no incoming edge from a
// test-shaped caller and no sibling test_<name> node in the store.
func noTestsWarning(g *graph.Graph, node model.Node) []model.Warning {
	if hasTestCaller(g, node.ID) || hasConventionalTestSibling(g, node) {
		return nil
	}
	return []model.Warning{{
		Kind:    model.WarnNoTests,
		NodeID:  node.ID,
		Message: "no test exercises this node",
	}}
}

func hasTestCaller(g *graph.Graph, id string) bool {
	for _, e := range g.In(id) {
		caller, ok := g.Nodes[e.FromNode]
		if !ok {
			continue
		}
		if isTestShaped(caller) {
			return true
		}
	}
	return false
}

func isTestShaped(n model.Node) bool {
	return strings.HasPrefix(n.Name, "test_") || strings.HasPrefix(n.Name, "Test") ||
		strings.Contains(n.FilePath, "tests/") || strings.Contains(n.FilePath, "test/") ||
		strings.HasSuffix(n.FilePath, "_test.go") || strings.HasSuffix(n.FilePath, ".test.ts") ||
		strings.HasSuffix(n.FilePath, ".test.tsx")
}

// hasConventionalTestSibling looks for a store-wide test_<short-name>
// function/method, independent of whether it carries a resolved edge back
// to node (dynamic dispatch, e.g. pytest auto-discovery, often leaves the
// call unresolved).
func hasConventionalTestSibling(g *graph.Graph, node model.Node) bool {
	short := node.Name
	want := "test_" + short
	for _, n := range g.Nodes {
		if n.Name == want {
			return true
		}
	}
	return false
}

// circularDependencyWarning warns when node's enclosing module belongs to
// a detected import cycle.
func circularDependencyWarning(g *graph.Graph, node model.Node) []model.Warning {
	moduleID := enclosingModuleID(g, node)
	if moduleID == "" {
		return nil
	}
	for _, cycle := range g.CircularImports() {
		for _, id := range cycle {
			if id == moduleID {
				return []model.Warning{{
					Kind:    model.WarnCircularDep,
					NodeID:  node.ID,
					Message: fmt.Sprintf("module %s participates in an import cycle: %s", moduleID, strings.Join(cycle, " -> ")),
				}}
			}
		}
	}
	return nil
}

// enclosingModuleID finds the module node that owns node's file, by
// filepath rather than id-prefix (virtual and block ids don't nest the
// same way a module/class/function path does).
func enclosingModuleID(g *graph.Graph, node model.Node) string {
	if node.Kind == model.KindModule {
		return node.ID
	}
	for id, n := range g.Nodes {
		if n.Kind == model.KindModule && n.FilePath == node.FilePath {
			return id
		}
	}
	return ""
}

// hardcodedSecretWarnings scans newSource for an assignment of a
// password/api_key/token/secret-shaped name to a string literal at or
// beyond the minimum suspicious length.
func hardcodedSecretWarnings(nodeID, newSource string) []model.Warning {
	m := secretAssignment.FindStringSubmatch(newSource)
	if m == nil || len(m[2]) < minSecretLiteralLen {
		return nil
	}
	return []model.Warning{{
		Kind:    model.WarnHardcodedSecret,
		NodeID:  nodeID,
		Message: fmt.Sprintf("HARDCODED SECRET: literal assigned to %q-shaped name", m[1]),
	}}
}

// ioWithoutHandlingWarning flags IO-marker substrings (file, HTTP, DB
// cursor, subprocess, socket) with no accompanying try/except (or
// try/catch) pair anywhere in the proposed source.
func ioWithoutHandlingWarning(nodeID, newSource string) []model.Warning {
	hasIO := false
	for _, marker := range ioMarkers {
		if strings.Contains(newSource, marker) {
			hasIO = true
			break
		}
	}
	if !hasIO {
		return nil
	}
	hasTry := strings.Contains(newSource, "try:") || strings.Contains(newSource, "try {")
	hasHandler := strings.Contains(newSource, "except") || strings.Contains(newSource, "catch")
	if hasTry && hasHandler {
		return nil
	}
	return []model.Warning{{
		Kind:    model.WarnIOWithoutHandler,
		NodeID:  nodeID,
		Message: "performs IO without a visible try/except (or try/catch) around it",
	}}
}

// ruleViolationWarnings surfaces any already-detected architecture-rule
// violation attributed to nodeID, reusing the C10 rule engine rather than
// re-deriving violation logic here.
func ruleViolationWarnings(g *graph.Graph, rules []arch.Rule, classMetrics map[string]arch.ClassMetrics, nodeID string) []model.Warning {
	if len(rules) == 0 {
		return nil
	}
	var warnings []model.Warning
	for _, v := range arch.Check(g, classMetrics, rules) {
		if v.NodeID != nodeID {
			continue
		}
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnRuleViolation,
			NodeID:  nodeID,
			Message: fmt.Sprintf("rule %s: %s", v.RuleID, v.Reason),
		})
	}
	return warnings
}
