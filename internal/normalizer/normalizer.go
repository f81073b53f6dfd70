// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package normalizer

import (
	"strings"

	"lens/internal/model"
)

// ExternalRoots is the default configurable set of leading path segments
// classified as external (standard-library or common third-party package
// roots) rather than internal-but-unresolved. Callers may replace this with
// a project-specific set.
var ExternalRoots = map[string]bool{
	// scripting-language stdlib/common packages
	"os": true, "sys": true, "re": true, "json": true, "typing": true,
	"collections": true, "itertools": true, "functools": true, "abc": true,
	"asyncio": true, "logging": true, "dataclasses": true, "pathlib": true,
	"datetime": true, "unittest": true, "pytest": true, "numpy": true,
	"pandas": true, "requests": true, "flask": true, "fastapi": true,
	"django": true, "sqlalchemy": true, "pydantic": true,
	// browser-language stdlib/common packages
	"react": true, "react-dom": true, "next": true, "vue": true,
	"express": true, "axios": true, "lodash": true, "node": true,
}

// Normalize rewrites edge endpoints that are absent from nodeIDs using the
// suffix index and returns the rewritten edges in a new slice; the input
// slice is not modified. It also stamps
// external confidence on edges whose endpoint's leading dotted segment is a
// known external root. Normalize is idempotent: running it twice over its
// own output produces the same edges (testable property 4), because an
// edge endpoint already present in nodeIDs, or already rewritten to one, is
// left untouched on the second pass.
func Normalize(nodeIDs []string, edges []model.Edge) []model.Edge {
	known := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		known[id] = true
	}
	idx := BuildSuffixIndex(nodeIDs)

	out := make([]model.Edge, len(edges))
	for i, e := range edges {
		e.FromNode = rewriteEndpoint(e.FromNode, known, idx)
		to, conf := normalizeTarget(e.ToNode, known, idx, e.Confidence)
		e.ToNode = to
		e.Confidence = conf
		out[i] = e
	}
	return out
}

// rewriteEndpoint rewrites a single endpoint if it is unknown and the
// suffix index has a unique hit; otherwise it is returned unchanged.
func rewriteEndpoint(endpoint string, known map[string]bool, idx *SuffixIndex) string {
	if known[endpoint] {
		return endpoint
	}
	if full, ok := idx.Lookup(endpoint); ok {
		return full
	}
	return endpoint
}

// normalizeTarget rewrites an edge's to_node and adjusts confidence: a
// unique suffix hit rewrites the target without touching confidence; an
// external root downgrades/marks confidence to external; anything else
// (ambiguous or simply unknown) leaves the target and confidence as-is.
func normalizeTarget(target string, known map[string]bool, idx *SuffixIndex, conf model.Confidence) (string, model.Confidence) {
	if known[target] {
		return target, conf
	}
	if full, ok := idx.Lookup(target); ok {
		return full, conf
	}
	if IsExternal(target) {
		return target, model.ConfidenceExternal
	}
	return target, conf
}

// IsExternal reports whether a dotted target's leading segment matches a
// known standard-library or common third-party package root.
func IsExternal(target string) bool {
	root := target
	if i := strings.IndexByte(target, '.'); i >= 0 {
		root = target[:i]
	}
	if i := strings.IndexByte(root, '/'); i >= 0 {
		root = root[:i]
	}
	return ExternalRoots[root]
}
