// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package model

// EdgeKind enumerates the relationship types between two node ids.
type EdgeKind string

const (
	EdgeCalls       EdgeKind = "calls"
	EdgeImports     EdgeKind = "imports"
	EdgeInherits    EdgeKind = "inherits"
	EdgeUses        EdgeKind = "uses"
	EdgeDecorates   EdgeKind = "decorates"
	EdgeReadsTable  EdgeKind = "reads_table"
	EdgeWritesTable EdgeKind = "writes_table"
	EdgeMigrates    EdgeKind = "migrates"
	EdgeCallsAPI    EdgeKind = "calls_api"
	EdgeCallsNative EdgeKind = "calls_native"
	EdgeDependsOn   EdgeKind = "depends_on"
	EdgeUsesEnv     EdgeKind = "uses_env"
)

// Confidence is the provenance quality of an edge.
type Confidence string

const (
	ConfidenceResolved   Confidence = "resolved"
	ConfidenceInferred   Confidence = "inferred"
	ConfidenceUnresolved Confidence = "unresolved"
	ConfidenceExternal   Confidence = "external"
)

// rank gives confidence a total order so callers can assert monotonic
// improvement (invariant 5: confidence never regresses within a generation).
var confidenceRank = map[Confidence]int{
	ConfidenceUnresolved: 0,
	ConfidenceInferred:   1,
	ConfidenceExternal:   1,
	ConfidenceResolved:   2,
}

// Improves reports whether moving from c to other is a monotonic improvement
// (or a no-op), never a regression.
func (c Confidence) Improves(other Confidence) bool {
	return confidenceRank[other] >= confidenceRank[c]
}

// EdgeSource records whether an edge was discovered statically, observed at
// runtime, or both (spec §3: Edge.source).
type EdgeSource string

const (
	SourceStatic  EdgeSource = "static"
	SourceRuntime EdgeSource = "runtime"
	SourceBoth    EdgeSource = "both"
)

// Edge is a typed directed relationship between two node ids. ToNode may
// reference a node absent from the store ("dangling external").
type Edge struct {
	ID              string         `json:"id"`
	FromNode        string         `json:"from_node"`
	ToNode          string         `json:"to_node"`
	Kind            EdgeKind       `json:"kind"`
	LineNumber      int            `json:"line_number,omitempty"`
	Column          int            `json:"column,omitempty"`
	Confidence      Confidence     `json:"confidence"`
	Source          EdgeSource     `json:"source"`
	UntrackedReason string         `json:"untracked_reason,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Key returns a stable (from, to, kind) identity used for edge deduplication
// across resolver passes, independent of the opaque ID field.
func (e Edge) Key() string {
	return string(e.Kind) + "\x00" + e.FromNode + "\x00" + e.ToNode
}
