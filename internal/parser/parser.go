// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package parser implements the parser plane (C3): language-specific
// tree-sitter visitors that turn source files into raw nodes and edges,
// plus the project-wide walk that fans files out across both parsers.
package parser

import "lens/internal/model"

// FileInfo describes one source file queued for parsing.
type FileInfo struct {
	Path    string
	Content []byte
}

// ParseResult is the raw output of parsing a single file: nodes and edges
// still in parser-local, not-yet-normalized form (dotted names that may be
// only partially qualified).
type ParseResult struct {
	Nodes []model.Node
	Edges []model.Edge
}

// LanguageParser is the shared contract every language-plane parser
// implements.
type LanguageParser interface {
	// ParseFile parses a single file's content and returns its raw nodes
	// and edges.
	ParseFile(file FileInfo) (*ParseResult, error)

	// FileExtensions lists the file extensions (including the leading dot)
	// this parser claims.
	FileExtensions() []string

	// ResolveName converts a raw, possibly partially-qualified dotted name
	// observed in source into the best locally-known candidate id, using
	// only per-file context (full cross-file resolution is the
	// normalizer's job).
	ResolveName(raw string) (string, bool)
}

// EdgeResolver is an optional capability: a parser that can also emit
// edges requiring a second pass once every file's nodes are known (e.g.
// cross-class inheritance lookups within the same language plane).
type EdgeResolver interface {
	ResolveEdges(nodes []model.Node) []model.Edge
}

// moduleIDForFile derives a module node id from a file path by stripping
// its extension and replacing path separators with dots, mirroring the
// dotted-module-path convention scripting-language imports use.
func moduleIDForFile(path string, exts []string) string {
	trimmed := path
	for _, ext := range exts {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			trimmed = path[:len(path)-len(ext)]
			break
		}
	}
	out := make([]byte, 0, len(trimmed))
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c == '/' {
			out = append(out, '.')
		} else {
			out = append(out, c)
		}
	}
	return string(out)
}
