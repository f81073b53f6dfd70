// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"lens/internal/lsp"
	"lens/internal/model"
)

// lspClient is the subset of *lsp.Client the resolver depends on, so
// tests can substitute a fake server without a real subprocess.
type lspClient interface {
	Initialize(rootURI string, timeout time.Duration) error
	DidOpen(uri, languageID, text string)
	Definition(uri string, pos lsp.Position, timeout time.Duration) (*lsp.Location, bool, error)
	Shutdown(timeout time.Duration) error
}

// LSPResolver (R6, optional) upgrades inferred call edges to resolved by
// asking a running language server to go-to-definition on the callee
// name's occurrence in the caller's source.
type LSPResolver struct {
	Client      lspClient
	ProjectRoot string
	LanguageID  string
	SettleDelay time.Duration
	CallTimeout time.Duration

	// FileContent supplies a file's current text, keyed by project-
	// relative path, since the resolver does not read the filesystem
	// itself.
	FileContent map[string]string
}

func (LSPResolver) Name() string { return "lsp" }

var dottedTailRe = regexp.MustCompile(`\.([A-Za-z_][A-Za-z0-9_]*)$`)

// Resolve upgrades matching edges in place through the shared backing
// array rather than returning them as new edges, since an upgrade
// replaces an existing record instead of adding one; it always returns
// nil, nil on success.
func (r LSPResolver) Resolve(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge, error) {
	if r.Client == nil {
		return nil, nil, nil
	}
	timeout := r.CallTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	settle := r.SettleDelay
	if settle == 0 {
		settle = 200 * time.Millisecond
	}

	rootURI := "file://" + r.ProjectRoot
	if err := r.Client.Initialize(rootURI, timeout); err != nil {
		return nil, nil, fmt.Errorf("lsp initialize: %w", err)
	}
	defer r.Client.Shutdown(timeout)

	byID := make(map[string]model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	opened := map[string]bool{}

	for i, e := range edges {
		if e.Kind != model.EdgeCalls || e.Confidence != model.ConfidenceInferred {
			continue
		}
		caller, ok := byID[e.FromNode]
		if !ok || caller.FilePath == "" {
			continue
		}
		if !opened[caller.FilePath] {
			uri := fileURI(r.ProjectRoot, caller.FilePath)
			text := r.FileContent[caller.FilePath]
			r.Client.DidOpen(uri, r.LanguageID, text)
			time.Sleep(settle)
			opened[caller.FilePath] = true
		}

		callee := calleeDisplayName(e.ToNode)
		line := findLine(r.FileContent[caller.FilePath], callee)
		if line < 0 {
			continue
		}
		uri := fileURI(r.ProjectRoot, caller.FilePath)
		for _, col := range probeColumns(r.FileContent[caller.FilePath], line, callee, e.Column) {
			loc, ok, err := r.Client.Definition(uri, lsp.Position{Line: line, Character: col}, timeout)
			if err != nil || !ok {
				continue
			}
			targetPath := uriToPath(loc.URI)
			nodeID, external := r.resolveTarget(targetPath, loc.Range.Start.Line)
			if nodeID == "" {
				continue
			}
			upgraded := e
			if external {
				upgraded.Confidence = model.ConfidenceExternal
			} else {
				upgraded.Confidence = model.ConfidenceResolved
				upgraded.ToNode = nodeID
			}
			edges[i] = upgraded
			break
		}
	}

	return nil, nil, nil
}

func calleeDisplayName(toNode string) string {
	if m := dottedTailRe.FindStringSubmatch(toNode); m != nil {
		return m[1]
	}
	return toNode
}

func findLine(content, name string) int {
	if content == "" || name == "" {
		return -1
	}
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(line, name) {
			return i
		}
	}
	return -1
}

// probeColumns builds the prioritized list of columns to try: the
// stored column (if any), the name's first occurrence on the line, then
// column 0.
func probeColumns(content string, line int, name string, storedCol int) []int {
	cols := []int{}
	if storedCol > 0 {
		cols = append(cols, storedCol)
	}
	lines := strings.Split(content, "\n")
	if line >= 0 && line < len(lines) {
		if idx := strings.Index(lines[line], name); idx >= 0 {
			cols = append(cols, idx)
		}
	}
	cols = append(cols, 0)
	return cols
}

func fileURI(root, relPath string) string {
	return "file://" + filepath.Join(root, relPath)
}

func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return u.Path
}

var externalMarkers = []string{"site-packages", "node_modules", "/usr/lib/python", "/usr/local/lib/python"}

// resolveTarget maps a definition location back to a node id by reading
// the target file and extracting the definition name from that line.
// Locations outside the project root (stdlib, site-packages,
// node_modules, scoped @scope/pkg installs) are classified external.
func (r LSPResolver) resolveTarget(targetPath string, line int) (nodeID string, external bool) {
	if !strings.HasPrefix(targetPath, r.ProjectRoot) {
		return externalID(targetPath), true
	}
	for _, marker := range externalMarkers {
		if strings.Contains(targetPath, marker) {
			return externalID(targetPath), true
		}
	}

	rel := strings.TrimPrefix(strings.TrimPrefix(targetPath, r.ProjectRoot), "/")
	lines, err := r.targetLines(rel, targetPath)
	if err != nil {
		return "", false
	}
	if line < 0 || line >= len(lines) {
		return "", false
	}
	name := extractDefinitionName(lines[line])
	if name == "" {
		return "", false
	}
	modulePath := strings.TrimSuffix(rel, filepath.Ext(rel))
	modulePath = strings.ReplaceAll(modulePath, "/", ".")
	return modulePath + "." + name, false
}

// targetLines returns the target file's lines, preferring caller-
// supplied content (keyed by project-relative path) over a real
// filesystem read so the resolver can run against in-memory fixtures
// as well as a live checkout.
func (r LSPResolver) targetLines(rel, absPath string) ([]string, error) {
	if content, ok := r.FileContent[rel]; ok {
		return strings.Split(content, "\n"), nil
	}
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, nil
}

var defNameRe = regexp.MustCompile(`(?:def|function|class)\s+([A-Za-z_][A-Za-z0-9_]*)`)

func extractDefinitionName(line string) string {
	m := defNameRe.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

var scopedPackageRe = regexp.MustCompile(`(@[^/]+/[^/]+)`)

func externalID(targetPath string) string {
	if m := scopedPackageRe.FindStringSubmatch(targetPath); m != nil {
		return "external." + m[1]
	}
	return "external." + filepath.Base(targetPath)
}

var _ Resolver = LSPResolver{}
