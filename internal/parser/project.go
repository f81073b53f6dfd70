// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"lens/internal/model"
)

// defaultSkipDirs are directories never walked when discovering project
// files: VCS metadata, dependency caches, and build output, per spec §6's
// filesystem skip list.
var defaultSkipDirs = map[string]bool{
	"__pycache__": true, ".git": true, ".lens": true, ".venv": true,
	"venv": true, "env": true, "node_modules": true, ".mypy_cache": true,
	".pytest_cache": true, ".ruff_cache": true, "dist": true, "build": true,
	".eggs": true, ".tox": true, "site-packages": true, ".next": true,
	".nuxt": true, ".output": true, "coverage": true, "htmlcov": true,
	".nyc_output": true, "out": true,
}

// skipDirSuffixes are directory name suffixes that mark a virtual-env-like
// directory regardless of its exact name (spec §6).
var skipDirSuffixes = []string{"-env", "-venv", "_env", "_venv"}

func shouldSkipDir(root, path, name string) bool {
	if defaultSkipDirs[name] {
		return true
	}
	for _, suf := range skipDirSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	// A top-level "lib/" is skipped only at the project root; an inner
	// src/lib/ is kept (spec §6).
	if name == "lib" && filepath.Dir(path) == root {
		return true
	}
	return false
}

// Registry dispatches a file path to the LanguageParser claiming its
// extension.
type Registry struct {
	parsers []LanguageParser
	byExt   map[string]LanguageParser
}

// NewRegistry builds a dispatch table from the scripting and browser
// language parsers.
func NewRegistry(parsers ...LanguageParser) *Registry {
	r := &Registry{parsers: parsers, byExt: make(map[string]LanguageParser)}
	for _, p := range parsers {
		for _, ext := range p.FileExtensions() {
			r.byExt[ext] = p
		}
	}
	return r
}

func (r *Registry) forPath(path string) LanguageParser {
	return r.byExt[filepath.Ext(path)]
}

// ParseSingle parses one file's content through the parser claiming its
// extension, without walking the project tree. Returns a RuleViolation-free
// error if no registered parser claims path's extension.
func (r *Registry) ParseSingle(path string, content []byte) (*ParseResult, error) {
	lp := r.forPath(path)
	if lp == nil {
		return nil, fmt.Errorf("no parser claims extension %q", filepath.Ext(path))
	}
	return lp.ParseFile(FileInfo{Path: path, Content: content})
}

// DiscoverFiles walks root and returns every file path claimed by a
// registered parser, skipping VCS/dependency/build directories, in
// deterministic (lexical) order.
func (r *Registry) DiscoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && shouldSkipDir(root, path, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if r.forPath(path) != nil {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FileResult pairs a parsed file's path with its outcome, so a failure on
// one file doesn't lose the association to the rest of the project.
type FileResult struct {
	Path   string
	Result *ParseResult
	Err    error
}

// ParseProject discovers and parses every claimed file under root,
// fanning the per-file work out across a bounded worker pool while
// preserving each file's slot in the returned slice (index i always
// corresponds to files[i]), so callers can deterministically report
// per-file failures without sacrificing concurrency.
func ParseProject(ctx context.Context, r *Registry, root string) ([]FileResult, error) {
	files, err := r.DiscoverFiles(root)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit())

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			content, readErr := os.ReadFile(path)
			if readErr != nil {
				results[i] = FileResult{Path: path, Err: readErr}
				return nil
			}
			relPath := path
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				relPath = filepath.ToSlash(rel)
			}
			lp := r.forPath(path)
			res, parseErr := lp.ParseFile(FileInfo{Path: relPath, Content: content})
			results[i] = FileResult{Path: path, Result: res, Err: parseErr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Flatten merges every successful file result's nodes/edges into one set,
// in file order, and returns the paths whose parse failed alongside it.
func Flatten(results []FileResult) ([]model.Node, []model.Edge, []string) {
	var nodes []model.Node
	var edges []model.Edge
	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Path)
			continue
		}
		if r.Result == nil {
			continue
		}
		nodes = append(nodes, r.Result.Nodes...)
		edges = append(edges, r.Result.Edges...)
	}
	return nodes, edges, failed
}

func workerLimit() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}
