// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package session wires the parser, normalizer, resolver, storage, and
// entry-point layers together behind one project handle (C8). A Session
// owns the three SQLite stores under a project's .lens/ sidecar and
// lazily materializes the in-memory graph from them on first access.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lens/internal/config"
	"lens/internal/entrypoints"
	"lens/internal/graph"
	"lens/internal/model"
	"lens/internal/parser"
	"lens/internal/storage"
)

const sidecarName = ".lens"

// sidecarDir returns the .lens directory path for a project root.
func sidecarDir(root string) string {
	return filepath.Join(root, sidecarName)
}

// IsInitialized reports whether root already carries a .lens sidecar.
func IsInitialized(root string) bool {
	info, err := os.Stat(sidecarDir(root))
	return err == nil && info.IsDir()
}

// Session is a handle on one project: its sidecar stores, the parser and
// entry-point registries, and the lazily built in-memory graph.
type Session struct {
	ProjectRoot string
	LensDir     string

	log *slog.Logger

	graphStore   *storage.GraphStore
	historyStore *storage.HistoryStore
	cacheStore   *storage.ResolveCacheStore

	parsers     *parser.Registry
	entrypoints *entrypoints.Registry

	g *graph.Graph

	patches *PatchBuffer
}

// Init creates a new .lens sidecar under root and opens a Session on it.
// It fails if root is already initialized.
func Init(root string) (*Session, error) {
	if IsInitialized(root) {
		return nil, model.NewRuleViolation("already_initialized", "project already has a .lens sidecar")
	}
	dir := sidecarDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, model.NewIOFailure(dir, err)
	}
	if err := config.Save(dir, &config.Config{}); err != nil {
		return nil, model.NewIOFailure(dir, err)
	}
	return Open(root)
}

// Open opens a Session on an already-initialized project root.
func Open(root string) (*Session, error) {
	if !IsInitialized(root) {
		return nil, model.NewNotInitialized(root)
	}
	dir := sidecarDir(root)

	gs, err := storage.NewGraphStore(filepath.Join(dir, "graph.db"))
	if err != nil {
		return nil, model.NewIOFailure(dir, err)
	}
	hs, err := storage.NewHistoryStore(filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, model.NewIOFailure(dir, err)
	}
	cs, err := storage.NewResolveCacheStore(filepath.Join(dir, "resolve_cache.db"))
	if err != nil {
		return nil, model.NewIOFailure(dir, err)
	}

	s := &Session{
		ProjectRoot:  root,
		LensDir:      dir,
		log:          slog.Default().With("project_root", root),
		graphStore:   gs,
		historyStore: hs,
		cacheStore:   cs,
		parsers:      parser.NewRegistry(parser.NewScriptingParser(), parser.NewBrowserParser()),
		entrypoints:  entrypoints.NewRegistry(),
	}
	s.patches = newPatchBuffer(s)
	return s, nil
}

// Graph lazily materializes and caches the in-memory graph from the graph
// store. Call Invalidate after any mutation to force a rebuild on next
// access.
func (s *Session) Graph() (*graph.Graph, error) {
	if s.g != nil {
		return s.g, nil
	}
	nodes, edges, _, err := s.graphStore.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	s.g = graph.Build(nodes, edges)
	return s.g, nil
}

// Invalidate drops the cached in-memory graph, forcing the next Graph call
// to rebuild it from the store.
func (s *Session) Invalidate() {
	s.g = nil
}

// History exposes the append-only change log.
func (s *Session) History() *storage.HistoryStore {
	return s.historyStore
}

// Patches exposes the session's patch buffer (C9 support).
func (s *Session) Patches() *PatchBuffer {
	return s.patches
}
