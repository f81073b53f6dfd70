// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lens/internal/config"
	"lens/internal/metrics"
	"lens/internal/model"
	"lens/internal/normalizer"
	"lens/internal/parser"
	"lens/internal/resolver"
)

// SyncReport summarizes one full or incremental sync.
type SyncReport struct {
	Added    int
	Modified int
	Deleted  int
	Failed   []string
}

// FullSync discovers and parses every file under the project root, runs
// the resolver pipeline, and replaces the graph store's contents wholesale.
func (s *Session) FullSync(ctx context.Context) (*SyncReport, error) {
	start := time.Now()

	results, err := parser.ParseProject(ctx, s.parsers, s.ProjectRoot)
	if err != nil {
		metrics.RecordSync(false, time.Since(start).Seconds())
		return nil, model.NewIOFailure(s.ProjectRoot, err)
	}
	metrics.RecordParse(time.Since(start).Seconds())

	nodes, edges, failed := parser.Flatten(results)

	nodeIDs := make([]string, len(nodes))
	for i, n := range nodes {
		nodeIDs[i] = n.ID
	}
	edges = normalizer.Normalize(nodeIDs, edges)

	nodes, edges = s.runResolvers(nodes, edges)

	fps, err := computeFingerprints(s.ProjectRoot, results)
	if err != nil {
		return nil, model.NewIOFailure(s.ProjectRoot, err)
	}

	_, _, oldFps, _ := s.graphStore.LoadAll()
	added, modified, deleted := diffFingerprints(oldFps, fps)

	if err := s.graphStore.ReplaceAll(nodes, edges, fps); err != nil {
		metrics.RecordSync(false, time.Since(start).Seconds())
		return nil, model.NewIOFailure(s.LensDir, err)
	}
	s.Invalidate()

	if err := config.TouchLastSync(s.LensDir, time.Now()); err != nil {
		return nil, model.NewIOFailure(s.LensDir, err)
	}

	metrics.RecordDiff(added, modified, deleted)
	metrics.RecordSync(true, time.Since(start).Seconds())

	return &SyncReport{Added: added, Modified: modified, Deleted: deleted, Failed: failed}, nil
}

// ReparseFile re-parses a single project-relative file and surgically
// replaces its nodes/edges in the graph store, leaving the rest untouched.
func (s *Session) ReparseFile(ctx context.Context, relPath string) error {
	absPath := filepath.Join(s.ProjectRoot, relPath)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return model.NewIOFailure(absPath, err)
	}

	res, perr := s.parsers.ParseSingle(relPath, content)
	if perr != nil {
		return model.NewSyntaxInvalid(perr.Error())
	}

	nodeIDs := make([]string, len(res.Nodes))
	for i, n := range res.Nodes {
		nodeIDs[i] = n.ID
	}
	edges := normalizer.Normalize(nodeIDs, res.Edges)
	// Resolvers may mint virtual nodes (env vars, infra services, SQL
	// tables) shared across many files; ReplaceFile scopes its delete to
	// this file's own node set, so only the file's own parsed nodes are
	// written here to avoid re-inserting a virtual node another file
	// already owns. The enriched edges (which may point at those virtual
	// ids) are kept; a dangling edge to a not-yet-materialized virtual
	// node is resolved on the next full sync.
	_, edges = s.runResolvers(res.Nodes, edges)

	info, err := os.Stat(absPath)
	if err != nil {
		return model.NewIOFailure(absPath, err)
	}
	fp := model.FileFingerprint{ModTime: info.ModTime().Unix(), Size: info.Size()}

	if err := s.graphStore.ReplaceFile(relPath, res.Nodes, edges, fp); err != nil {
		return model.NewIOFailure(s.LensDir, err)
	}
	s.Invalidate()
	return nil
}

// EnsureSynced diffs the live filesystem fingerprints against the stored
// ones and performs the minimal work needed: per-file reparse for changed
// tracked files, and a full sync when files were added or removed.
func (s *Session) EnsureSynced(ctx context.Context) (*SyncReport, error) {
	_, _, stored, err := s.graphStore.LoadAll()
	if err != nil {
		return nil, model.NewIOFailure(s.LensDir, err)
	}

	files, err := s.parsers.DiscoverFiles(s.ProjectRoot)
	if err != nil {
		return nil, model.NewIOFailure(s.ProjectRoot, err)
	}

	live := make(map[string]model.FileFingerprint, len(files))
	for _, abs := range files {
		rel, rerr := filepath.Rel(s.ProjectRoot, abs)
		if rerr != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		info, serr := os.Stat(abs)
		if serr != nil {
			continue
		}
		live[rel] = model.FileFingerprint{ModTime: info.ModTime().Unix(), Size: info.Size()}
	}

	var changed []string
	structureChanged := false
	for path := range live {
		if _, ok := stored[path]; !ok {
			structureChanged = true
			break
		}
	}
	if !structureChanged {
		for path := range stored {
			if _, ok := live[path]; !ok {
				structureChanged = true
				break
			}
		}
	}
	if structureChanged {
		return s.FullSync(ctx)
	}

	for path, fp := range live {
		if old, ok := stored[path]; !ok || old != fp {
			changed = append(changed, path)
		}
	}
	if len(changed) == 0 {
		return &SyncReport{}, nil
	}

	report := &SyncReport{}
	for _, path := range changed {
		if err := s.ReparseFile(ctx, path); err != nil {
			report.Failed = append(report.Failed, path)
			continue
		}
		report.Modified++
	}
	if err := config.TouchLastSync(s.LensDir, time.Now()); err != nil {
		return report, model.NewIOFailure(s.LensDir, err)
	}
	return report, nil
}

func computeFingerprints(root string, results []parser.FileResult) (map[string]model.FileFingerprint, error) {
	fps := make(map[string]model.FileFingerprint, len(results))
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		rel, err := filepath.Rel(root, res.Path)
		if err != nil {
			rel = res.Path
		}
		rel = filepath.ToSlash(rel)
		info, err := os.Stat(res.Path)
		if err != nil {
			continue
		}
		fps[rel] = model.FileFingerprint{ModTime: info.ModTime().Unix(), Size: info.Size()}
	}
	return fps, nil
}

func diffFingerprints(old, new map[string]model.FileFingerprint) (added, modified, deleted int) {
	for path, fp := range new {
		if oldFp, ok := old[path]; !ok {
			added++
		} else if oldFp != fp {
			modified++
		}
	}
	for path := range old {
		if _, ok := new[path]; !ok {
			deleted++
		}
	}
	return added, modified, deleted
}

// runResolvers executes the full resolver pipeline (API, SQL, env/infra,
// FFI, CI, and an inactive LSP stage) over the normalized edge set,
// discovering ambient project files (Compose, .env, Dockerfiles, CI
// workflows, raw .sql) off disk to feed the resolvers that need them, and
// returns the enriched node and edge sets.
func (s *Session) runResolvers(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge) {
	compose, dotenv, dockerfiles, workflows, sqlFiles := discoverAmbientFiles(s.ProjectRoot)

	stages := []resolver.Resolver{
		resolver.APIResolver{},
		resolver.SQLResolver{SQLFiles: sqlFiles},
		resolver.EnvInfraResolver{ComposeFiles: compose, DotEnvFiles: dotenv, Dockerfiles: dockerfiles},
		resolver.FFIResolver{},
		resolver.CIResolver{Workflows: workflows},
		resolver.LSPResolver{},
	}
	pipeline := resolver.NewPipeline(s.log, stages...)
	start := time.Now()
	outNodes, outEdges := pipeline.Run(nodes, edges)
	metrics.RecordResolver("all", time.Since(start).Seconds())
	return outNodes, outEdges
}

// discoverAmbientFiles walks root for the infrastructure-adjacent files
// the env/infra, CI, and SQL resolvers need but the language parsers never
// touch: Docker Compose documents, .env files, Dockerfiles, GitHub Actions
// workflows, and root-level raw .sql migrations.
func discoverAmbientFiles(root string) (compose, dotenv, dockerfiles, workflows, sqlFiles map[string][]byte) {
	compose = map[string][]byte{}
	dotenv = map[string][]byte{}
	dockerfiles = map[string][]byte{}
	workflows = map[string][]byte{}
	sqlFiles = map[string][]byte{}

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && shouldSkipAmbientDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()
		lower := strings.ToLower(name)

		switch {
		case isComposeFile(lower):
			if b, err := os.ReadFile(path); err == nil {
				compose[rel] = b
			}
		case name == ".env" || strings.HasPrefix(name, ".env."):
			if b, err := os.ReadFile(path); err == nil {
				dotenv[rel] = b
			}
		case strings.HasPrefix(name, "Dockerfile") || strings.HasSuffix(lower, ".dockerfile"):
			if b, err := os.ReadFile(path); err == nil {
				dockerfiles[rel] = b
			}
		case strings.HasPrefix(rel, ".github/workflows/") && (strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")):
			if b, err := os.ReadFile(path); err == nil {
				workflows[rel] = b
			}
		case strings.HasSuffix(lower, ".sql") && !strings.Contains(rel, "/"):
			if b, err := os.ReadFile(path); err == nil {
				sqlFiles[rel] = b
			}
		}
		return nil
	})
	return compose, dotenv, dockerfiles, workflows, sqlFiles
}

func isComposeFile(lower string) bool {
	return lower == "compose.yml" || lower == "compose.yaml" ||
		strings.HasPrefix(lower, "docker-compose") && (strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml"))
}

func shouldSkipAmbientDir(name string) bool {
	switch name {
	case ".git", "node_modules", ".venv", "venv", "__pycache__", ".lens", "dist", "build":
		return true
	}
	return false
}
