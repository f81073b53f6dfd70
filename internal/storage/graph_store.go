// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"

	"lens/internal/model"
)

// GraphStore persists nodes, edges, and the session fingerprint map to
// graph.db.
type GraphStore struct {
	path string
}

// NewGraphStore opens (creating if absent) the graph store at path and
// ensures its schema exists.
func NewGraphStore(path string) (*GraphStore, error) {
	s := &GraphStore{path: path}
	db, err := openWAL(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := ensureGraphSchema(db); err != nil {
		return nil, err
	}
	return s, nil
}

func ensureGraphSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			qualified_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			source_code TEXT NOT NULL,
			docstring TEXT NOT NULL DEFAULT '',
			signature TEXT NOT NULL DEFAULT '',
			hash TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_file_path ON nodes(file_path);`,
		`CREATE TABLE IF NOT EXISTS edges (
			id TEXT PRIMARY KEY,
			from_node TEXT NOT NULL,
			to_node TEXT NOT NULL,
			kind TEXT NOT NULL,
			line_number INTEGER NOT NULL DEFAULT 0,
			column_number INTEGER NOT NULL DEFAULT 0,
			confidence TEXT NOT NULL,
			source TEXT NOT NULL,
			untracked_reason TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node);`,
		`CREATE TABLE IF NOT EXISTS fingerprints (
			path TEXT PRIMARY KEY,
			mtime INTEGER NOT NULL,
			size INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
	}
	return nil
}

// ReplaceAll atomically clears and re-inserts the full node/edge set. Used
// by full_sync after a fresh parse+resolve generation.
func (s *GraphStore) ReplaceAll(nodes []model.Node, edges []model.Edge, fp map[string]model.FileFingerprint) error {
	db, err := openWAL(s.path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM nodes", "DELETE FROM edges", "DELETE FROM fingerprints"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clear graph store: %w", err)
		}
	}
	if err := insertNodes(tx, nodes); err != nil {
		return err
	}
	if err := insertEdges(tx, edges); err != nil {
		return err
	}
	if err := insertFingerprints(tx, fp); err != nil {
		return err
	}
	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertNodes(ex execer, nodes []model.Node) error {
	for _, n := range nodes {
		n.EnsureHash()
		meta, err := marshalMeta(n.Metadata)
		if err != nil {
			return err
		}
		_, err = ex.Exec(
			`INSERT INTO nodes (id, kind, name, qualified_name, file_path, start_line, end_line, source_code, docstring, signature, hash, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET kind=excluded.kind, name=excluded.name, qualified_name=excluded.qualified_name,
			   file_path=excluded.file_path, start_line=excluded.start_line, end_line=excluded.end_line,
			   source_code=excluded.source_code, docstring=excluded.docstring, signature=excluded.signature,
			   hash=excluded.hash, metadata=excluded.metadata`,
			n.ID, n.Kind, n.Name, n.QualifiedName, n.FilePath, n.StartLine, n.EndLine,
			n.SourceCode, n.Docstring, n.Signature, n.Hash, meta,
		)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

func insertEdges(ex execer, edges []model.Edge) error {
	for _, e := range edges {
		meta, err := marshalMeta(e.Metadata)
		if err != nil {
			return err
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s:%s:%s:%d", e.Kind, e.FromNode, e.ToNode, e.LineNumber)
		}
		_, err = ex.Exec(
			`INSERT INTO edges (id, from_node, to_node, kind, line_number, column_number, confidence, source, untracked_reason, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET confidence=excluded.confidence, source=excluded.source,
			   untracked_reason=excluded.untracked_reason, metadata=excluded.metadata`,
			e.ID, e.FromNode, e.ToNode, e.Kind, e.LineNumber, e.Column, e.Confidence, e.Source, e.UntrackedReason, meta,
		)
		if err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}

func insertFingerprints(ex execer, fp map[string]model.FileFingerprint) error {
	for path, f := range fp {
		if _, err := ex.Exec(
			`INSERT INTO fingerprints (path, mtime, size) VALUES (?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET mtime=excluded.mtime, size=excluded.size`,
			path, f.ModTime, f.Size,
		); err != nil {
			return fmt.Errorf("insert fingerprint %s: %w", path, err)
		}
	}
	return nil
}

// LoadAll returns every node, edge, and fingerprint currently persisted.
func (s *GraphStore) LoadAll() ([]model.Node, []model.Edge, map[string]model.FileFingerprint, error) {
	db, err := openWAL(s.path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer db.Close()

	nodes, err := loadNodes(db)
	if err != nil {
		return nil, nil, nil, err
	}
	edges, err := loadEdges(db)
	if err != nil {
		return nil, nil, nil, err
	}
	fp, err := loadFingerprints(db)
	if err != nil {
		return nil, nil, nil, err
	}
	return nodes, edges, fp, nil
}

func loadNodes(db *sql.DB) ([]model.Node, error) {
	rows, err := db.Query(`SELECT id, kind, name, qualified_name, file_path, start_line, end_line, source_code, docstring, signature, hash, metadata FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []model.Node
	for rows.Next() {
		var n model.Node
		var metaJSON string
		if err := rows.Scan(&n.ID, &n.Kind, &n.Name, &n.QualifiedName, &n.FilePath, &n.StartLine, &n.EndLine,
			&n.SourceCode, &n.Docstring, &n.Signature, &n.Hash, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		meta, err := unmarshalMeta(metaJSON)
		if err != nil {
			return nil, err
		}
		n.Metadata = meta
		out = append(out, n)
	}
	return out, rows.Err()
}

func loadEdges(db *sql.DB) ([]model.Edge, error) {
	rows, err := db.Query(`SELECT id, from_node, to_node, kind, line_number, column_number, confidence, source, untracked_reason, metadata FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []model.Edge
	for rows.Next() {
		var e model.Edge
		var metaJSON string
		if err := rows.Scan(&e.ID, &e.FromNode, &e.ToNode, &e.Kind, &e.LineNumber, &e.Column, &e.Confidence, &e.Source, &e.UntrackedReason, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		meta, err := unmarshalMeta(metaJSON)
		if err != nil {
			return nil, err
		}
		e.Metadata = meta
		out = append(out, e)
	}
	return out, rows.Err()
}

func loadFingerprints(db *sql.DB) (map[string]model.FileFingerprint, error) {
	rows, err := db.Query(`SELECT path, mtime, size FROM fingerprints`)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.FileFingerprint)
	for rows.Next() {
		var path string
		var f model.FileFingerprint
		if err := rows.Scan(&path, &f.ModTime, &f.Size); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out[path] = f
	}
	return out, rows.Err()
}

// ReplaceFile atomically drops every node whose file_path equals path (and
// any edge touching them) then inserts the freshly parsed replacements.
// Used by reparse_file for surgical incremental reparse.
func (s *GraphStore) ReplaceFile(path string, nodes []model.Node, edges []model.Edge, fp model.FileFingerprint) error {
	db, err := openWAL(s.path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	oldIDs, err := nodeIDsForFile(tx, path)
	if err != nil {
		return err
	}
	for _, id := range oldIDs {
		if _, err := tx.Exec(`DELETE FROM edges WHERE from_node = ? OR to_node = ?`, id, id); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM nodes WHERE file_path = ?`, path); err != nil {
		return err
	}
	if err := insertNodes(tx, nodes); err != nil {
		return err
	}
	if err := insertEdges(tx, edges); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO fingerprints (path, mtime, size) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET mtime=excluded.mtime, size=excluded.size`,
		path, fp.ModTime, fp.Size,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func nodeIDsForFile(tx *sql.Tx, path string) ([]string, error) {
	rows, err := tx.Query(`SELECT id FROM nodes WHERE file_path = ?`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteFiles removes every node (and touching edge) for the given paths,
// used when full_sync discovers files removed from the filesystem.
func (s *GraphStore) DeleteFiles(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	db, err := openWAL(s.path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, path := range paths {
		ids, err := nodeIDsForFile(tx, path)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.Exec(`DELETE FROM edges WHERE from_node = ? OR to_node = ?`, id, id); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`DELETE FROM nodes WHERE file_path = ?`, path); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM fingerprints WHERE path = ?`, path); err != nil {
			return err
		}
	}
	return tx.Commit()
}
