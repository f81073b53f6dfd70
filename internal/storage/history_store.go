// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"lens/internal/model"
)

// HistoryStore is the append-only change log backing history.db.
type HistoryStore struct {
	path string
}

// NewHistoryStore opens (creating if absent) the history store and ensures
// its schema exists.
func NewHistoryStore(path string) (*HistoryStore, error) {
	db, err := openWAL(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		node_id TEXT NOT NULL,
		action TEXT NOT NULL,
		pre_source TEXT NOT NULL DEFAULT '',
		post_source TEXT NOT NULL DEFAULT '',
		pre_hash TEXT NOT NULL DEFAULT '',
		post_hash TEXT NOT NULL DEFAULT '',
		affected_nodes TEXT NOT NULL DEFAULT '[]',
		reasoning TEXT NOT NULL DEFAULT ''
	);`); err != nil {
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	return &HistoryStore{path: path}, nil
}

// Append adds a new change record. History is append-only: there is no
// Update or Delete operation on this store (invariant 7).
func (s *HistoryStore) Append(rec model.ChangeRecord) (int64, error) {
	db, err := openWAL(s.path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	affected, err := json.Marshal(rec.AffectedNodes)
	if err != nil {
		return 0, err
	}
	res, err := db.Exec(
		`INSERT INTO changes (timestamp, node_id, action, pre_source, post_source, pre_hash, post_hash, affected_nodes, reasoning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Unix(), rec.NodeID, rec.Action, rec.PreSource, rec.PostSource, rec.PreHash, rec.PostHash, string(affected), rec.Reasoning,
	)
	if err != nil {
		return 0, fmt.Errorf("append change: %w", err)
	}
	return res.LastInsertId()
}

// ForNode returns every change record for a given node id, oldest first.
func (s *HistoryStore) ForNode(nodeID string) ([]model.ChangeRecord, error) {
	db, err := openWAL(s.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT id, timestamp, node_id, action, pre_source, post_source, pre_hash, post_hash, affected_nodes, reasoning
		 FROM changes WHERE node_id = ? ORDER BY id ASC`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", nodeID, err)
	}
	defer rows.Close()
	return scanChanges(rows)
}

// Recent returns the most recent n change records across all nodes,
// newest first.
func (s *HistoryStore) Recent(n int) ([]model.ChangeRecord, error) {
	db, err := openWAL(s.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT id, timestamp, node_id, action, pre_source, post_source, pre_hash, post_hash, affected_nodes, reasoning
		 FROM changes ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent history: %w", err)
	}
	defer rows.Close()
	return scanChanges(rows)
}

func scanChanges(rows *sql.Rows) ([]model.ChangeRecord, error) {
	var out []model.ChangeRecord
	for rows.Next() {
		var rec model.ChangeRecord
		var ts int64
		var affectedJSON string
		if err := rows.Scan(&rec.ID, &ts, &rec.NodeID, &rec.Action, &rec.PreSource, &rec.PostSource,
			&rec.PreHash, &rec.PostHash, &affectedJSON, &rec.Reasoning); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		rec.Timestamp = time.Unix(ts, 0).UTC()
		if affectedJSON != "" {
			if err := json.Unmarshal([]byte(affectedJSON), &rec.AffectedNodes); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
