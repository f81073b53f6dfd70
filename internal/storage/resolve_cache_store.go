// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ResolveCacheStore backs resolve_cache.db: a generic key/value cache used
// by optional resolver passes (notably the LSP deep-resolution pass, R6)
// to avoid re-probing a definition location that was already resolved for
// an unchanged source hash.
type ResolveCacheStore struct {
	path string
}

// NewResolveCacheStore opens (creating if absent) the resolver cache store.
func NewResolveCacheStore(path string) (*ResolveCacheStore, error) {
	db, err := openWAL(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS resolve_cache (
		cache_key TEXT PRIMARY KEY,
		resolver TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`); err != nil {
		return nil, fmt.Errorf("ensure resolve_cache schema: %w", err)
	}
	return &ResolveCacheStore{path: path}, nil
}

// Get returns the cached value for (resolver, key) and whether it was present.
func (s *ResolveCacheStore) Get(resolver, key string) (string, bool, error) {
	db, err := openWAL(s.path)
	if err != nil {
		return "", false, err
	}
	defer db.Close()

	var value string
	err = db.QueryRow(`SELECT value FROM resolve_cache WHERE cache_key = ?`, resolver+"\x00"+key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get resolve cache %s/%s: %w", resolver, key, err)
	}
	return value, true, nil
}

// Put upserts a cache entry for (resolver, key).
func (s *ResolveCacheStore) Put(resolver, key, value string) error {
	db, err := openWAL(s.path)
	if err != nil {
		return err
	}
	defer db.Close()

	cacheKey := resolver + "\x00" + key
	_, err = db.Exec(
		`INSERT INTO resolve_cache (cache_key, resolver, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		cacheKey, resolver, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("put resolve cache %s/%s: %w", resolver, key, err)
	}
	return nil
}

// Clear removes every cache entry for a resolver, used when that resolver's
// inputs (e.g. LSP server version) change in a way that invalidates cached
// results.
func (s *ResolveCacheStore) Clear(resolver string) error {
	db, err := openWAL(s.path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(`DELETE FROM resolve_cache WHERE resolver = ?`, resolver)
	return err
}
