// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage implements the three embedded SQL stores that back a
// Lens session's .lens/ sidecar:
//
//   - graph.db          nodes, edges, and the file fingerprint table
//   - history.db        the append-only change log
//   - resolve_cache.db  optional resolver caches (e.g. LSP lookups)
//
// Each store is a modernc.org/sqlite database opened in WAL journal mode;
// per spec §5, connections are opened on demand and closed after each
// atomic operation rather than held open and shared across goroutines.
package storage
