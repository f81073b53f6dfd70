// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsFreshConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.LastSync)
	assert.Equal(t, currentSchemaVersion, cfg.SchemaVersion)
}

func TestSaveLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, &Config{LastSync: "2026-01-01T00:00:00Z"}))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00Z", cfg.LastSync)
}

func TestTouchLastSync_UpdatesTimestamp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, &Config{}))

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, TouchLastSync(dir, now))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-31T12:00:00Z", cfg.LastSync)
}
