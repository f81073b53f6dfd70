// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics holds the Prometheus counters and histograms emitted by
// a sync: parse-plane duration, resolver-pipeline duration, and
// cumulative added/modified/deleted node counts. Mirrors the teacher's
// pkg/ingestion/metrics.go registration pattern (package-level singleton,
// sync.Once init, MustRegister).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type lensMetrics struct {
	once sync.Once

	nodesAdded    prometheus.Counter
	nodesModified prometheus.Counter
	nodesDeleted  prometheus.Counter

	syncsTotal  prometheus.Counter
	syncsFailed prometheus.Counter

	parseDuration    prometheus.Histogram
	resolverDuration *prometheus.HistogramVec
	syncDuration     prometheus.Histogram

	mutationsApplied prometheus.Counter
	mutationsFailed  prometheus.Counter
}

var m lensMetrics

func (mm *lensMetrics) init() {
	mm.once.Do(func() {
		mm.nodesAdded = prometheus.NewCounter(prometheus.CounterOpts{Name: "lens_sync_nodes_added_total", Help: "Nodes added across all sync generations"})
		mm.nodesModified = prometheus.NewCounter(prometheus.CounterOpts{Name: "lens_sync_nodes_modified_total", Help: "Nodes modified across all sync generations"})
		mm.nodesDeleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "lens_sync_nodes_deleted_total", Help: "Nodes deleted across all sync generations"})

		mm.syncsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "lens_syncs_total", Help: "Completed syncs (full or incremental)"})
		mm.syncsFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "lens_syncs_failed_total", Help: "Syncs that failed before completing"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		mm.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "lens_parse_seconds", Help: "Per-project parse-plane duration", Buckets: buckets})
		mm.resolverDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "lens_resolver_seconds", Help: "Per-resolver-stage duration", Buckets: buckets}, []string{"resolver"})
		mm.syncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "lens_sync_seconds", Help: "End-to-end sync duration", Buckets: buckets})

		mm.mutationsApplied = prometheus.NewCounter(prometheus.CounterOpts{Name: "lens_mutations_applied_total", Help: "Mutations successfully applied"})
		mm.mutationsFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "lens_mutations_failed_total", Help: "Mutations rejected or rolled back"})

		prometheus.MustRegister(
			mm.nodesAdded, mm.nodesModified, mm.nodesDeleted,
			mm.syncsTotal, mm.syncsFailed,
			mm.parseDuration, mm.resolverDuration, mm.syncDuration,
			mm.mutationsApplied, mm.mutationsFailed,
		)
	})
}

// RecordDiff records a sync generation's added/modified/deleted counts.
func RecordDiff(added, modified, deleted int) {
	m.init()
	m.nodesAdded.Add(float64(added))
	m.nodesModified.Add(float64(modified))
	m.nodesDeleted.Add(float64(deleted))
}

// RecordSync records the outcome and wall-clock duration of one sync.
func RecordSync(ok bool, seconds float64) {
	m.init()
	m.syncsTotal.Inc()
	if !ok {
		m.syncsFailed.Inc()
	}
	m.syncDuration.Observe(seconds)
}

// RecordParse records the parse plane's wall-clock duration for one sync.
func RecordParse(seconds float64) {
	m.init()
	m.parseDuration.Observe(seconds)
}

// RecordResolver records one resolver stage's wall-clock duration.
func RecordResolver(name string, seconds float64) {
	m.init()
	m.resolverDuration.WithLabelValues(name).Observe(seconds)
}

// RecordMutation records a mutation's apply/reject outcome.
func RecordMutation(applied bool) {
	m.init()
	if applied {
		m.mutationsApplied.Inc()
	} else {
		m.mutationsFailed.Inc()
	}
}
