// AdLens - Digital Signage Audience Analytics
// Copyright 2026 AdLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adlens/adlens

// Package metrics provides Prometheus instrumentation for the ingestion
// pipeline and the read API. Metrics are exposed at /metrics by the serve
// command.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion Metrics
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Total number of CSV rows processed by outcome",
		},
		[]string{"feed", "outcome"}, // feed: player_events|impressions, outcome: inserted|duplicate|invalid
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"}, // import|collapse|reconcile|repair|build
	)

	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_errors_total",
			Help: "Total number of fatal pipeline stage failures",
		},
		[]string{"stage"},
	)

	SessionsMatched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_matched_sessions",
			Help: "Number of sessions holding at least one impression link after the last reconciliation",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordImportRows adds a feed's ingestion counters in one call.
func RecordImportRows(feed string, inserted, duplicates, invalid int64) {
	ImportRowsTotal.WithLabelValues(feed, "inserted").Add(float64(inserted))
	ImportRowsTotal.WithLabelValues(feed, "duplicate").Add(float64(duplicates))
	ImportRowsTotal.WithLabelValues(feed, "invalid").Add(float64(invalid))
}

// ObserveStage records one stage execution.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}
