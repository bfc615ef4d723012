/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes prometheus instrumentation for the search core.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/friendsincode/bragi/internal/cache"
)

// Search outcome label values.
const (
	OutcomeHit     = "cache_hit"
	OutcomeMiss    = "cache_miss"
	OutcomeInvalid = "invalid_query"
)

// Metrics holds the search-side instruments.
type Metrics struct {
	registry *prometheus.Registry

	SearchRequests *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	SourceErrors   *prometheus.CounterVec
}

// New creates a Metrics set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bragi_search_requests_total",
			Help: "Search requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bragi_search_duration_seconds",
			Help:    "End-to-end search latency.",
			Buckets: prometheus.DefBuckets,
		}),
		SourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bragi_search_source_errors_total",
			Help: "Source failures treated as empty result sets.",
		}, []string{"source"}),
	}
}

// ObserveCache registers gauge views over a cache's counters.
func ObserveCache[V any](m *Metrics, name string, c *cache.Cache[V]) {
	labels := prometheus.Labels{"cache": name}

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bragi_cache_hits_total", Help: "Cache hits.", ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Hits) }))
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bragi_cache_misses_total", Help: "Cache misses.", ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Misses) }))
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bragi_cache_evictions_total", Help: "Cache evictions.", ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Evictions) }))
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bragi_cache_entries", Help: "Current cache entry count.", ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Size) }))
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
