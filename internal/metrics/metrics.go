// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package metrics exposes the server's Prometheus collectors: active
// connection count, worker-pool occupancy, and request/reply
// throughput counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every collector the server exports, registered
// against its own prometheus.Registry rather than the global default
// so multiple servers in one process (tests) don't collide.
type Registry struct {
	reg *prometheus.Registry

	ActiveConnections   prometheus.Gauge
	// WorkerPoolBusy and WorkerPoolTotalWork are registered and
	// exported, but no server component updates them; both read 0.
	WorkerPoolBusy      prometheus.Gauge
	WorkerPoolTotalWork prometheus.Gauge
	RepliesTotal        prometheus.Counter
	LocationRequestsTotal prometheus.Counter
	StateChangesTotal   prometheus.Counter
}

// New constructs a Registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uamp_active_connections",
			Help: "Number of currently open UAMP/MVISP connections.",
		}),
		WorkerPoolBusy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uamp_worker_pool_busy",
			Help: "Number of worker goroutines currently advancing an agent.",
		}),
		WorkerPoolTotalWork: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uamp_worker_pool_total_work",
			Help: "Outstanding updates queued across all MultiManagers.",
		}),
		RepliesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "uamp_replies_total",
			Help: "Total number of Update replies written to clients.",
		}),
		LocationRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "uamp_location_requests_total",
			Help: "Total number of LOCATION_REQUEST frames served.",
		}),
		StateChangesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "uamp_state_changes_total",
			Help: "Total number of MVISP state changes received.",
		}),
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
