// Package metrics exposes Prometheus collectors for route loading and
// request matching.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes.
const (
	OutcomeExact  = "exact"
	OutcomePrefix = "prefix"
	OutcomeMiss   = "miss"
	OutcomeError  = "error"
)

// Metrics holds the replay collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	Lookups        *prometheus.CounterVec
	RoutesLoaded   prometheus.Gauge
	RecordsDropped prometheus.Counter
}

// New creates the collectors and registers them with a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diagreplay_lookups_total",
			Help: "Replay requests by match outcome",
		}, []string{"outcome"}),
		RoutesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "diagreplay_routes_loaded",
			Help: "Routes held by the route index",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diagreplay_records_dropped_total",
			Help: "Bundle records or artifacts dropped during load",
		}),
	}
	m.registry.MustRegister(m.Lookups, m.RoutesLoaded, m.RecordsDropped)
	return m
}

// Observe counts one lookup outcome. A nil receiver is a no-op so callers
// can run with metrics disabled.
func (m *Metrics) Observe(outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}

// Loaded records the result of the load phase.
func (m *Metrics) Loaded(routes, dropped int) {
	if m == nil {
		return
	}
	m.RoutesLoaded.Set(float64(routes))
	m.RecordsDropped.Add(float64(dropped))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
