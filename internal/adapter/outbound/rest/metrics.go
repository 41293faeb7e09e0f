package rest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the transport client.
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec
	FailuresTotal  *prometheus.CounterVec
	RefreshesTotal *prometheus.CounterVec
	RetriesTotal   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockroom",
				Name:      "requests_total",
				Help:      "Total number of API requests issued",
			},
			[]string{"method", "status"}, // status=ok/error
		),
		FailuresTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockroom",
				Name:      "request_failures_total",
				Help:      "Total failed API requests by failure kind",
			},
			[]string{"kind"},
		),
		RefreshesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockroom",
				Name:      "credential_refreshes_total",
				Help:      "Total credential refresh attempts",
			},
			[]string{"outcome"}, // outcome=success/failure
		),
		RetriesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "stockroom",
				Name:      "request_retries_total",
				Help:      "Total requests re-issued after a credential refresh",
			},
		),
	}
}
