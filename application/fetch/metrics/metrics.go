// Package metrics provides Prometheus instrumentation for dispatched fetches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	NetworkErrors   *prometheus.CounterVec
	Redirects       *prometheus.CounterVec
	InFlight        prometheus.Gauge
}

// New registers the fetch metrics on reg.
// A nil reg falls back to the default registerer.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "fetch"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of completed fetches",
			},
			[]string{"method", "status_class"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Fetch duration in seconds, redirects included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		NetworkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "network_errors_total",
				Help:      "Total number of fetches rejected with a network failure",
			},
			[]string{"method"},
		),
		Redirects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_total",
				Help:      "Total number of redirects followed",
			},
			[]string{"status"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of fetches waiting on the transport",
			},
		),
	}
}

// ObserveFetch tracks a single dispatch.
// f reports the status class of the final response, or an error for a
// network failure.
func (m *Metrics) ObserveFetch(method string, elapsed func() time.Duration, f func() (string, error)) error {
	m.InFlight.Inc()
	defer m.InFlight.Dec()

	class, err := f()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed().Seconds())

	if err != nil {
		m.NetworkErrors.WithLabelValues(method).Inc()
		return err
	}
	m.RequestsTotal.WithLabelValues(method, class).Inc()

	return nil
}

func (m *Metrics) ObserveRedirect(status string) {
	m.Redirects.WithLabelValues(status).Inc()
}
