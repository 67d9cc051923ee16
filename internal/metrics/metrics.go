// Package metrics exposes Prometheus metrics for authentication attempts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darmiel/clientauth/internal/core"
)

const namespace = "clientauth"

// Recorder records authentication outcomes on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	authentications *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	registryErrors  prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry, including Go runtime
// and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_total",
			Help:      "Client authentication attempts by outcome and failure reason.",
		}, []string{"outcome", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "authentication_duration_seconds",
			Help:      "Duration of client authentication attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		registryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_errors_total",
			Help:      "Client registry lookups that failed.",
		}),
	}
	registry.MustRegister(
		r.authentications,
		r.duration,
		r.registryErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveAuthentication records one completed attempt.
func (r *Recorder) ObserveAuthentication(outcome core.Outcome, elapsed time.Duration) {
	if r == nil {
		return
	}
	label := outcomeLabel(outcome.Success)
	r.authentications.WithLabelValues(label, outcome.Reason.String()).Inc()
	r.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// ObserveRegistryError records a failed registry lookup.
func (r *Recorder) ObserveRegistryError() {
	if r == nil {
		return
	}
	r.registryErrors.Inc()
}

// Registry returns the underlying registry, e.g. for gathering in tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
