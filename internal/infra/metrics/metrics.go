// Package metrics exposes lifecycle transition counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "offspring_lifecycle"

// Recorder counts successful transitions and rejected operations.
type Recorder struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewRecorder builds a recorder on its own registry, including the Go runtime
// and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Lifecycle status changes committed, by operation and status pair.",
		}, []string{"operation", "from", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Lifecycle operations rejected, by operation and error code.",
		}, []string{"operation", "code"}),
	}
	reg.MustRegister(
		r.transitions,
		r.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Transition records a committed status change.
func (r *Recorder) Transition(operation, from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(operation, from, to).Inc()
}

// Failure records a rejected operation.
func (r *Recorder) Failure(operation, code string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(operation, code).Inc()
}

// Handler serves the registry over HTTP.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
