// Package metrics exposes Prometheus instrumentation for round-trips and
// gateway calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planchat"

// Recorder owns a private registry so tests and multiple servers in one
// process never collide on registration. A nil *Recorder is a no-op.
type Recorder struct {
	registry        *prometheus.Registry
	roundTrips      *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	planSyncFailed  prometheus.Counter
	pending         prometheus.Gauge
	sessions        prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		roundTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_trips_total",
			Help:      "Completed command round-trips by outcome.",
		}, []string{"outcome"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of calls to the scheduling service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
		planSyncFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_sync_failures_total",
			Help:      "Post-command plan re-fetches that failed.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_indicators",
			Help:      "Pending indicators currently shown across sessions.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Conversation sessions held in memory.",
		}),
	}
	r.registry.MustRegister(r.roundTrips, r.gatewayDuration, r.planSyncFailed, r.pending, r.sessions)
	return r
}

// RoundTrip counts one finished round-trip.
func (r *Recorder) RoundTrip(outcome string) {
	if r == nil {
		return
	}
	r.roundTrips.WithLabelValues(outcome).Inc()
}

// GatewayCall observes the latency of one gateway operation.
func (r *Recorder) GatewayCall(op string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.gatewayDuration.WithLabelValues(op, result).Observe(time.Since(started).Seconds())
}

// PlanSyncFailed counts a swallowed re-fetch failure.
func (r *Recorder) PlanSyncFailed() {
	if r == nil {
		return
	}
	r.planSyncFailed.Inc()
}

// PendingShown increments the pending indicator gauge.
func (r *Recorder) PendingShown() {
	if r == nil {
		return
	}
	r.pending.Inc()
}

// PendingRemoved decrements the pending indicator gauge.
func (r *Recorder) PendingRemoved() {
	if r == nil {
		return
	}
	r.pending.Dec()
}

// SessionsActive sets the session gauge.
func (r *Recorder) SessionsActive(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
