// Package metrics provides Prometheus instrumentation for the SkillSwap
// server: connection and room gauges, signaling throughput counters, and a
// histogram of computed compatibility scores.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skillswap_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// RoomsActive tracks the number of match rooms with at least one member.
	RoomsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skillswap_rooms_active",
		Help: "Current number of signaling rooms with members",
	})

	// SignalMessagesTotal counts relayed signaling events, labeled by event type.
	SignalMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_signal_messages_total",
		Help: "Total number of signaling events relayed",
	}, []string{"event"})

	// SessionsActive tracks the number of video sessions currently active.
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skillswap_sessions_active",
		Help: "Current number of active video sessions",
	})

	// MatchRequestsTotal counts match requests that created a new record.
	MatchRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skillswap_match_requests_total",
		Help: "Total number of new match requests",
	})

	// CompatibilityScore records the distribution of computed scores.
	CompatibilityScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skillswap_compatibility_score",
		Help:    "Distribution of computed compatibility scores",
		Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		RoomsActive,
		SignalMessagesTotal,
		SessionsActive,
		MatchRequestsTotal,
		CompatibilityScore,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
