// Package metrics wires the bancho core's prometheus gauges and counters,
// adapted from the teacher pack's promauto-based ServiceMetrics
// (psubacz-dungeongate/pkg/metrics/prometheus.go), trimmed to the gauges
// and counters §4.I's periodic flush actually has numbers for.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the bancho core's prometheus surface.
type Metrics struct {
	OnlineUsers    prometheus.Gauge
	ActiveMatches  prometheus.Gauge
	LoginsTotal    prometheus.Counter
	LoginFailures  *prometheus.CounterVec
	PacketsHandled *prometheus.CounterVec
	SessionsReaped prometheus.Counter
}

// New registers and returns the bancho core's metrics under the "bancho"
// namespace.
func New() *Metrics {
	return &Metrics{
		OnlineUsers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "bancho",
			Name:      "online_users",
			Help:      "Current number of logged-in sessions.",
		}),
		ActiveMatches: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "bancho",
			Name:      "active_matches",
			Help:      "Current number of open multiplayer matches.",
		}),
		LoginsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bancho",
			Subsystem: "login",
			Name:      "successes_total",
			Help:      "Total number of successful logins.",
		}),
		LoginFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bancho",
			Subsystem: "login",
			Name:      "failures_total",
			Help:      "Total number of failed logins by reason token.",
		}, []string{"reason"}),
		PacketsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bancho",
			Name:      "packets_handled_total",
			Help:      "Total number of client packets dispatched, by packet id.",
		}, []string{"packet_id"}),
		SessionsReaped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bancho",
			Subsystem: "housekeeping",
			Name:      "sessions_reaped_total",
			Help:      "Total number of sessions removed for being idle.",
		}),
	}
}
