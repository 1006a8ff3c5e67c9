// Package metrics owns the prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "photo_tournament"

// Metrics groups the collectors the domain services update.
type Metrics struct {
	Votes              *prometheus.CounterVec
	CasualVotes        prometheus.Counter
	TournamentsStarted prometheus.Counter
	TournamentsEnded   *prometheus.CounterVec
	RoundsAdvanced     prometheus.Counter
	Conflicts          prometheus.Counter
	LiveClients        prometheus.Gauge
	SchedulerTicks     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bracket_votes_total",
			Help:      "Bracket votes by outcome.",
		}, []string{"outcome"}),
		CasualVotes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "casual_votes_total",
			Help:      "Votes cast outside the bracket.",
		}),
		TournamentsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_started_total",
			Help:      "Tournaments started.",
		}),
		TournamentsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_ended_total",
			Help:      "Tournaments ended, by reason.",
		}, []string{"reason"}),
		RoundsAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_advanced_total",
			Help:      "Rounds advanced.",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_conflicts_total",
			Help:      "Tournament writes abandoned after repeated concurrent updates.",
		}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_clients",
			Help:      "Connected websocket clients.",
		}),
		SchedulerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler ticks by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.Votes,
		m.CasualVotes,
		m.TournamentsStarted,
		m.TournamentsEnded,
		m.RoundsAdvanced,
		m.Conflicts,
		m.LiveClients,
		m.SchedulerTicks,
	)
	return m
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Discard returns collectors registered on a private registry, for tests and tools.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler exposes reg in the prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
