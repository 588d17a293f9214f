package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ProbeOutcomes      *prometheus.CounterVec
	ProbeDuration      prometheus.Histogram
	ProbeLoginErrors   prometheus.Counter
	CommandInvocations *prometheus.CounterVec
	CooldownRejections prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())

	return &Metrics{
		registry: registry,

		ProbeOutcomes: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "probe_outcomes_total",
			Help: "The total number of completed probe cycles by outcome",
		}, []string{"outcome"}),
		ProbeDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "probe_duration_seconds",
			Help:    "Duration of probe cycles, both requests included",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}),
		ProbeLoginErrors: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "probe_login_errors_total",
			Help: "The total number of login requests that failed in transport",
		}),
		CommandInvocations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "command_invocations_total",
			Help: "The total number of status command invocations by surface",
		}, []string{"surface"}),
		CooldownRejections: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "command_cooldown_rejections_total",
			Help: "The total number of invocations rejected by the cooldown",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
