package admission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Giftedx/chatterbot-gate/pkg/admission/adaptive"
	"github.com/Giftedx/chatterbot-gate/pkg/admission/connpool"
)

// Metrics contains Prometheus metrics for the admission package.
type Metrics struct {
	// Admission decisions
	checksTotal  *prometheus.CounterVec
	denialsTotal *prometheus.CounterVec

	// Effective limits
	effectiveLimits *prometheus.GaugeVec

	// Connection gate
	connectionsActive     prometheus.Gauge
	connectionUtilization prometheus.Gauge

	// Completions and adaptation
	completionLatency prometheus.Histogram
	adaptationsTotal  *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on the given registerer.
// Pass prometheus.DefaultRegisterer for the process-wide registry, or a
// private registry under test.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		checksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatterbot_gate_admission_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"result"},
		),

		denialsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatterbot_gate_admission_denials_total",
				Help: "Total number of denied admission checks by reason",
			},
			[]string{"reason"},
		),

		effectiveLimits: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chatterbot_gate_effective_limit",
				Help: "Current adaptively-tuned effective limit per field",
			},
			[]string{"limit"},
		),

		connectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatterbot_gate_connections_active",
				Help: "Current number of in-flight downstream calls",
			},
		),

		connectionUtilization: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatterbot_gate_connection_utilization",
				Help: "Connection gate utilization (0.0-1.0)",
			},
		),

		completionLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatterbot_gate_completion_latency_seconds",
				Help:    "Observed downstream completion latency",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),

		adaptationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatterbot_gate_adaptations_total",
				Help: "Total number of effective-limit adaptations by reason",
			},
			[]string{"reason"},
		),
	}
}

func (m *Metrics) recordAllowed() {
	m.checksTotal.WithLabelValues("allowed").Inc()
}

func (m *Metrics) recordDenied(reason Reason) {
	m.checksTotal.WithLabelValues("denied").Inc()
	m.denialsTotal.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) observeCompletion(comp *Completion) {
	m.completionLatency.Observe(comp.LatencyMs / 1000.0)
}

func (m *Metrics) observePool(pm connpool.Metrics) {
	m.connectionsActive.Set(float64(pm.Active))
	m.connectionUtilization.Set(pm.Utilization)
}

func (m *Metrics) observeLimits(limits adaptive.Limits) {
	m.effectiveLimits.WithLabelValues("requests_per_minute").Set(float64(limits.RequestsPerMinute))
	m.effectiveLimits.WithLabelValues("cost_per_minute").Set(float64(limits.CostPerMinute))
	m.effectiveLimits.WithLabelValues("burst_limit").Set(float64(limits.BurstLimit))
}

func (m *Metrics) recordAdaptation(record *adaptive.Record) {
	m.adaptationsTotal.WithLabelValues(record.Reason).Inc()
}
