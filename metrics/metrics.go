// Package metrics exports riskgate decision and sizing counters for
// Prometheus scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the riskgate collectors. It satisfies both the
// gate's decision receiver and the sizer's observer.
type Metrics struct {
	decisions       *prometheus.CounterVec
	sizings         *prometheus.CounterVec
	dynamicFraction prometheus.Counter
	remainingBudget prometheus.Gauge
}

// New registers the riskgate collectors on reg and returns them. Use
// prometheus.DefaultRegisterer for the process-global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_decisions_total",
			Help: "Gate decisions by outcome and reject reason",
		}, []string{"decision", "reason"}),
		sizings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_sizings_total",
			Help: "Position sizings by derivation path",
		}, []string{"derivation"}),
		dynamicFraction: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_dynamic_fraction_total",
			Help: "Sizings that used the low-cap dynamic fraction",
		}),
		remainingBudget: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgate_remaining_budget",
			Help: "Remaining daily loss budget at the last gate decision",
		}),
	}
	reg.MustRegister(m.decisions, m.sizings, m.dynamicFraction, m.remainingBudget)
	return m
}

// Decision records one gate outcome.
func (m *Metrics) Decision(approved bool, reason string) {
	decision := "rejected"
	if approved {
		decision = "approved"
		reason = ""
	}
	m.decisions.WithLabelValues(decision, reason).Inc()
}

// RemainingBudget publishes the remaining budget seen at decision
// time.
func (m *Metrics) RemainingBudget(remaining float64) {
	m.remainingBudget.Set(remaining)
}

// SizingDerived records one sizing derivation.
func (m *Metrics) SizingDerived(derivation string, dynamicFraction bool) {
	m.sizings.WithLabelValues(derivation).Inc()
	if dynamicFraction {
		m.dynamicFraction.Inc()
	}
}
