// Package metrics exposes prometheus metrics for the policy-gate engine.
//
// Live decision counters are incremented by the gates through the Observer
// hook. The audit-derived gauges are refreshed by replaying the audit log
// (see Refresher), so the scrape surface recovers after a restart without a
// separate counter store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sentinel-hq/warden/pkg/config"
	"sentinel-hq/warden/pkg/detection"
	"sentinel-hq/warden/pkg/gate"
)

// GateMetrics tracks policy-gate decisions.
//
// Metrics:
//   - warden_gate_decisions_total: decisions by detector, tier and outcome
//   - warden_gate_pending_approvals: current pending approvals per detector
//   - warden_audit_evaluations: audit-derived evaluation count per detector/tier
//   - warden_audit_executed: audit-derived executed-action count per detector
type GateMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	pendingApprovals *prometheus.GaugeVec

	auditEvaluations *prometheus.GaugeVec
	auditExecuted    *prometheus.GaugeVec
}

// NewGateMetrics creates and registers gate metrics with the provided registry.
func NewGateMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *GateMetrics {
	m := &GateMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "gate_decisions_total",
				Help:      "Total number of policy gate decisions",
			},
			[]string{"detector", "tier", "outcome"},
		),

		pendingApprovals: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "gate_pending_approvals",
				Help:      "Current number of unresolved pending approvals",
			},
			[]string{"detector"},
		),

		auditEvaluations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_evaluations",
				Help:      "Evaluation count per detector and tier, replayed from the audit log",
			},
			[]string{"detector", "tier"},
		),

		auditExecuted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_executed",
				Help:      "Executed-action count per detector, replayed from the audit log",
			},
			[]string{"detector"},
		),
	}

	registry.MustRegister(
		m.decisionsTotal,
		m.pendingApprovals,
		m.auditEvaluations,
		m.auditExecuted,
	)

	return m
}

// ObserveDecision implements gate.Observer.
func (m *GateMetrics) ObserveDecision(detector string, tier detection.Tier, outcome gate.Outcome) {
	m.decisionsTotal.WithLabelValues(detector, string(tier), string(outcome)).Inc()
}

// SetPending records the current pending approval count for a detector.
func (m *GateMetrics) SetPending(detector string, count int) {
	m.pendingApprovals.WithLabelValues(detector).Set(float64(count))
}

// ApplySummary folds one audit-derived summary into the gauges.
func (m *GateMetrics) ApplySummary(detector string, total map[detection.Tier]int64, executed int64) {
	for tier, count := range total {
		m.auditEvaluations.WithLabelValues(detector, string(tier)).Set(float64(count))
	}
	m.auditExecuted.WithLabelValues(detector).Set(float64(executed))
}
