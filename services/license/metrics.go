package license

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type Metrics struct {
	issued      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	validations *prometheus.CounterVec
}

type MetricsParams struct {
	fx.In
	Registerer prometheus.Registerer `optional:"true"`
}

func NewMetrics(p MetricsParams) (*Metrics, error) {
	m := &Metrics{
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_license_issued_total",
			Help: "Licenses issued, by tier.",
		}, []string{"tier"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_license_issue_failures_total",
			Help: "Failed issuance attempts, by reason.",
		}, []string{"reason"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_license_validations_total",
			Help: "License validations, by outcome.",
		}, []string{"outcome"}),
	}

	if p.Registerer == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.issued, m.failures, m.validations} {
		if err := p.Registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeIssued(tier Tier) {
	if m == nil {
		return
	}
	m.issued.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) observeIssueFailure(err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(failureReason(err)).Inc()
}

func (m *Metrics) observeValidation(outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome).Inc()
}
