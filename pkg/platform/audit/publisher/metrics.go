package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what happened to emitted audit events. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Persisted       prometheus.Counter
	BufferDropped   prometheus.Counter
	BreakerDropped  prometheus.Counter
	PersistFailures prometheus.Counter
}

// NewMetrics registers the audit publisher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Persisted: f.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_audit_persisted_total",
			Help: "Total number of audit events written to the audit store",
		}),
		BufferDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_audit_buffer_dropped_total",
			Help: "Total number of audit events dropped because the async buffer was full",
		}),
		BreakerDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_audit_breaker_dropped_total",
			Help: "Total number of audit events dropped while the store circuit was open",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
	}
}

func (m *Metrics) IncPersisted() {
	if m == nil {
		return
	}
	m.Persisted.Inc()
}

func (m *Metrics) IncBufferDropped() {
	if m == nil {
		return
	}
	m.BufferDropped.Inc()
}

func (m *Metrics) IncBreakerDropped() {
	if m == nil {
		return
	}
	m.BreakerDropped.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}
