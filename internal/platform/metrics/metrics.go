package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the allocation service. A nil
// *Metrics is valid and records nothing, so engines built in tests need no
// registry.
type Metrics struct {
	Allocations        *prometheus.CounterVec
	Rejections         *prometheus.CounterVec
	ConfigChanges      *prometheus.CounterVec
	AllocationDuration *prometheus.HistogramVec
	TokensMinted       prometheus.Gauge
	Paused             prometheus.Gauge
}

// New creates and registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Allocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_allocations_total",
			Help: "Total number of successful allocations by channel",
		}, []string{"channel"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_allocation_rejections_total",
			Help: "Total number of rejected allocations by channel and error code",
		}, []string{"channel", "code"}),
		ConfigChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_config_changes_total",
			Help: "Total number of successful configuration changes by operation",
		}, []string{"operation"}),
		AllocationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mintgate_allocation_duration_seconds",
			Help:    "Latency of allocation attempts including ledger calls",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"channel"}),
		TokensMinted: f.NewGauge(prometheus.GaugeOpts{
			Name: "mintgate_tokens_minted",
			Help: "Number of identifiers allocated across all channels",
		}),
		Paused: f.NewGauge(prometheus.GaugeOpts{
			Name: "mintgate_paused",
			Help: "Global pause flag (1=paused, 0=running)",
		}),
	}
}

func (m *Metrics) IncAllocation(channel string) {
	if m == nil {
		return
	}
	m.Allocations.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncRejection(channel, code string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(channel, code).Inc()
}

func (m *Metrics) IncConfigChange(operation string) {
	if m == nil {
		return
	}
	m.ConfigChanges.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveAllocationDuration(channel string, d time.Duration) {
	if m == nil {
		return
	}
	m.AllocationDuration.WithLabelValues(channel).Observe(d.Seconds())
}

func (m *Metrics) SetTokensMinted(n int64) {
	if m == nil {
		return
	}
	m.TokensMinted.Set(float64(n))
}

func (m *Metrics) SetPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.Paused.Set(1)
		return
	}
	m.Paused.Set(0)
}
