package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncAllocation("public")
		m.IncRejection("public", "sale_not_active")
		m.IncConfigChange("set_quotas")
		m.ObserveAllocationDuration("public", time.Millisecond)
		m.SetTokensMinted(3)
		m.SetPaused(true)
	})
}

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncAllocation("whitelist")
	m.IncAllocation("whitelist")
	m.IncRejection("admin", "not_privileged")
	m.SetTokensMinted(2)
	m.SetPaused(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Allocations.WithLabelValues("whitelist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("admin", "not_privileged")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensMinted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Paused))
}
