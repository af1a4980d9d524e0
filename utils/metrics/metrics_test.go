package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestScanMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScanMetrics("arbbot", reg)

	m.PassesTotal.Inc()
	m.PassesTotal.Inc()
	m.QuoteErrors.Inc()
	m.Opportunities.WithLabelValues("pair").Inc()
	m.Opportunities.WithLabelValues("triangular").Inc()

	assert.Equal(t, 2.0, counterValue(t, m.PassesTotal))
	assert.Equal(t, 1.0, counterValue(t, m.QuoteErrors))
	assert.Equal(t, 1.0, counterValue(t, m.Opportunities.WithLabelValues("pair")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["arbbot_passes_total"])
	assert.True(t, names["arbbot_opportunities_total"])
}

func TestObserveProfit(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScanMetrics("arbbot", reg)

	m.ObserveProfit(big.NewInt(19_000_000_000_000_000))
	assert.InDelta(t, 1.9e16, gaugeValue(t, m.LastNetProfit), 1e6)

	m.ObserveProfit(nil)
	assert.InDelta(t, 1.9e16, gaugeValue(t, m.LastNetProfit), 1e6, "nil profit leaves the gauge unchanged")
}
