package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScanMetrics tracks the scan loop's behavior. Profit gauges are export-only
// approximations; decision arithmetic never reads them.
type ScanMetrics struct {
	PassesTotal     prometheus.Counter
	PassErrors      prometheus.Counter
	PassDuration    prometheus.Histogram
	Opportunities   *prometheus.CounterVec
	QuoteErrors     prometheus.Counter
	TradesSubmitted prometheus.Counter
	TradesConfirmed prometheus.Counter
	TradesFailed    prometheus.Counter
	LastNetProfit   prometheus.Gauge
}

// NewScanMetrics registers scan metrics on the given registry
func NewScanMetrics(namespace string, reg prometheus.Registerer) *ScanMetrics {
	factory := promauto.With(reg)

	return &ScanMetrics{
		PassesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Total number of completed scan passes",
		}),
		PassErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pass_errors_total",
			Help:      "Total number of scan passes that ended with an error",
		}),
		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Scan pass duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		Opportunities: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Total number of opportunities found, by kind",
		}, []string{"kind"}),
		QuoteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_errors_total",
			Help:      "Total number of unavailable venue quotes",
		}),
		TradesSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_submitted_total",
			Help:      "Total number of trades submitted",
		}),
		TradesConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_confirmed_total",
			Help:      "Total number of trades confirmed on chain",
		}),
		TradesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_failed_total",
			Help:      "Total number of failed or unconfirmed trades",
		}),
		LastNetProfit: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_net_profit_wei",
			Help:      "Net profit of the most recent opportunity, in wei",
		}),
	}
}

// ObserveProfit exports a profit figure as a gauge value
func (m *ScanMetrics) ObserveProfit(profit *big.Int) {
	if profit == nil {
		return
	}
	f, _ := new(big.Float).SetInt(profit).Float64()
	m.LastNetProfit.Set(f)
}
