package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	opsAccepted *prometheus.CounterVec
	opsRejected *prometheus.CounterVec
	totalSupply prometheus.Gauge
	redeemRate  prometheus.Gauge
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			opsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "points_ops_accepted_total",
				Help: "Count of accepted ledger operations by kind.",
			}, []string{"op"}),
			opsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "points_ops_rejected_total",
				Help: "Count of rejected ledger operations by kind and guardrail.",
			}, []string{"op", "reason"}),
			totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "points_total_supply",
				Help: "Current total point supply tracked by the ledger.",
			}),
			redeemRate: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "points_redeem_rate_bps",
				Help: "Current redemption haircut in basis points.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.opsAccepted,
			ledgerRegistry.opsRejected,
			ledgerRegistry.totalSupply,
			ledgerRegistry.redeemRate,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveAccepted(op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.opsAccepted.WithLabelValues(op).Inc()
}

func (m *LedgerMetrics) ObserveRejected(op, reason string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	m.opsRejected.WithLabelValues(op, reason).Inc()
}

func (m *LedgerMetrics) SetTotalSupply(total uint64) {
	if m == nil {
		return
	}
	m.totalSupply.Set(float64(total))
}

func (m *LedgerMetrics) SetRedeemRateBps(rate uint64) {
	if m == nil {
		return
	}
	m.redeemRate.Set(float64(rate))
}
