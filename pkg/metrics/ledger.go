package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/teamhub-backend/pkg/enums"
)

// LedgerMetrics counts recorded ledger entries and the credit they move.
type LedgerMetrics struct {
	entries     *prometheus.CounterVec
	amount      *prometheus.CounterVec
	settlements *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Ledger entries recorded, by kind and status.",
	}, []string{"kind", "status"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_amount_total",
		Help: "Credit amount recorded in ledger entries, by kind.",
	}, []string{"kind"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_topup_settlements_total",
		Help: "Top-up settlements, by resulting status.",
	}, []string{"status"})
	reg.MustRegister(entries, amount, settlements)
	return &LedgerMetrics{
		entries:     entries,
		amount:      amount,
		settlements: settlements,
	}
}

// ObserveEntry records a newly written entry.
func (m *LedgerMetrics) ObserveEntry(kind enums.LedgerEntryKind, status enums.LedgerEntryStatus, amount decimal.Decimal) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(string(kind)), normalizeLabel(string(status))).Inc()
	m.amount.WithLabelValues(normalizeLabel(string(kind))).Add(amount.InexactFloat64())
}

// ObserveSettlement records a PENDING top-up reaching a terminal status.
func (m *LedgerMetrics) ObserveSettlement(status enums.LedgerEntryStatus) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(string(status))).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
