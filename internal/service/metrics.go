package service

import (
	"time"

	"wallet-ledger/pkg/apperror"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opCreateWallet = "create_wallet"
	opFund         = "fund"
	opTransfer     = "transfer"
	opListTxns     = "list_transactions"

	outcomeSuccess = "success"
)

// Metrics holds the ledger's Prometheus collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	replays    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	swept      prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by outcome (success or error code).",
		}, []string{"operation", "outcome"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_idempotent_replays_total",
			Help: "Results served from a previous execution of the same idempotency key.",
		}, []string{"operation", "source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Ledger operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_idempotency_swept_total",
			Help: "Completed idempotency records removed by the sweeper.",
		}),
	}
	reg.MustRegister(m.operations, m.replays, m.duration, m.swept)
	return m
}

func (m *Metrics) addSwept(n int64) {
	if m == nil {
		return
	}
	m.swept.Add(float64(n))
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = apperror.Code(err)
		if outcome == "" {
			outcome = apperror.CodeInternal
		}
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) replayed(operation, source string) {
	if m == nil {
		return
	}
	m.replays.WithLabelValues(operation, source).Inc()
}
