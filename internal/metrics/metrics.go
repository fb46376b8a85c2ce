// Package metrics defines the prometheus collectors exported by the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "groupledger"

// Metrics holds the server's collectors and the registry they belong to.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	settlementsRecorded prometheus.Counter
	expensesRecorded    prometheus.Counter
	ledgerAnomalies     prometheus.Counter
	ledgerCompute       prometheus.Histogram
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		settlementsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_recorded_total",
			Help:      "Settlement payments persisted.",
		}),
		expensesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_recorded_total",
			Help:      "Expenses persisted, excluding settlement expenses.",
		}),
		ledgerAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_anomalies_total",
			Help:      "Malformed records skipped while computing balances.",
		}),
		ledgerCompute: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_compute_seconds",
			Help:      "Time spent computing balances and settlement plans.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcRequests,
		m.rpcDuration,
		m.settlementsRecorded,
		m.expensesRecorded,
		m.ledgerAnomalies,
		m.ledgerCompute,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

// ObserveLedger records one balance computation and its skipped anomalies.
func (m *Metrics) ObserveLedger(d time.Duration, anomalies int) {
	if m == nil {
		return
	}
	m.ledgerCompute.Observe(d.Seconds())
	m.ledgerAnomalies.Add(float64(anomalies))
}

// SettlementRecorded counts a persisted settlement.
func (m *Metrics) SettlementRecorded() {
	if m == nil {
		return
	}
	m.settlementsRecorded.Inc()
}

// ExpenseRecorded counts a persisted expense.
func (m *Metrics) ExpenseRecorded() {
	if m == nil {
		return
	}
	m.expensesRecorded.Inc()
}
