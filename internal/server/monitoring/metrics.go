// Package monitoring exposes the node's Prometheus metrics.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sealkeeper"

// Metrics owns its registry so several nodes can live in one process. A nil
// *Metrics discards every observation.
type Metrics struct {
	registry *prometheus.Registry

	transactions  *prometheus.CounterVec
	blockDuration prometheus.Histogram
	height        prometheus.Gauge
	mempool       prometheus.Gauge

	grpcRequests *prometheus.CounterVec
	grpcDuration *prometheus.HistogramVec

	decryptions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "transactions_total",
			Help:      "Transactions by kind and outcome",
		}, []string{"kind", "status"}),

		blockDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "block_duration_seconds",
			Help:      "Time spent executing a block",
			Buckets:   prometheus.DefBuckets,
		}),

		height: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "height",
			Help:      "Height of the last produced block",
		}),

		mempool: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "mempool_size",
			Help:      "Transactions waiting for the next block",
		}),

		grpcRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "requests_total",
			Help:      "Handled gRPC requests by method and status code",
		}, []string{"method", "code"}),

		grpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "request_duration_seconds",
			Help:      "gRPC handler latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		decryptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kms",
			Name:      "decryptions_total",
			Help:      "Relayer decryption requests by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) TxAccepted(kind string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(kind, "accepted").Inc()
}

func (m *Metrics) TxRejected(kind string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(kind, "rejected").Inc()
}

func (m *Metrics) TxExecuted(kind, status string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) BlockProduced(height uint64, took time.Duration, pending int) {
	if m == nil {
		return
	}
	m.blockDuration.Observe(took.Seconds())
	m.height.Set(float64(height))
	m.mempool.Set(float64(pending))
}

func (m *Metrics) MempoolSize(n int) {
	if m == nil {
		return
	}
	m.mempool.Set(float64(n))
}

func (m *Metrics) GRPCRequest(method, code string, took time.Duration) {
	if m == nil {
		return
	}
	m.grpcRequests.WithLabelValues(method, code).Inc()
	m.grpcDuration.WithLabelValues(method).Observe(took.Seconds())
}

func (m *Metrics) Decryption(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "refused"
	}
	m.decryptions.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
