// Package metrics exposes Prometheus instrumentation for file operations.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the cryptoroom metrics on a private Prometheus registry.
type Registry struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	BytesTotal        *prometheus.CounterVec
	BlocksTotal       *prometheus.CounterVec
	SignaturesSkipped prometheus.Counter
	SelfTestsTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all metrics initialized.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.OperationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoroom_operations_total",
			Help: "Total number of file operations",
		},
		[]string{"operation", "status"},
	)

	r.OperationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptoroom_operation_duration_seconds",
			Help:    "File operation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"operation"},
	)

	r.BytesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoroom_bytes_total",
			Help: "Plaintext bytes processed",
		},
		[]string{"operation"},
	)

	r.BlocksTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoroom_blocks_total",
			Help: "Cipher blocks processed by the chaining loop",
		},
		[]string{"operation"},
	)

	r.SignaturesSkipped = f.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptoroom_signatures_skipped_total",
			Help: "Files left unsigned because they exceed the signing size limit",
		},
	)

	r.SelfTestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoroom_self_tests_total",
			Help: "Self test runs by check and outcome",
		},
		[]string{"check", "status"},
	)

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
