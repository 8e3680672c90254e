// Copyright 2026 Meshlayer
//
// Shared Prometheus collectors for the registrar, monitor, cache, batch
// processor, load balancer and settlement validator. The serve command
// constructs one Registry at process start and hands it to the monitor,
// cache, batch processor, load balancer and settlement validator; the
// registrar it builds gets none, so the registrar collectors stay at
// zero there. Follows the teacher's multi-writer/single-reader sink
// idiom (spec section 9).

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric the worker-node core exposes.
type Registry struct {
	reg *prometheus.Registry

	// Registrar
	RegistrationAttempts *prometheus.CounterVec // labels: chain, outcome
	RegistrationTxLatency *prometheus.HistogramVec // labels: chain

	// Monitor
	TickDuration   *prometheus.HistogramVec // labels: chain
	ChainStatus    *prometheus.GaugeVec     // labels: chain
	RecoveryEvents *prometheus.CounterVec   // labels: chain

	// Cache
	CacheHits       *prometheus.CounterVec // labels: kind (exact|semantic)
	CacheMisses     prometheus.Counter
	CacheEvictions  prometheus.Counter
	CacheMemoryUsed prometheus.Gauge
	TokensSaved     prometheus.Counter
	LatencySavedMS  prometheus.Counter

	// Batch
	BatchesEmitted   prometheus.Counter
	RequestsDropped  *prometheus.CounterVec // labels: priority
	BatchAvgSize     prometheus.Gauge
	QueueDepth       prometheus.Gauge

	// Load balancer
	NodeSelections   *prometheus.CounterVec // labels: strategy
	CircuitOpens     prometheus.Counter

	// Settlement
	ValidationsTotal  prometheus.Counter
	ValidationsPassed prometheus.Counter
	ValidationsFailed prometheus.Counter
	ValidationLatency prometheus.Histogram
}

// New constructs and registers all collectors against a fresh Prometheus
// registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		RegistrationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infernode_registration_attempts_total",
			Help: "Registration attempts per chain and outcome.",
		}, []string{"chain", "outcome"}),
		RegistrationTxLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "infernode_registration_tx_latency_seconds",
			Help:    "Latency of registration transaction submission.",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain"}),
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "infernode_monitor_tick_duration_seconds",
			Help:    "Duration of a single registration-monitor tick.",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain"}),
		ChainStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "infernode_chain_registration_status",
			Help: "Registration status per chain: -1 Failed, 0 NotRegistered, 1 Pending, 2 Confirmed.",
		}, []string{"chain"}),
		RecoveryEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infernode_monitor_recovery_events_total",
			Help: "Recovery transitions observed per chain.",
		}, []string{"chain"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infernode_cache_hits_total",
			Help: "Cache hits by kind (exact or semantic).",
		}, []string{"kind"}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_cache_misses_total",
			Help: "Cache misses.",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_cache_evictions_total",
			Help: "Cache evictions (LRU, TTL or memory pressure).",
		}),
		CacheMemoryUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "infernode_cache_memory_bytes",
			Help: "Estimated cache memory usage in bytes.",
		}),
		TokensSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_cache_tokens_saved_total",
			Help: "Tokens saved by cache hits.",
		}),
		LatencySavedMS: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_cache_latency_saved_ms_total",
			Help: "Inference latency saved by cache hits, in milliseconds.",
		}),
		BatchesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_batches_emitted_total",
			Help: "Batches emitted by the batch processor.",
		}),
		RequestsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infernode_batch_requests_dropped_total",
			Help: "Requests dropped due to queue overflow, by priority.",
		}, []string{"priority"}),
		BatchAvgSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "infernode_batch_avg_size",
			Help: "Rolling average batch size.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "infernode_batch_queue_depth",
			Help: "Sum of all priority queue depths.",
		}),
		NodeSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infernode_lb_node_selections_total",
			Help: "Node selections by strategy.",
		}, []string{"strategy"}),
		CircuitOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_lb_circuit_opens_total",
			Help: "Times a worker node's circuit breaker tripped open.",
		}),
		ValidationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_settlement_validations_total",
			Help: "Settlement validations attempted.",
		}),
		ValidationsPassed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_settlement_validations_passed_total",
			Help: "Settlement validations that passed.",
		}),
		ValidationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "infernode_settlement_validations_failed_total",
			Help: "Settlement validations that failed.",
		}),
		ValidationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "infernode_settlement_validation_latency_seconds",
			Help:    "Settlement validation latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.RegistrationAttempts, m.RegistrationTxLatency,
		m.TickDuration, m.ChainStatus, m.RecoveryEvents,
		m.CacheHits, m.CacheMisses, m.CacheEvictions, m.CacheMemoryUsed, m.TokensSaved, m.LatencySavedMS,
		m.BatchesEmitted, m.RequestsDropped, m.BatchAvgSize, m.QueueDepth,
		m.NodeSelections, m.CircuitOpens,
		m.ValidationsTotal, m.ValidationsPassed, m.ValidationsFailed, m.ValidationLatency,
	)

	return m
}

// Gatherer exposes the underlying Prometheus registry for an HTTP
// /metrics endpoint.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}
