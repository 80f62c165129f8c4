// Package metrics provides Prometheus metrics collection for tradeflow.
// It defines and registers every counter, gauge, and histogram exposed on
// the metrics endpoint for monitoring the scheduler, executor, and monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric tradeflow exposes.
type Metrics struct {
	// Ingress metrics
	SignalsReceived prometheus.Counter   // Total signals accepted by the webhook
	SignalsRejected prometheus.Counter   // Total signals rejected (parse failure, queue full)
	WebhookLatency  prometheus.Histogram // Webhook request handling latency in seconds

	// Scheduler metrics
	QueueDepth       *prometheus.GaugeVec // Current backlog length, labeled by symbol
	SignalsProcessed prometheus.Counter   // Total signals successfully processed
	SignalsFailed    prometheus.Counter   // Total signals whose Process call returned an error
	ActiveWorkers    prometheus.Gauge     // Number of live per-symbol workers

	// Executor metrics
	OpensTotal      prometheus.Counter   // Total Open sequences run
	FlipsTotal      prometheus.Counter   // Total Flip sequences run
	ResetsTotal     prometheus.Counter   // Total Reset sequences run
	ManualClosesTotal prometheus.Counter // Total manual-TP closes run
	OpenDuration    prometheus.Histogram // Duration of the Open sequence in seconds
	FlipDuration    prometheus.Histogram // Duration of the Flip sequence in seconds
	ResetDuration   prometheus.Histogram // Duration of the Reset sequence in seconds
	OrderFillPollRetries prometheus.Counter // Total getOrderDetail poll retries
	PositionAppearPollRetries prometheus.Counter // Total getPendingPositions poll retries

	// Monitor metrics
	ActivePositions   prometheus.Gauge   // Number of positions currently attached to a monitor worker
	SLTightenings     prometheus.Counter // Total stop-loss modifications applied (breakeven + trailing)
	BreakevenPromotions prometheus.Counter // Total breakeven promotions applied
	TPPlacements      prometheus.Counter // Total take-profit tranches placed (recorded by the executor)
	ExternalCloses    prometheus.Counter // Total positions found closed by an outside actor

	// System metrics
	ErrorsTotal prometheus.Counter // Total errors encountered across all components
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, used to isolate
// metric collection in tests from the global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		SignalsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "signals_received_total",
			Help: "Total number of trading signals accepted by the webhook",
		}),
		SignalsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "signals_rejected_total",
			Help: "Total number of trading signals rejected at ingress",
		}),
		WebhookLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "webhook_latency_seconds",
			Help:    "Webhook request handling latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_queue_depth",
			Help: "Current per-symbol scheduler queue depth",
		}, []string{"symbol"}),
		SignalsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "signals_processed_total",
			Help: "Total number of signals successfully processed",
		}),
		SignalsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "signals_failed_total",
			Help: "Total number of signals whose processing returned an error",
		}),
		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_active_workers",
			Help: "Number of live per-symbol scheduler workers",
		}),
		OpensTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "executor_opens_total",
			Help: "Total number of Open sequences run",
		}),
		FlipsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "executor_flips_total",
			Help: "Total number of Flip sequences run",
		}),
		ResetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "executor_resets_total",
			Help: "Total number of Reset sequences run",
		}),
		ManualClosesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "executor_manual_closes_total",
			Help: "Total number of manual take-profit closes run",
		}),
		OpenDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "executor_open_duration_seconds",
			Help:    "Duration of the Open sequence in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		FlipDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "executor_flip_duration_seconds",
			Help:    "Duration of the Flip sequence in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ResetDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "executor_reset_duration_seconds",
			Help:    "Duration of the Reset sequence in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		OrderFillPollRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "executor_order_fill_poll_retries_total",
			Help: "Total number of getOrderDetail poll retries during Open",
		}),
		PositionAppearPollRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "executor_position_appear_poll_retries_total",
			Help: "Total number of getPendingPositions poll retries during Open",
		}),
		ActivePositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_active_positions",
			Help: "Number of positions currently attached to a monitor worker",
		}),
		SLTightenings: factory.NewCounter(prometheus.CounterOpts{
			Name: "monitor_sl_tightenings_total",
			Help: "Total number of stop-loss modifications applied by the monitor",
		}),
		BreakevenPromotions: factory.NewCounter(prometheus.CounterOpts{
			Name: "monitor_breakeven_promotions_total",
			Help: "Total number of breakeven promotions applied",
		}),
		TPPlacements: factory.NewCounter(prometheus.CounterOpts{
			Name: "executor_tp_placements_total",
			Help: "Total number of take-profit tranches placed",
		}),
		ExternalCloses: factory.NewCounter(prometheus.CounterOpts{
			Name: "monitor_external_closes_total",
			Help: "Total number of positions found closed by an outside actor",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered across all components",
		}),
	}
}
