package metrics

import "github.com/prometheus/client_golang/prometheus"

// Counter, Gauge, and Histogram let the scheduler, executor, and monitor
// packages record metrics without importing the Prometheus client directly.
type Counter interface {
	Inc()
}

type Gauge interface {
	Set(float64)
	Add(float64)
}

type Histogram interface {
	Observe(float64)
}

type counterWrapper struct{ c prometheus.Counter }

func (w counterWrapper) Inc() { w.c.Inc() }

type gaugeWrapper struct{ g prometheus.Gauge }

func (w gaugeWrapper) Set(v float64) { w.g.Set(v) }
func (w gaugeWrapper) Add(v float64) { w.g.Add(v) }

type histogramWrapper struct{ h prometheus.Histogram }

func (w histogramWrapper) Observe(v float64) { w.h.Observe(v) }

type gaugeVecWrapper struct {
	v *prometheus.GaugeVec
}

func (w gaugeVecWrapper) WithLabel(label string) Gauge {
	return gaugeWrapper{w.v.WithLabelValues(label)}
}

// GaugeVec is a gauge split by a single label, used for the scheduler's
// per-symbol queue depth.
type GaugeVec interface {
	WithLabel(label string) Gauge
}

// SchedulerView is the facade the scheduler package depends on.
type SchedulerView struct {
	QueueDepth       GaugeVec
	SignalsProcessed Counter
	SignalsFailed    Counter
	ActiveWorkers    Gauge
}

// Scheduler returns the scheduler-facing metric facade.
func (m *Metrics) Scheduler() SchedulerView {
	return SchedulerView{
		QueueDepth:       gaugeVecWrapper{m.QueueDepth},
		SignalsProcessed: counterWrapper{m.SignalsProcessed},
		SignalsFailed:    counterWrapper{m.SignalsFailed},
		ActiveWorkers:    gaugeWrapper{m.ActiveWorkers},
	}
}

// ExecutorView is the facade the executor package depends on.
type ExecutorView struct {
	OpensTotal                Counter
	FlipsTotal                Counter
	ResetsTotal               Counter
	ManualClosesTotal         Counter
	OpenDuration              Histogram
	FlipDuration              Histogram
	ResetDuration             Histogram
	OrderFillPollRetries      Counter
	PositionAppearPollRetries Counter
	TPPlacements              Counter
	ErrorsTotal               Counter
}

// Executor returns the executor-facing metric facade.
func (m *Metrics) Executor() ExecutorView {
	return ExecutorView{
		OpensTotal:                counterWrapper{m.OpensTotal},
		FlipsTotal:                counterWrapper{m.FlipsTotal},
		ResetsTotal:               counterWrapper{m.ResetsTotal},
		ManualClosesTotal:         counterWrapper{m.ManualClosesTotal},
		OpenDuration:              histogramWrapper{m.OpenDuration},
		FlipDuration:              histogramWrapper{m.FlipDuration},
		ResetDuration:             histogramWrapper{m.ResetDuration},
		OrderFillPollRetries:      counterWrapper{m.OrderFillPollRetries},
		PositionAppearPollRetries: counterWrapper{m.PositionAppearPollRetries},
		TPPlacements:              counterWrapper{m.TPPlacements},
		ErrorsTotal:               counterWrapper{m.ErrorsTotal},
	}
}

// IngressView is the facade the ingress package depends on.
type IngressView struct {
	SignalsReceived Counter
	SignalsRejected Counter
	WebhookLatency  Histogram
}

// Ingress returns the ingress-facing metric facade.
func (m *Metrics) Ingress() IngressView {
	return IngressView{
		SignalsReceived: counterWrapper{m.SignalsReceived},
		SignalsRejected: counterWrapper{m.SignalsRejected},
		WebhookLatency:  histogramWrapper{m.WebhookLatency},
	}
}

// MonitorView is the facade the monitor package depends on.
type MonitorView struct {
	ActivePositions     Gauge
	SLTightenings       Counter
	BreakevenPromotions Counter
	ExternalCloses      Counter
}

// Monitor returns the monitor-facing metric facade.
func (m *Metrics) Monitor() MonitorView {
	return MonitorView{
		ActivePositions:     gaugeWrapper{m.ActivePositions},
		SLTightenings:       counterWrapper{m.SLTightenings},
		BreakevenPromotions: counterWrapper{m.BreakevenPromotions},
		ExternalCloses:      counterWrapper{m.ExternalCloses},
	}
}
