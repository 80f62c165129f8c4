// Package scheduler provides per-symbol FIFO serialization of incoming
// signals: one cooperative worker per symbol, spawned lazily on first
// enqueue and kept alive for the process lifetime, each draining its own
// bounded backlog strictly in arrival order while different symbols make
// progress in parallel (spec.md §4.3).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tradeflow/internal/metrics"
)

// Signal is one immutable unit of work handed to a symbol's worker
// (spec.md §3 EnqueuedSignal).
type Signal struct {
	Symbol     string
	Payload    map[string]interface{}
	ReceivedAt time.Time
}

// Processor is the synchronous per-signal handler the scheduler invokes
// from each symbol's worker goroutine. It must never panic and should
// report failures through its own logging — the worker only logs that a
// call returned an error (spec.md §4.3: "the worker never dies on a
// processing error").
type Processor interface {
	Process(ctx context.Context, sig Signal) error
}

type symbolQueue struct {
	ch   chan Signal
	stop chan struct{}
	once sync.Once
}

// Scheduler owns one bounded FIFO queue and worker per symbol.
type Scheduler struct {
	proc    Processor
	backlog int
	metrics metrics.SchedulerView

	mu      sync.Mutex
	queues  map[string]*symbolQueue
	wg      sync.WaitGroup
	rootCtx context.Context
}

// New builds a Scheduler. backlog is the per-symbol queue capacity
// (spec.md §4.3 default 500).
func New(ctx context.Context, proc Processor, backlog int) *Scheduler {
	return &Scheduler{
		proc:    proc,
		backlog: backlog,
		queues:  make(map[string]*symbolQueue),
		rootCtx: ctx,
	}
}

// WithMetrics attaches a metric facade; calling it is optional, every
// recording call below guards against a nil field.
func (s *Scheduler) WithMetrics(m metrics.SchedulerView) *Scheduler {
	s.metrics = m
	return s
}

// Enqueue appends sig to its symbol's backlog, lazily spawning the worker on
// first use. It returns false immediately if the backlog is full — no
// worker is spawned on a reject (spec.md §4.3, §8 scenario "queue full").
func (s *Scheduler) Enqueue(sig Signal) bool {
	q := s.queueFor(sig.Symbol)
	select {
	case q.ch <- sig:
		return true
	default:
		return false
	}
}

func (s *Scheduler) queueFor(symbol string) *symbolQueue {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[symbol]
	if ok {
		return q
	}
	q = &symbolQueue{
		ch:   make(chan Signal, s.backlog),
		stop: make(chan struct{}),
	}
	s.queues[symbol] = q
	s.wg.Add(1)
	if s.metrics.ActiveWorkers != nil {
		s.metrics.ActiveWorkers.Add(1)
	}
	go s.runWorker(symbol, q)
	return q
}

func (s *Scheduler) runWorker(symbol string, q *symbolQueue) {
	defer s.wg.Done()
	if s.metrics.ActiveWorkers != nil {
		defer s.metrics.ActiveWorkers.Add(-1)
	}
	for {
		if s.metrics.QueueDepth != nil {
			s.metrics.QueueDepth.WithLabel(symbol).Set(float64(len(q.ch)))
		}
		select {
		case <-q.stop:
			return
		case <-s.rootCtx.Done():
			return
		case sig := <-q.ch:
			if err := s.proc.Process(s.rootCtx, sig); err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("signal processing failed, continuing")
				if s.metrics.SignalsFailed != nil {
					s.metrics.SignalsFailed.Inc()
				}
				continue
			}
			if s.metrics.SignalsProcessed != nil {
				s.metrics.SignalsProcessed.Inc()
			}
		}
	}
}

// StopSymbol stops symbol's worker after its current and already-queued
// items drain no further — in-flight processing runs to completion, but no
// new items are dequeued after the stop flag is observed (spec.md §4.3).
func (s *Scheduler) StopSymbol(symbol string) {
	s.mu.Lock()
	q, ok := s.queues[symbol]
	s.mu.Unlock()
	if !ok {
		return
	}
	q.once.Do(func() { close(q.stop) })
}

// StopAll stops every symbol's worker and waits for in-flight processing to
// finish (spec.md §4.3).
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	symbols := make([]string, 0, len(s.queues))
	for sym := range s.queues {
		symbols = append(symbols, sym)
	}
	s.mu.Unlock()

	for _, sym := range symbols {
		s.StopSymbol(sym)
	}
	s.wg.Wait()
}
