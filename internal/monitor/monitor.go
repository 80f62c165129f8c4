// Package monitor implements the long-running per-symbol position monitor:
// break-even promotion and price-anchored trailing-stop tightening, applied
// by polling the exchange once per second (spec.md §4.5). The executor
// attaches and detaches positions; the monitor owns all trailing state and
// serializes access to it behind a per-worker mutex (spec.md §5).
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradeflow/internal/cfg"
	"tradeflow/internal/exchange/bitunix"
	"tradeflow/internal/metrics"
	"tradeflow/internal/numeric"
)

// OpenPosition is the runtime record of one exchange-side position the
// monitor is watching (spec.md §3).
type OpenPosition struct {
	Symbol         string
	PositionID     string
	Side           numeric.Side
	EntryPrice     decimal.Decimal
	InitialQty     decimal.Decimal
	BasePrecision  int32
	QuotePrecision int32
	MarginCoin     string
}

// Gateway is the subset of the exchange gateway the monitor calls.
type Gateway interface {
	GetPendingPositions(symbol string) ([]bitunix.Position, error)
	GetLastPrice(symbol string) (decimal.Decimal, error)
	ModifyPositionSL(symbol, positionID string, slPrice decimal.Decimal) (string, error)
}

type trailState struct {
	active bool
	best   decimal.Decimal
	anchor decimal.Decimal
}

// worker holds one symbol's monitor state, guarded by mu per spec.md §5.
type worker struct {
	symbol  string
	gw      Gateway
	metrics metrics.MonitorView

	mu                 sync.Mutex
	position           *OpenPosition
	config             *cfg.PairConfig
	lastAppliedSl      decimal.Decimal
	slSeeded           bool
	breakevenDone      bool
	trail              trailState
	stop               chan struct{}
	stopped            bool
}

// Manager owns one worker per symbol, created lazily on first attachment.
type Manager struct {
	gw       Gateway
	interval time.Duration
	metrics  metrics.MonitorView

	mu      sync.Mutex
	workers map[string]*worker
	ctx     context.Context
}

// NewManager builds a Manager. interval is the poll cadence (spec.md §4.5
// default 1s).
func NewManager(ctx context.Context, gw Gateway, interval time.Duration) *Manager {
	return &Manager{gw: gw, interval: interval, workers: make(map[string]*worker), ctx: ctx}
}

// WithMetrics attaches a metric facade; calling it is optional, every
// recording call below guards against a nil field.
func (m *Manager) WithMetrics(mv metrics.MonitorView) *Manager {
	m.metrics = mv
	return m
}

// Attach assigns (position, config) to symbol's monitor, spawning the
// worker on first use and resetting all trailing state — a fresh attachment
// always starts with breakeven/trail state cleared (spec.md §3 Monitor
// state: "Reset whenever the position reference is replaced").
func (m *Manager) Attach(symbol string, pos OpenPosition, pc cfg.PairConfig) {
	w := m.workerFor(symbol)
	w.mu.Lock()
	hadPosition := w.position != nil
	w.position = &pos
	w.config = &pc
	w.lastAppliedSl = decimal.Decimal{}
	w.slSeeded = false
	w.breakevenDone = false
	w.trail = trailState{}
	w.mu.Unlock()
	if !hadPosition && m.metrics.ActivePositions != nil {
		m.metrics.ActivePositions.Add(1)
	}
}

// Detach clears symbol's current position, making the next tick a no-op
// until Attach is called again.
func (m *Manager) Detach(symbol string) {
	w := m.workerFor(symbol)
	w.mu.Lock()
	hadPosition := w.position != nil
	w.position = nil
	w.config = nil
	w.mu.Unlock()
	if hadPosition && m.metrics.ActivePositions != nil {
		m.metrics.ActivePositions.Add(-1)
	}
}

func (m *Manager) workerFor(symbol string) *worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[symbol]
	if ok {
		return w
	}
	w = &worker{symbol: symbol, gw: m.gw, metrics: m.metrics, stop: make(chan struct{})}
	m.workers[symbol] = w
	go w.run(m.ctx, m.interval)
	return w
}

// StopAll signals every worker to exit. In-flight ticks finish naturally.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workers {
		w.mu.Lock()
		if !w.stopped {
			w.stopped = true
			close(w.stop)
		}
		w.mu.Unlock()
	}
}

func (w *worker) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *worker) tick() {
	w.mu.Lock()
	pos := w.position
	pc := w.config
	w.mu.Unlock()

	if pos == nil || pc == nil {
		return
	}
	if !pc.SLEnabled || (!pc.BreakevenEnabled && !pc.TrailingEnabled) {
		return
	}

	positions, err := w.gw.GetPendingPositions(pos.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("monitor: getPendingPositions failed")
		return
	}

	var match *bitunix.Position
	for i := range positions {
		if positions[i].PositionID == pos.PositionID {
			match = &positions[i]
			break
		}
	}
	if match == nil {
		if len(positions) == 0 {
			w.mu.Lock()
			w.position = nil
			w.config = nil
			w.mu.Unlock()
			if w.metrics.ExternalCloses != nil {
				w.metrics.ExternalCloses.Inc()
			}
			if w.metrics.ActivePositions != nil {
				w.metrics.ActivePositions.Add(-1)
			}
		}
		return
	}
	if !match.Qty.IsPositive() {
		w.mu.Lock()
		w.position = nil
		w.config = nil
		w.mu.Unlock()
		if w.metrics.ExternalCloses != nil {
			w.metrics.ExternalCloses.Inc()
		}
		if w.metrics.ActivePositions != nil {
			w.metrics.ActivePositions.Add(-1)
		}
		return
	}

	w.mu.Lock()
	if !w.slSeeded && match.SLPrice != nil {
		w.lastAppliedSl = *match.SLPrice
		w.slSeeded = true
	}
	w.mu.Unlock()

	price, err := w.gw.GetLastPrice(pos.Symbol)
	if err != nil || !price.IsPositive() {
		if err != nil {
			log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("monitor: getLastPrice failed")
		}
		return
	}

	if pc.BreakevenEnabled {
		w.applyBreakeven(pos, pc, price)
	}
	if pc.TrailingEnabled {
		w.applyTrailing(pos, pc, price)
	}
}

func (w *worker) applyBreakeven(pos *OpenPosition, pc *cfg.PairConfig, price decimal.Decimal) {
	w.mu.Lock()
	done := w.breakevenDone
	w.mu.Unlock()
	if done {
		return
	}

	triggered, candidate := breakevenCandidate(pos.Side, pos.EntryPrice, price, pc.BreakevenTriggerPct, pc.BreakevenOffsetPct, pos.QuotePrecision)
	if !triggered {
		return
	}

	if w.tighten(pos, candidate, price) {
		w.mu.Lock()
		w.breakevenDone = true
		w.mu.Unlock()
		if w.metrics.BreakevenPromotions != nil {
			w.metrics.BreakevenPromotions.Inc()
		}
	}
}

// breakevenCandidate reports whether the breakeven trigger has fired and, if
// so, the candidate SL price (spec.md §4.5 Break-even).
func breakevenCandidate(side numeric.Side, entry, price, triggerPct, offsetPct decimal.Decimal, qp int32) (bool, decimal.Decimal) {
	one := decimal.NewFromInt(1)
	switch side {
	case numeric.Long:
		threshold := entry.Mul(one.Add(triggerPct))
		if price.LessThan(threshold) {
			return false, decimal.Decimal{}
		}
		return true, numeric.Truncate(entry.Mul(one.Add(offsetPct)), qp)
	default:
		threshold := entry.Mul(one.Sub(triggerPct))
		if price.GreaterThan(threshold) {
			return false, decimal.Decimal{}
		}
		return true, numeric.Truncate(entry.Mul(one.Sub(offsetPct)), qp)
	}
}

func (w *worker) applyTrailing(pos *OpenPosition, pc *cfg.PairConfig, price decimal.Decimal) {
	w.mu.Lock()
	trail := w.trail
	w.mu.Unlock()

	one := decimal.NewFromInt(1)

	if !trail.active {
		activated := false
		switch pos.Side {
		case numeric.Long:
			activated = price.GreaterThanOrEqual(pos.EntryPrice.Mul(one.Add(pc.TrailingTriggerPct)))
		default:
			activated = price.LessThanOrEqual(pos.EntryPrice.Mul(one.Sub(pc.TrailingTriggerPct)))
		}
		if !activated {
			return
		}
		trail = trailState{active: true, best: price, anchor: price}
		w.mu.Lock()
		w.trail = trail
		w.mu.Unlock()

		if pc.TrailingMoveImmediately {
			candidate := trailingStopPrice(pos.Side, price, pc.TrailingDistancePct, pos.QuotePrecision)
			w.tighten(pos, candidate, price)
		}
		return
	}

	favorable := isMoreFavorable(pos.Side, price, trail.best)
	if favorable {
		trail.best = price
	}

	stepped := false
	switch pos.Side {
	case numeric.Long:
		stepped = trail.best.GreaterThanOrEqual(trail.anchor.Mul(one.Add(pc.TrailingStepPct)))
	default:
		stepped = trail.best.LessThanOrEqual(trail.anchor.Mul(one.Sub(pc.TrailingStepPct)))
	}

	if stepped {
		candidate := trailingStopPrice(pos.Side, trail.best, pc.TrailingDistancePct, pos.QuotePrecision)
		if w.tighten(pos, candidate, price) {
			trail.anchor = trail.best
		}
	}

	w.mu.Lock()
	w.trail = trail
	w.mu.Unlock()
}

func isMoreFavorable(side numeric.Side, price, best decimal.Decimal) bool {
	if side == numeric.Long {
		return price.GreaterThan(best)
	}
	return price.LessThan(best)
}

// trailingStopPrice computes trailBest · (1 ∓ distancePct): minus for LONG,
// plus for SHORT (spec.md §4.5 Trailing).
func trailingStopPrice(side numeric.Side, anchor, distancePct decimal.Decimal, qp int32) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if side == numeric.Long {
		return numeric.Truncate(anchor.Mul(one.Sub(distancePct)), qp)
	}
	return numeric.Truncate(anchor.Mul(one.Add(distancePct)), qp)
}

// tighten applies the anti-instant clamp and the monotone-tightening
// invariant, then calls modifyPositionSL if both checks pass. It reports
// whether the SL was actually applied.
func (w *worker) tighten(pos *OpenPosition, candidate, price decimal.Decimal) bool {
	clamped := numeric.ClampAntiInstantFill(pos.Side, candidate, price, pos.QuotePrecision, 2)

	w.mu.Lock()
	last := w.lastAppliedSl
	seeded := w.slSeeded
	w.mu.Unlock()

	if seeded && !numeric.MonotoneTighten(pos.Side, last, clamped) {
		return false
	}

	if _, err := w.gw.ModifyPositionSL(pos.Symbol, pos.PositionID, clamped); err != nil {
		log.Warn().Err(err).Str("symbol", pos.Symbol).Str("position", pos.PositionID).Msg("monitor: SL tighten failed")
		return false
	}

	w.mu.Lock()
	w.lastAppliedSl = clamped
	w.slSeeded = true
	w.mu.Unlock()
	if w.metrics.SLTightenings != nil {
		w.metrics.SLTightenings.Inc()
	}
	return true
}
