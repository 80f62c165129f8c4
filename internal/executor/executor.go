// Package executor implements the trade-lifecycle state machine: it
// consumes one signal at a time per symbol and drives the open / flip /
// reset / manual-TP-close transitions, including the provisional-then-final
// stop-loss handoff and the partial take-profit ladder (spec.md §4.4). It
// is the scheduler's Processor and the monitor's sole caller of Attach and
// Detach.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradeflow/internal/cfg"
	"tradeflow/internal/common"
	"tradeflow/internal/exchange/bitunix"
	"tradeflow/internal/metrics"
	"tradeflow/internal/monitor"
	"tradeflow/internal/numeric"
	"tradeflow/internal/scheduler"
)

// Gateway is the exchange surface the executor drives (spec.md §4.2).
type Gateway interface {
	SetMarginMode(symbol, marginCoin, mode string) error
	SetLeverage(symbol, marginCoin string, leverage int) error
	GetSymbolInfo(symbol string) (bitunix.SymbolInfo, error)
	GetLastPrice(symbol string) (decimal.Decimal, error)
	GetAccountAvailable(marginCoin string) (decimal.Decimal, error)
	GetPendingPositions(symbol string) ([]bitunix.Position, error)
	GetPendingConditionals(symbol string, limit int) ([]bitunix.Conditional, error)
	GetOrderDetail(orderID string) (bitunix.OrderDetail, error)
	OpenMarket(symbol string, qty decimal.Decimal, side numeric.Side) (string, error)
	OpenMarketWithProvisionalSL(symbol string, qty decimal.Decimal, side numeric.Side, slPrice decimal.Decimal) (string, error)
	CloseMarket(symbol string, qty decimal.Decimal, side numeric.Side, positionID string) error
	EnsurePositionSL(symbol, positionID string, slPrice decimal.Decimal) (string, error)
	PlaceTpPartial(symbol, positionID string, tpPrice, tpQty decimal.Decimal) error
	CancelConditional(symbol, id string) error
	CaptureProvisionalSlIds(symbol, slPriceStr string, sinceMs int64, tries int, sleep time.Duration) ([]string, error)
}

// MonitorAttacher is the subset of monitor.Manager the executor drives
// (spec.md §5: "the executor exclusively owns creation of positions").
type MonitorAttacher interface {
	Attach(symbol string, pos monitor.OpenPosition, pc cfg.PairConfig)
	Detach(symbol string)
}

// ConfigSource resolves the immutable per-symbol configuration view
// (spec.md §4.6).
type ConfigSource interface {
	PairConfigFor(symbol string) (cfg.PairConfig, bool)
}

// Kind is one of the four signal kinds the ingress layer recognizes
// (spec.md §3).
type Kind string

const (
	KindLong   Kind = "LONG"
	KindShort  Kind = "SHORT"
	KindBuyTP  Kind = "BUY_TP"
	KindSellTP Kind = "SELL_TP"
)

// Executor is the scheduler.Processor implementation driving the state
// machine described in spec.md §4.4.
type Executor struct {
	gw         Gateway
	monitors   MonitorAttacher
	cfgSrc     ConfigSource
	marginCoin string

	orderFillPollInterval      time.Duration
	orderFillPollTimeout       time.Duration
	positionAppearPollInterval time.Duration
	positionAppearPollTimeout  time.Duration
	provisionalCaptureTries    int
	provisionalCaptureSleep    time.Duration
	provisionalCaptureLookback time.Duration
	antiInstantTicks           int64
	metrics                    metrics.ExecutorView
}

// WithMetrics attaches a metric facade; calling it is optional, every
// recording call guards against a nil field.
func (e *Executor) WithMetrics(mv metrics.ExecutorView) *Executor {
	e.metrics = mv
	return e
}

// Option tunes the executor's timing constants, primarily for tests.
type Option func(*Executor)

// WithOrderFillPoll overrides the getOrderDetail poll cadence/timeout
// (spec.md §4.4 step 5 default: 1.5s / 60s).
func WithOrderFillPoll(interval, timeout time.Duration) Option {
	return func(e *Executor) { e.orderFillPollInterval, e.orderFillPollTimeout = interval, timeout }
}

// WithPositionAppearPoll overrides the getPendingPositions poll
// cadence/timeout (spec.md §4.4 step 7 default: 1.5s / 45s).
func WithPositionAppearPoll(interval, timeout time.Duration) Option {
	return func(e *Executor) { e.positionAppearPollInterval, e.positionAppearPollTimeout = interval, timeout }
}

// WithProvisionalCapture overrides captureProvisionalSlIds's retry shape
// (spec.md §4.2 default: 5 tries, 1s sleep, 60s lookback).
func WithProvisionalCapture(tries int, sleep, lookback time.Duration) Option {
	return func(e *Executor) {
		e.provisionalCaptureTries, e.provisionalCaptureSleep, e.provisionalCaptureLookback = tries, sleep, lookback
	}
}

// New builds an Executor with spec.md's default timing, overridable by opts.
func New(gw Gateway, monitors MonitorAttacher, cfgSrc ConfigSource, opts ...Option) *Executor {
	mustDuration := func(s string) time.Duration {
		d, err := time.ParseDuration(s)
		if err != nil {
			panic(fmt.Sprintf("executor: invalid built-in duration constant %q: %v", s, err))
		}
		return d
	}
	e := &Executor{
		gw:                         gw,
		monitors:                   monitors,
		cfgSrc:                     cfgSrc,
		marginCoin:                 common.DefaultMarginCoin,
		orderFillPollInterval:      mustDuration(common.DefaultOrderFillPollInterval),
		orderFillPollTimeout:       mustDuration(common.DefaultOrderFillPollTimeout),
		positionAppearPollInterval: mustDuration(common.DefaultPositionAppearPollInterval),
		positionAppearPollTimeout:  mustDuration(common.DefaultPositionAppearPollTimeout),
		provisionalCaptureTries:    common.DefaultProvisionalCaptureTries,
		provisionalCaptureSleep:    mustDuration(common.DefaultProvisionalCaptureSleep),
		provisionalCaptureLookback: mustDuration(common.DefaultProvisionalCaptureLookback),
		antiInstantTicks:           common.DefaultAntiInstantTicks,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process implements scheduler.Processor (spec.md §4.4 Signal dispatch).
func (e *Executor) Process(ctx context.Context, sig scheduler.Signal) error {
	symbol := sig.Symbol
	kind := Kind(fmt.Sprintf("%v", sig.Payload["signal"]))

	pc, ok := e.cfgSrc.PairConfigFor(symbol)
	if !ok {
		log.Warn().Str("symbol", symbol).Msg(common.ErrMsgNoPairConfig)
		return nil
	}

	positions, err := e.gw.GetPendingPositions(symbol)
	if err != nil {
		e.recordError()
		return fmt.Errorf("process(%s): %w", symbol, err)
	}
	pos, hasPos := firstPosition(positions)

	var result error
	switch kind {
	case KindLong, KindShort:
		result = e.dispatchDirectional(ctx, symbol, kind, pos, hasPos, pc)
	case KindBuyTP:
		if !hasPos || pos.Side != numeric.Long {
			log.Info().Str("symbol", symbol).Str("signal", string(kind)).Msg("dropping BUY_TP: no matching LONG position")
			return nil
		}
		result = e.timedManualTPClose(symbol, pos, pc)
	case KindSellTP:
		if !hasPos || pos.Side != numeric.Short {
			log.Info().Str("symbol", symbol).Str("signal", string(kind)).Msg("dropping SELL_TP: no matching SHORT position")
			return nil
		}
		result = e.timedManualTPClose(symbol, pos, pc)
	default:
		return fmt.Errorf("process(%s): unrecognized signal kind %q", symbol, kind)
	}
	if result != nil {
		e.recordError()
	}
	return result
}

func (e *Executor) recordError() {
	if e.metrics.ErrorsTotal != nil {
		e.metrics.ErrorsTotal.Inc()
	}
}

func (e *Executor) dispatchDirectional(ctx context.Context, symbol string, kind Kind, pos bitunix.Position, hasPos bool, pc cfg.PairConfig) error {
	wantSide := numeric.Long
	if kind == KindShort {
		wantSide = numeric.Short
	}

	if !hasPos {
		return e.timedOpen(symbol, wantSide, pc)
	}
	if pos.Side == wantSide {
		if pc.SameSidePolicy == cfg.SameSideIgnore {
			log.Info().Str("symbol", symbol).Msg("same-side signal ignored")
			return nil
		}
		return e.timedReset(symbol, pos, pc)
	}
	return e.timedFlip(symbol, pos, wantSide, pc)
}

func (e *Executor) timedOpen(symbol string, side numeric.Side, pc cfg.PairConfig) error {
	start := time.Now()
	err := e.open(symbol, side, pc)
	if e.metrics.OpenDuration != nil {
		e.metrics.OpenDuration.Observe(time.Since(start).Seconds())
	}
	if e.metrics.OpensTotal != nil {
		e.metrics.OpensTotal.Inc()
	}
	return err
}

func (e *Executor) timedFlip(symbol string, pos bitunix.Position, wantSide numeric.Side, pc cfg.PairConfig) error {
	start := time.Now()
	err := e.flip(symbol, pos, wantSide, pc)
	if e.metrics.FlipDuration != nil {
		e.metrics.FlipDuration.Observe(time.Since(start).Seconds())
	}
	if e.metrics.FlipsTotal != nil {
		e.metrics.FlipsTotal.Inc()
	}
	return err
}

func (e *Executor) timedReset(symbol string, pos bitunix.Position, pc cfg.PairConfig) error {
	start := time.Now()
	err := e.reset(symbol, pos, pc)
	if e.metrics.ResetDuration != nil {
		e.metrics.ResetDuration.Observe(time.Since(start).Seconds())
	}
	if e.metrics.ResetsTotal != nil {
		e.metrics.ResetsTotal.Inc()
	}
	return err
}

func (e *Executor) timedManualTPClose(symbol string, pos bitunix.Position, pc cfg.PairConfig) error {
	err := e.manualTPClose(symbol, pos, pc)
	if e.metrics.ManualClosesTotal != nil {
		e.metrics.ManualClosesTotal.Inc()
	}
	return err
}

func firstPosition(positions []bitunix.Position) (bitunix.Position, bool) {
	if len(positions) == 0 {
		return bitunix.Position{}, false
	}
	return positions[0], true
}
