package executor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradeflow/internal/cfg"
	"tradeflow/internal/exchange/bitunix"
	"tradeflow/internal/monitor"
	"tradeflow/internal/numeric"
)

// open runs the full Open sequence for a fresh position (spec.md §4.4). Every
// log line across its many REST round trips carries the same correlation id
// so an operator can follow one attempt in the logs (SPEC_FULL.md §F.3).
func (e *Executor) open(symbol string, side numeric.Side, pc cfg.PairConfig) error {
	corrID := bitunix.NewCorrelationID()
	log.Info().Str("symbol", symbol).Str("side", string(side)).Str("correlation", corrID).Msg("open: starting")

	// Step 1: best-effort margin/leverage, failures logged only by the gateway.
	_ = e.gw.SetMarginMode(symbol, e.marginCoin, string(pc.MarginMode))
	_ = e.gw.SetLeverage(symbol, e.marginCoin, pc.Leverage)

	// Step 2.
	symbolInfo, err := e.gw.GetSymbolInfo(symbol)
	if err != nil {
		return fmt.Errorf("open(%s): getSymbolInfo: %w", symbol, err)
	}
	lastPrice, err := e.gw.GetLastPrice(symbol)
	if err != nil {
		return fmt.Errorf("open(%s): getLastPrice: %w", symbol, err)
	}

	// Step 3.
	qty, err := e.computeQty(symbol, side, pc, symbolInfo, lastPrice)
	if err != nil {
		return fmt.Errorf("open(%s): %w", symbol, err)
	}

	// Step 4.
	var slProvisional decimal.Decimal
	var orderID string
	openTsMs := time.Now().UnixMilli()
	if pc.SLEnabled {
		slProvisional = stopLossFor(side, lastPrice, pc.SLPct, symbolInfo.QuotePrecision)
		slProvisional = numeric.ClampAntiInstantFill(side, slProvisional, lastPrice, symbolInfo.QuotePrecision, e.antiInstantTicks)
		orderID, err = e.gw.OpenMarketWithProvisionalSL(symbol, qty, side, slProvisional)
	} else {
		orderID, err = e.gw.OpenMarket(symbol, qty, side)
	}
	if err != nil {
		return fmt.Errorf("open(%s): %w", symbol, err)
	}

	// Step 5.
	fillPrice, err := e.pollOrderFill(symbol, orderID, lastPrice)
	if err != nil {
		return fmt.Errorf("open(%s): %w", symbol, err)
	}

	// Step 6.
	var provisionalIds []string
	if pc.SLEnabled {
		ids, err := e.gw.CaptureProvisionalSlIds(symbol, slProvisional.String(), openTsMs-e.provisionalCaptureLookback.Milliseconds(), e.provisionalCaptureTries, e.provisionalCaptureSleep)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("correlation", corrID).Msg("open: captureProvisionalSlIds failed, continuing")
		}
		provisionalIds = ids
	}

	// Step 7.
	position, err := e.pollPositionAppears(symbol, side, qty)
	if err != nil {
		return fmt.Errorf("open(%s): %w", symbol, err)
	}

	// Step 8.
	entryPrice := position.EntryPrice
	if entryPrice.IsZero() {
		entryPrice = fillPrice
	}
	var slOrderID string
	if pc.SLEnabled {
		slFinal := stopLossFor(side, entryPrice, pc.SLPct, symbolInfo.QuotePrecision)
		marketNow, err := e.gw.GetLastPrice(symbol)
		if err != nil {
			marketNow = lastPrice
		}
		slFinal = numeric.ClampAntiInstantFill(side, slFinal, marketNow, symbolInfo.QuotePrecision, e.antiInstantTicks)
		slOrderID, err = e.gw.EnsurePositionSL(symbol, position.PositionID, slFinal)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("correlation", corrID).Msg("open: ensurePositionSL failed")
		}
	}

	// Step 9.
	if pc.TPEnabled && len(pc.TPLevels) > 0 {
		e.placeTPLadder(symbol, position.PositionID, side, entryPrice, position.Qty, pc, symbolInfo)
	}

	// Step 10.
	for _, id := range provisionalIds {
		if id == slOrderID {
			continue
		}
		if err := e.gw.CancelConditional(symbol, id); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("conditional", id).Str("correlation", corrID).Msg("open: cancel provisional SL failed")
		}
	}

	// Step 11.
	e.monitors.Attach(symbol, monitor.OpenPosition{
		Symbol:         symbol,
		PositionID:     position.PositionID,
		Side:           side,
		EntryPrice:     entryPrice,
		InitialQty:     position.Qty,
		BasePrecision:  symbolInfo.BasePrecision,
		QuotePrecision: symbolInfo.QuotePrecision,
		MarginCoin:     e.marginCoin,
	}, pc)

	return nil
}

func stopLossFor(side numeric.Side, entry, slPct decimal.Decimal, qp int32) decimal.Decimal {
	if side == numeric.Long {
		return numeric.StopLossLong(entry, slPct, qp)
	}
	return numeric.StopLossShort(entry, slPct, qp)
}

func (e *Executor) computeQty(symbol string, side numeric.Side, pc cfg.PairConfig, info bitunix.SymbolInfo, lastPrice decimal.Decimal) (decimal.Decimal, error) {
	var raw decimal.Decimal
	switch pc.OrderSizeType {
	case cfg.OrderSizeMarginUSDT:
		raw = pc.OrderSizeValue.Mul(decimal.NewFromInt(int64(pc.Leverage))).Div(lastPrice)
	case cfg.OrderSizeNotionalUSDT:
		raw = pc.OrderSizeValue.Div(lastPrice)
	case cfg.OrderSizePctBalance:
		available, err := e.gw.GetAccountAvailable(e.marginCoin)
		if err != nil {
			return decimal.Zero, fmt.Errorf("getAccountAvailable: %w", err)
		}
		raw = available.Mul(pc.OrderSizeValue).Mul(decimal.NewFromInt(int64(pc.Leverage))).Div(lastPrice)
	default:
		return decimal.Zero, fmt.Errorf("unrecognized orderSizeType %q", pc.OrderSizeType)
	}
	qty := numeric.SizeQty(raw, info.BasePrecision, info.MinTradeVolume)
	if !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("computed a non-positive qty for %s side %s", symbol, side)
	}
	return qty, nil
}

// pollOrderFill polls getOrderDetail until the order is filled or
// part-filled, fatally aborting on CANCELED or on timeout (spec.md §4.4
// step 5).
func (e *Executor) pollOrderFill(symbol, orderID string, preTradeLastPrice decimal.Decimal) (decimal.Decimal, error) {
	deadline := time.Now().Add(e.orderFillPollTimeout)
	for {
		detail, err := e.gw.GetOrderDetail(orderID)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("order", orderID).Msg("open: getOrderDetail failed, retrying")
		} else {
			switch detail.Status {
			case bitunix.OrderStatusCanceled:
				return decimal.Zero, fmt.Errorf("order %s was canceled before filling", orderID)
			case bitunix.OrderStatusFilled, bitunix.OrderStatusPartFilled:
				if detail.TradeQty.IsPositive() {
					if detail.AvgPrice.IsPositive() {
						return detail.AvgPrice, nil
					}
					return preTradeLastPrice, nil
				}
			}
		}
		if time.Now().After(deadline) {
			return decimal.Zero, fmt.Errorf("order %s did not fill within %s", orderID, e.orderFillPollTimeout)
		}
		if e.metrics.OrderFillPollRetries != nil {
			e.metrics.OrderFillPollRetries.Inc()
		}
		time.Sleep(e.orderFillPollInterval)
	}
}

// pollPositionAppears polls getPendingPositions until a position matching
// side appears, fatally aborting on timeout (spec.md §4.4 step 7).
func (e *Executor) pollPositionAppears(symbol string, side numeric.Side, wantQty decimal.Decimal) (bitunix.Position, error) {
	deadline := time.Now().Add(e.positionAppearPollTimeout)
	for {
		positions, err := e.gw.GetPendingPositions(symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("open: getPendingPositions failed, retrying")
		} else if pos, ok := bitunix.FindBySide(positions, side, wantQty); ok {
			return pos, nil
		}
		if time.Now().After(deadline) {
			return bitunix.Position{}, fmt.Errorf("no %s position appeared for %s within %s: provisional SL may have triggered before fill observation", side, symbol, e.positionAppearPollTimeout)
		}
		if e.metrics.PositionAppearPollRetries != nil {
			e.metrics.PositionAppearPollRetries.Inc()
		}
		time.Sleep(e.positionAppearPollInterval)
	}
}

// placeTPLadder sizes and places the take-profit ladder (spec.md §4.4 TP
// sizing rule). Per-level failures are logged; the remaining levels are
// still attempted.
func (e *Executor) placeTPLadder(symbol, positionID string, side numeric.Side, entry, totalQty decimal.Decimal, pc cfg.PairConfig, info bitunix.SymbolInfo) {
	levels := make([]numeric.TPLevelInput, 0, len(pc.TPLevels))
	for _, l := range pc.TPLevels {
		levels = append(levels, numeric.TPLevelInput{Level: l.Level, TargetPct: l.TargetPct, CloseFrac: l.CloseFrac})
	}
	ladder := numeric.SizeTPLadder(side, entry, totalQty, levels, info.BasePrecision, info.QuotePrecision, info.MinTradeVolume)
	for _, tranche := range ladder.Tranches {
		if err := e.gw.PlaceTpPartial(symbol, positionID, tranche.Price, tranche.Qty); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Int("level", tranche.Level).Msg("open: placeTpPartial failed")
			continue
		}
		if e.metrics.TPPlacements != nil {
			e.metrics.TPPlacements.Inc()
		}
	}
}
