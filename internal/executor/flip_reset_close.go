package executor

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"tradeflow/internal/cfg"
	"tradeflow/internal/exchange/bitunix"
	"tradeflow/internal/monitor"
	"tradeflow/internal/numeric"
)

func monitorOpenPositionFrom(symbol string, pos bitunix.Position, info bitunix.SymbolInfo, marginCoin string) monitor.OpenPosition {
	return monitor.OpenPosition{
		Symbol:         symbol,
		PositionID:     pos.PositionID,
		Side:           pos.Side,
		EntryPrice:     pos.EntryPrice,
		InitialQty:     pos.Qty,
		BasePrecision:  info.BasePrecision,
		QuotePrecision: info.QuotePrecision,
		MarginCoin:     marginCoin,
	}
}

// flip closes the current position, detaches its monitor, then runs the
// full Open sequence for the new side from scratch (spec.md §4.4 Flip
// sequence).
func (e *Executor) flip(symbol string, current bitunix.Position, wantSide numeric.Side, pc cfg.PairConfig) error {
	if err := e.gw.CloseMarket(symbol, current.Qty, current.Side, current.PositionID); err != nil {
		return fmt.Errorf("flip(%s): closeMarket: %w", symbol, err)
	}
	e.monitors.Detach(symbol)
	if err := e.open(symbol, wantSide, pc); err != nil {
		return fmt.Errorf("flip(%s): %w", symbol, err)
	}
	return nil
}

// reset cancels the existing TP conditionals (preserving any SL
// conditional), recomputes the SL off the position's current entry price,
// and replaces the TP ladder, then re-attaches the monitor with fresh
// breakeven/trail state (spec.md §4.4 Reset sequence, RESET_ORDERS policy).
func (e *Executor) reset(symbol string, pos bitunix.Position, pc cfg.PairConfig) error {
	conds, err := e.gw.GetPendingConditionals(symbol, 0)
	if err != nil {
		return fmt.Errorf("reset(%s): getPendingConditionals: %w", symbol, err)
	}
	for _, cond := range conds {
		if cond.TPPrice == nil {
			continue
		}
		if err := e.gw.CancelConditional(symbol, cond.ID); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("conditional", cond.ID).Msg("reset: cancel TP conditional failed")
		}
	}

	symbolInfo, err := e.gw.GetSymbolInfo(symbol)
	if err != nil {
		return fmt.Errorf("reset(%s): getSymbolInfo: %w", symbol, err)
	}

	if pc.SLEnabled {
		slFinal := stopLossFor(pos.Side, pos.EntryPrice, pc.SLPct, symbolInfo.QuotePrecision)
		if lastPrice, err := e.gw.GetLastPrice(symbol); err == nil {
			slFinal = numeric.ClampAntiInstantFill(pos.Side, slFinal, lastPrice, symbolInfo.QuotePrecision, e.antiInstantTicks)
		}
		if _, err := e.gw.EnsurePositionSL(symbol, pos.PositionID, slFinal); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("reset: ensurePositionSL failed")
		}
	}

	if pc.TPEnabled && len(pc.TPLevels) > 0 {
		e.placeTPLadder(symbol, pos.PositionID, pos.Side, pos.EntryPrice, pos.Qty, pc, symbolInfo)
	}

	e.monitors.Attach(symbol, monitorOpenPositionFrom(symbol, pos, symbolInfo, e.marginCoin), pc)
	return nil
}

// manualTPClose cancels every pending TP conditional, then flattens the
// position at market, detaching its monitor (spec.md §4.4 Manual-TP-close
// sequence, triggered by a BUY_TP/SELL_TP signal matching the open side).
func (e *Executor) manualTPClose(symbol string, pos bitunix.Position, pc cfg.PairConfig) error {
	conds, err := e.gw.GetPendingConditionals(symbol, 0)
	if err != nil {
		return fmt.Errorf("manualTPClose(%s): getPendingConditionals: %w", symbol, err)
	}
	for _, cond := range conds {
		if cond.TPPrice == nil {
			continue
		}
		if err := e.gw.CancelConditional(symbol, cond.ID); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("conditional", cond.ID).Msg("manualTPClose: cancel TP conditional failed")
		}
	}

	if err := e.gw.CloseMarket(symbol, pos.Qty, pos.Side, pos.PositionID); err != nil {
		return fmt.Errorf("manualTPClose(%s): closeMarket: %w", symbol, err)
	}
	e.monitors.Detach(symbol)
	return nil
}
