// Package numeric implements the tick-aligned decimal arithmetic the trading
// engine needs: truncation to exchange precision, stop-loss/take-profit
// derivation from an entry price, and the anti-instant-fill clamp applied to
// every stop-loss before it is sent to the exchange.
//
// All prices and quantities are shopspring/decimal values. Binary floats
// never enter this package — truncation must be exactly reproducible, and
// float64 cannot guarantee that for arbitrary decimal inputs.
package numeric

import "github.com/shopspring/decimal"

// Tick returns the minimum price/quantity increment at the given number of
// fractional digits: 10^(-precision), or 1 when precision is 0.
func Tick(precision int32) decimal.Decimal {
	if precision <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.New(1, -precision)
}

// Truncate truncates v toward zero to precision fractional digits. This is
// the only rounding mode used anywhere in tradeflow: the exchange rejects
// over-precise values, and truncation (never round-half-up) is what spec.md
// §4.1 and §8 invariant 4 require.
func Truncate(v decimal.Decimal, precision int32) decimal.Decimal {
	return v.Truncate(precision)
}

// StopLossLong derives the stop-loss price for a LONG position from entry
// price e at precision qp, enforcing sl < e.
func StopLossLong(e, slPct decimal.Decimal, qp int32) decimal.Decimal {
	sl := Truncate(e.Mul(decimal.NewFromInt(1).Sub(slPct)), qp)
	if sl.GreaterThanOrEqual(e) {
		sl = Truncate(e.Sub(Tick(qp)), qp)
	}
	return sl
}

// StopLossShort derives the stop-loss price for a SHORT position, enforcing
// sl > e.
func StopLossShort(e, slPct decimal.Decimal, qp int32) decimal.Decimal {
	sl := Truncate(e.Mul(decimal.NewFromInt(1).Add(slPct)), qp)
	if sl.LessThanOrEqual(e) {
		sl = Truncate(e.Add(Tick(qp)), qp)
	}
	return sl
}

// TakeProfitLong derives a take-profit price for a LONG position, enforcing
// tp > e.
func TakeProfitLong(e, targetPct decimal.Decimal, qp int32) decimal.Decimal {
	tp := Truncate(e.Mul(decimal.NewFromInt(1).Add(targetPct)), qp)
	if tp.LessThanOrEqual(e) {
		tp = Truncate(e.Add(Tick(qp)), qp)
	}
	return tp
}

// TakeProfitShort derives a take-profit price for a SHORT position,
// enforcing tp < e.
func TakeProfitShort(e, targetPct decimal.Decimal, qp int32) decimal.Decimal {
	tp := Truncate(e.Mul(decimal.NewFromInt(1).Sub(targetPct)), qp)
	if tp.GreaterThanOrEqual(e) {
		tp = Truncate(e.Sub(Tick(qp)), qp)
	}
	return tp
}

// Side identifies a position direction.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// ClampAntiInstantFill adjusts a proposed stop-loss so that it cannot
// trigger the instant it's submitted: for LONG, sl must be <= price - k*tick;
// for SHORT, sl must be >= price + k*tick. k defaults to 2 ticks per spec.md
// §4.1.
func ClampAntiInstantFill(side Side, sl, price decimal.Decimal, qp int32, k int64) decimal.Decimal {
	t := Tick(qp)
	buffer := t.Mul(decimal.NewFromInt(k))
	switch side {
	case Long:
		limit := Truncate(price.Sub(buffer), qp)
		if sl.GreaterThan(limit) {
			return limit
		}
	case Short:
		limit := Truncate(price.Add(buffer), qp)
		if sl.LessThan(limit) {
			return limit
		}
	}
	return sl
}

// MonotoneTighten reports whether moving the stop-loss from last to
// candidate is a valid tightening: strictly greater for LONG, strictly less
// for SHORT. A false result means the caller must drop the operation
// without calling the exchange (spec.md §4.1, §8 invariant 2).
func MonotoneTighten(side Side, last, candidate decimal.Decimal) bool {
	switch side {
	case Long:
		return candidate.GreaterThan(last)
	case Short:
		return candidate.LessThan(last)
	default:
		return false
	}
}

// TPTranche is one computed slice of a take-profit ladder.
type TPTranche struct {
	Level int
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// TPLadder is the outcome of sizing a take-profit ladder: the per-level
// tranches (non-zero quantity only) and the leftover runner quantity.
type TPLadder struct {
	Tranches []TPTranche
	Runner   decimal.Decimal
}

// TPLevelInput describes one enabled TP level to size.
type TPLevelInput struct {
	Level      int
	TargetPct  decimal.Decimal
	CloseFrac  decimal.Decimal
}

// SizeTPLadder implements spec.md §4.4's TP sizing rule: truncate each
// tranche to basePrecision, fold a too-small runner into the last tranche so
// the exchange doesn't reject it, and leave any qualifying remainder as an
// unmanaged runner. levels must already be ordered ascending by Level and
// contain only enabled entries.
func SizeTPLadder(side Side, entry, totalQty decimal.Decimal, levels []TPLevelInput, basePrecision, quotePrecision int32, minTradeVolume decimal.Decimal) TPLadder {
	tranches := make([]TPTranche, 0, len(levels))
	sum := decimal.Zero
	for _, lvl := range levels {
		qty := Truncate(totalQty.Mul(lvl.CloseFrac), basePrecision)
		sum = sum.Add(qty)
		var price decimal.Decimal
		if side == Long {
			price = TakeProfitLong(entry, lvl.TargetPct, quotePrecision)
		} else {
			price = TakeProfitShort(entry, lvl.TargetPct, quotePrecision)
		}
		tranches = append(tranches, TPTranche{Level: lvl.Level, Price: price, Qty: qty})
	}

	runner := Truncate(totalQty.Sub(sum), basePrecision)
	if runner.GreaterThan(decimal.Zero) && runner.LessThan(minTradeVolume) && len(tranches) > 0 {
		last := len(tranches) - 1
		tranches[last].Qty = Truncate(tranches[last].Qty.Add(runner), basePrecision)
		runner = decimal.Zero
	}

	nonZero := tranches[:0:0]
	for _, t := range tranches {
		if t.Qty.GreaterThan(decimal.Zero) {
			nonZero = append(nonZero, t)
		}
	}

	return TPLadder{Tranches: nonZero, Runner: runner}
}

// SizeQty truncates a raw computed order quantity to basePrecision and raises
// it to minTradeVolume if it would otherwise fall below the exchange's
// minimum (spec.md §4.4 step 3).
func SizeQty(raw decimal.Decimal, basePrecision int32, minTradeVolume decimal.Decimal) decimal.Decimal {
	qty := Truncate(raw, basePrecision)
	if qty.LessThan(minTradeVolume) {
		return Truncate(minTradeVolume, basePrecision)
	}
	return qty
}
