package bitunix

import (
	"github.com/shopspring/decimal"
	"tradeflow/internal/numeric"
)

// SymbolInfo carries the precision/lot-size facts the executor needs before
// it can compute a quantity or a tick-aligned price (spec.md §3).
type SymbolInfo struct {
	BasePrecision  int32
	QuotePrecision int32
	MinTradeVolume decimal.Decimal
}

// Position is a runtime snapshot of one exchange-side position. SLPrice is
// nil when the exchange reports no position-scoped stop-loss yet attached.
type Position struct {
	Symbol     string
	PositionID string
	Side       numeric.Side
	Qty        decimal.Decimal
	EntryPrice decimal.Decimal
	MarginCoin string
	SLPrice    *decimal.Decimal
}

// OrderStatus is the closed set of order lifecycle states the gateway
// recognizes (spec.md §4.2).
type OrderStatus string

const (
	OrderStatusNew         OrderStatus = "NEW"
	OrderStatusPartFilled  OrderStatus = "PART_FILLED"
	OrderStatusFilled      OrderStatus = "FILLED"
	OrderStatusCanceled    OrderStatus = "CANCELED"
)

// OrderDetail is the result of getOrderDetail, with AvgPrice already
// resolved from whichever synonymous field the exchange used (spec.md §4.2).
type OrderDetail struct {
	OrderID   string
	Status    OrderStatus
	TradeQty  decimal.Decimal
	AvgPrice  decimal.Decimal
	DealMoney decimal.Decimal
}

// Conditional is a live SL- or TP-type conditional order. Exactly one of
// SLPrice/TPPrice is set for a given conditional in practice, mirroring the
// disjoint shape captureProvisionalSlIds filters on (spec.md §4.2).
type Conditional struct {
	ID          string
	Symbol      string
	CreatedAtMs int64
	SLPrice     *decimal.Decimal
	TPPrice     *decimal.Decimal
	Qty         decimal.Decimal
}

// OrderSide is the wire-level BUY/SELL, distinct from numeric.Side (the
// position direction) because a CLOSE uses the position's own opening side
// (spec.md §6).
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// SideForPosition returns the wire order side used both to OPEN and to
// CLOSE a position with the given direction (spec.md §6: "CLOSE side equals
// the side used to open").
func SideForPosition(side numeric.Side) OrderSide {
	if side == numeric.Long {
		return SideBuy
	}
	return SideSell
}
