package bitunix

import (
	"fmt"

	"github.com/shopspring/decimal"
	"tradeflow/internal/numeric"
)

type positionResp struct {
	PositionID string `json:"positionId"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"` // "BUY" (LONG) or "SELL" (SHORT)
	Qty        string `json:"qty"`
	EntryPrice string `json:"entryValue"` // average open price, bitunix uses entryValue/openPrice synonyms
	OpenPrice  string `json:"openPrice"`
	MarginCoin string `json:"marginCoin"`
	SLPrice    string `json:"slPrice"`
}

// GetPendingPositions returns all positions with non-zero qty, optionally
// scoped to one symbol (spec.md §4.2). An empty symbol fetches every symbol.
func (c *Client) GetPendingPositions(symbol string) ([]Position, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	data, err := c.doRequest("GET", "/api/v1/futures/position/get_pending_positions", query, nil)
	if err != nil {
		return nil, fmt.Errorf("getPendingPositions(%s): %w", symbol, err)
	}
	var raw []positionResp
	if err := decode(data, &raw, "getPendingPositions"); err != nil {
		return nil, err
	}

	out := make([]Position, 0, len(raw))
	for _, p := range raw {
		qty, err := decimal.NewFromString(p.Qty)
		if err != nil || !qty.IsPositive() {
			continue
		}
		entryStr := p.EntryPrice
		if entryStr == "" {
			entryStr = p.OpenPrice
		}
		entry, err := decimal.NewFromString(entryStr)
		if err != nil {
			continue
		}
		side := numeric.Long
		if p.Side == string(SideSell) {
			side = numeric.Short
		}
		pos := Position{
			Symbol:     p.Symbol,
			PositionID: p.PositionID,
			Side:       side,
			Qty:        qty,
			EntryPrice: entry,
			MarginCoin: p.MarginCoin,
		}
		if p.SLPrice != "" {
			if v, err := decimal.NewFromString(p.SLPrice); err == nil {
				pos.SLPrice = &v
			}
		}
		out = append(out, pos)
	}
	return out, nil
}

// FindBySide returns the position matching side, preferring the one whose
// qty is closest to wantQty when more than one exists (spec.md §4.4 step 7).
func FindBySide(positions []Position, side numeric.Side, wantQty decimal.Decimal) (Position, bool) {
	var best Position
	found := false
	bestDiff := decimal.Decimal{}
	for _, p := range positions {
		if p.Side != side {
			continue
		}
		diff := p.Qty.Sub(wantQty).Abs()
		if !found || diff.LessThan(bestDiff) {
			best = p
			bestDiff = diff
			found = true
		}
	}
	return best, found
}
