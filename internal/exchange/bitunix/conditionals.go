package bitunix

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type conditionalResp struct {
	ID          string `json:"id"`
	OrderID     string `json:"orderId"`
	Symbol      string `json:"symbol"`
	CreatedTime int64  `json:"ctime"`
	SLPrice     string `json:"slPrice"`
	TPPrice     string `json:"tpPrice"`
	Qty         string `json:"qty"`
}

// GetPendingConditionals returns all live SL- and TP-type conditional
// orders, optionally scoped to one symbol (spec.md §4.2).
func (c *Client) GetPendingConditionals(symbol string, limit int) ([]Conditional, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	if limit > 0 {
		query["limit"] = fmt.Sprintf("%d", limit)
	}
	data, err := c.doRequest("GET", "/api/v1/futures/trade/get_pending_orders", query, nil)
	if err != nil {
		return nil, fmt.Errorf("getPendingConditionals(%s): %w", symbol, err)
	}
	var raw []conditionalResp
	if err := decode(data, &raw, "getPendingConditionals"); err != nil {
		return nil, err
	}

	out := make([]Conditional, 0, len(raw))
	for _, r := range raw {
		id := r.ID
		if id == "" {
			id = r.OrderID
		}
		qty, _ := decimal.NewFromString(r.Qty)
		cond := Conditional{ID: id, Symbol: r.Symbol, CreatedAtMs: r.CreatedTime, Qty: qty}
		if r.SLPrice != "" {
			if v, err := decimal.NewFromString(r.SLPrice); err == nil {
				cond.SLPrice = &v
			}
		}
		if r.TPPrice != "" {
			if v, err := decimal.NewFromString(r.TPPrice); err == nil {
				cond.TPPrice = &v
			}
		}
		out = append(out, cond)
	}
	return out, nil
}

// PlacePositionSL places a new position-scoped stop-loss and returns its
// conditional-order id (spec.md §4.2).
func (c *Client) PlacePositionSL(symbol, positionID string, slPrice decimal.Decimal) (string, error) {
	payload := map[string]interface{}{
		"symbol":     symbol,
		"positionId": positionID,
		"slPrice":    slPrice.String(),
	}
	data, err := c.doRequest("POST", "/api/v1/futures/tpsl/place_position_tpsl", nil, payload)
	if err != nil {
		return "", fmt.Errorf("placePositionSL(%s, %s): %w", symbol, positionID, err)
	}
	var resp orderPlaceResp
	if err := decode(data, &resp, "placePositionSL"); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

// ModifyPositionSL mutates an existing position-scoped stop-loss in place
// (spec.md §4.2). Every SL tightening made by the monitor (spec.md §4.5)
// goes through this call.
func (c *Client) ModifyPositionSL(symbol, positionID string, slPrice decimal.Decimal) (string, error) {
	payload := map[string]interface{}{
		"symbol":     symbol,
		"positionId": positionID,
		"slPrice":    slPrice.String(),
	}
	data, err := c.doRequest("POST", "/api/v1/futures/tpsl/modify_position_tpsl", nil, payload)
	if err != nil {
		return "", fmt.Errorf("modifyPositionSL(%s, %s): %w", symbol, positionID, err)
	}
	var resp orderPlaceResp
	if err := decode(data, &resp, "modifyPositionSL"); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

// EnsurePositionSL attempts place, and on any failure falls back to modify,
// returning the resulting conditional id either way (spec.md §4.2). This and
// CancelConditional's second id schema are the gateway's two self-healing
// retries.
func (c *Client) EnsurePositionSL(symbol, positionID string, slPrice decimal.Decimal) (string, error) {
	id, err := c.PlacePositionSL(symbol, positionID, slPrice)
	if err == nil {
		return id, nil
	}
	log.Warn().Err(err).Str("symbol", symbol).Str("position", positionID).Msg("place SL failed, trying modify")
	return c.ModifyPositionSL(symbol, positionID, slPrice)
}

// PlaceTpPartial places a reduce-only, position-scoped take-profit for a
// fraction of the position (spec.md §4.2).
func (c *Client) PlaceTpPartial(symbol, positionID string, tpPrice, tpQty decimal.Decimal) error {
	payload := map[string]interface{}{
		"symbol":     symbol,
		"positionId": positionID,
		"tpPrice":    tpPrice.String(),
		"tpQty":      tpQty.String(),
		"reduceOnly": true,
	}
	_, err := c.doRequest("POST", "/api/v1/futures/tpsl/place_position_tpsl", nil, payload)
	if err != nil {
		return fmt.Errorf("placeTpPartial(%s, %s): %w", symbol, positionID, err)
	}
	return nil
}

// CancelConditional cancels a conditional order, tolerating the two wire
// schemas Bitunix-style APIs use for the id field: some endpoints key on
// "orderId", others on "id" (spec.md §4.2). Both are tried before surfacing
// a failure.
func (c *Client) CancelConditional(symbol, id string) error {
	_, err := c.doRequest("POST", "/api/v1/futures/tpsl/cancel_order", nil, map[string]interface{}{
		"symbol":  symbol,
		"orderId": id,
	})
	if err == nil {
		return nil
	}
	_, err2 := c.doRequest("POST", "/api/v1/futures/tpsl/cancel_order", nil, map[string]interface{}{
		"symbol": symbol,
		"id":     id,
	})
	if err2 == nil {
		return nil
	}
	return fmt.Errorf("cancelConditional(%s, %s): both id schemas failed: %w", symbol, id, err)
}

// CaptureProvisionalSlIds polls pending conditionals and selects those that
// plausibly are the provisional order-scoped SL created by
// OpenMarketWithProvisionalSL: same symbol, creation time >= sinceMs, slPrice
// equal to slPriceStr, no tpPrice, positive qty (spec.md §4.2).
//
// It returns after the first non-empty match or after tries attempts,
// sleeping sleep between polls. An empty result is not an error: the
// provisional may have already been auto-reconciled server-side.
//
// Known imprecision (spec.md §9 Open Question): sinceMs is typically
// openTsMs-60s to tolerate clock skew, which can also match an older
// matching SL conditional left over from an earlier aborted open on the
// same symbol. A tighter implementation would additionally verify the
// conditional was absent immediately before openTsMs; the spec does not
// require this and tradeflow matches the documented (not the tightened)
// behavior.
func (c *Client) CaptureProvisionalSlIds(symbol, slPriceStr string, sinceMs int64, tries int, sleep time.Duration) ([]string, error) {
	for attempt := 0; attempt < tries; attempt++ {
		conds, err := c.GetPendingConditionals(symbol, 0)
		if err != nil {
			return nil, fmt.Errorf("captureProvisionalSlIds(%s): %w", symbol, err)
		}
		var ids []string
		for _, cond := range conds {
			if cond.Symbol != symbol {
				continue
			}
			if cond.CreatedAtMs < sinceMs {
				continue
			}
			if cond.SLPrice == nil || cond.SLPrice.String() != slPriceStr {
				continue
			}
			if cond.TPPrice != nil {
				continue
			}
			if !cond.Qty.IsPositive() {
				continue
			}
			ids = append(ids, cond.ID)
		}
		if len(ids) > 0 {
			return ids, nil
		}
		if attempt < tries-1 {
			time.Sleep(sleep)
		}
	}
	return nil, nil
}
