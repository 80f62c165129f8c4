package bitunix

import (
	"fmt"

	"github.com/shopspring/decimal"
	"tradeflow/internal/numeric"
)

type orderPlaceResp struct {
	OrderID string `json:"orderId"`
}

// OpenMarket fire-and-forgets a market order and returns its order id
// (spec.md §4.2).
func (c *Client) OpenMarket(symbol string, qty decimal.Decimal, side numeric.Side) (string, error) {
	payload := map[string]interface{}{
		"symbol":    symbol,
		"side":      string(SideForPosition(side)),
		"tradeSide": "OPEN",
		"qty":       qty.String(),
		"orderType": "MARKET",
	}
	data, err := c.doRequest("POST", "/api/v1/futures/trade/place_order", nil, payload)
	if err != nil {
		return "", fmt.Errorf("openMarket(%s): %w", symbol, err)
	}
	var resp orderPlaceResp
	if err := decode(data, &resp, "openMarket"); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

// OpenMarketWithProvisionalSL atomically opens a market order with an
// order-scoped stop-loss attached (spec.md §4.2). The resulting SL is a
// *separate* conditional order whose id is not returned here — see
// CaptureProvisionalSlIds.
func (c *Client) OpenMarketWithProvisionalSL(symbol string, qty decimal.Decimal, side numeric.Side, slPrice decimal.Decimal) (string, error) {
	payload := map[string]interface{}{
		"symbol":    symbol,
		"side":      string(SideForPosition(side)),
		"tradeSide": "OPEN",
		"qty":       qty.String(),
		"orderType": "MARKET",
		"slPrice":   slPrice.String(),
	}
	data, err := c.doRequest("POST", "/api/v1/futures/trade/place_order", nil, payload)
	if err != nil {
		return "", fmt.Errorf("openMarketWithProvisionalSL(%s): %w", symbol, err)
	}
	var resp orderPlaceResp
	if err := decode(data, &resp, "openMarketWithProvisionalSL"); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

// CloseMarket closes qty of an existing position at market. The wire side
// equals the side used to open the position being closed — BUY to close a
// LONG, SELL to close a SHORT — with tradeSide=CLOSE and reduceOnly=true
// (spec.md §4.2, §6). positionId is required.
func (c *Client) CloseMarket(symbol string, qty decimal.Decimal, side numeric.Side, positionID string) error {
	if positionID == "" {
		return fmt.Errorf("closeMarket(%s): positionId is required", symbol)
	}
	payload := map[string]interface{}{
		"symbol":     symbol,
		"side":       string(SideForPosition(side)),
		"tradeSide":  "CLOSE",
		"qty":        qty.String(),
		"orderType":  "MARKET",
		"positionId": positionID,
		"reduceOnly": true,
	}
	_, err := c.doRequest("POST", "/api/v1/futures/trade/place_order", nil, payload)
	if err != nil {
		return fmt.Errorf("closeMarket(%s, position=%s): %w", symbol, positionID, err)
	}
	return nil
}

type orderDetailResp struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	TradeQty  string `json:"tradeQty"`
	AvgPrice  string `json:"avgPrice"`
	DealPrice string `json:"dealPrice"`
	Price     string `json:"price"`
	DealMoney string `json:"dealMoney"`
}

// GetOrderDetail fetches the current state of a market order (spec.md §4.2).
// AvgPrice resolves the first non-zero of several synonymous exchange
// fields, falling back to dealMoney/tradeQty per spec.md §4.4 step 5.
func (c *Client) GetOrderDetail(orderID string) (OrderDetail, error) {
	data, err := c.doRequest("GET", "/api/v1/futures/trade/order_detail", map[string]string{"orderId": orderID}, nil)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("getOrderDetail(%s): %w", orderID, err)
	}
	var resp orderDetailResp
	if err := decode(data, &resp, "getOrderDetail"); err != nil {
		return OrderDetail{}, err
	}

	tradeQty, _ := decimal.NewFromString(resp.TradeQty)
	dealMoney, _ := decimal.NewFromString(resp.DealMoney)

	avgPrice := firstNonZero(resp.AvgPrice, resp.DealPrice, resp.Price)
	if avgPrice.IsZero() && tradeQty.IsPositive() && dealMoney.IsPositive() {
		avgPrice = dealMoney.Div(tradeQty)
	}

	return OrderDetail{
		OrderID:   resp.OrderID,
		Status:    OrderStatus(resp.Status),
		TradeQty:  tradeQty,
		AvgPrice:  avgPrice,
		DealMoney: dealMoney,
	}, nil
}

func firstNonZero(candidates ...string) decimal.Decimal {
	for _, s := range candidates {
		if v, err := decimal.NewFromString(s); err == nil && v.IsPositive() {
			return v
		}
	}
	return decimal.Zero
}
