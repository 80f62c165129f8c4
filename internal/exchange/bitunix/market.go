package bitunix

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type symbolInfoResp struct {
	BasePrecision  int32  `json:"basePrecision"`
	QuotePrecision int32  `json:"quotePrecision"`
	MinTradeVolume string `json:"minTradeVolume"`
}

// GetSymbolInfo fetches the precision and minimum-lot facts for a symbol
// (spec.md §4.2).
func (c *Client) GetSymbolInfo(symbol string) (SymbolInfo, error) {
	data, err := c.doRequest("GET", "/api/v1/futures/market/trading_pairs", map[string]string{"symbol": symbol}, nil)
	if err != nil {
		return SymbolInfo{}, fmt.Errorf("getSymbolInfo(%s): %w", symbol, err)
	}
	var resp symbolInfoResp
	if err := decode(data, &resp, "getSymbolInfo"); err != nil {
		return SymbolInfo{}, err
	}
	minVol, err := decimal.NewFromString(resp.MinTradeVolume)
	if err != nil {
		return SymbolInfo{}, fmt.Errorf("getSymbolInfo(%s): invalid minTradeVolume %q: %w", symbol, resp.MinTradeVolume, err)
	}
	return SymbolInfo{
		BasePrecision:  resp.BasePrecision,
		QuotePrecision: resp.QuotePrecision,
		MinTradeVolume: minVol,
	}, nil
}

type tickerResp struct {
	LastPrice string `json:"lastPrice"`
	MarkPrice string `json:"markPrice"`
}

// GetLastPrice fetches the last trade (falling back to mark price) and
// validates it is strictly positive (spec.md §4.2).
func (c *Client) GetLastPrice(symbol string) (decimal.Decimal, error) {
	data, err := c.doRequest("GET", "/api/v1/futures/market/ticker", map[string]string{"symbol": symbol}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("getLastPrice(%s): %w", symbol, err)
	}
	var resp tickerResp
	if err := decode(data, &resp, "getLastPrice"); err != nil {
		return decimal.Zero, err
	}
	priceStr := resp.LastPrice
	if priceStr == "" {
		priceStr = resp.MarkPrice
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("getLastPrice(%s): invalid price %q: %w", symbol, priceStr, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("getLastPrice(%s): non-positive price %s", symbol, price)
	}
	return price, nil
}

type balanceResp struct {
	Available string `json:"available"`
}

// GetAccountAvailable fetches the available (non-margined) balance for a
// margin coin (spec.md §4.2).
func (c *Client) GetAccountAvailable(marginCoin string) (decimal.Decimal, error) {
	data, err := c.doRequest("GET", "/api/v1/futures/account", map[string]string{"marginCoin": marginCoin}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("getAccountAvailable(%s): %w", marginCoin, err)
	}
	var resp balanceResp
	if err := decode(data, &resp, "getAccountAvailable"); err != nil {
		return decimal.Zero, err
	}
	avail, err := decimal.NewFromString(resp.Available)
	if err != nil {
		return decimal.Zero, fmt.Errorf("getAccountAvailable(%s): invalid available %q: %w", marginCoin, resp.Available, err)
	}
	return avail, nil
}
