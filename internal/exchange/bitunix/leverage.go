package bitunix

import (
	"github.com/rs/zerolog/log"
)

// SetLeverage is best-effort per spec.md §4.4 step 1: failures are logged
// and returned, and the executor's open sequence ignores the returned error,
// since the account may already carry identical settings from a prior open
// on the same symbol.
func (c *Client) SetLeverage(symbol, marginCoin string, leverage int) error {
	payload := map[string]interface{}{
		"symbol":     symbol,
		"marginCoin": marginCoin,
		"leverage":   leverage,
	}
	_, err := c.doRequest("POST", "/api/v1/futures/account/change_leverage", nil, payload)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Int("leverage", leverage).Msg("set leverage failed, continuing")
		return err
	}
	return nil
}

// SetMarginMode is best-effort for the same reason as SetLeverage.
func (c *Client) SetMarginMode(symbol, marginCoin, mode string) error {
	payload := map[string]interface{}{
		"symbol":     symbol,
		"marginCoin": marginCoin,
		"marginMode": mode,
	}
	_, err := c.doRequest("POST", "/api/v1/futures/account/change_margin_mode", nil, payload)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Str("mode", mode).Msg("set margin mode failed, continuing")
		return err
	}
	return nil
}
