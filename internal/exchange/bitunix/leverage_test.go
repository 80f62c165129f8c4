package bitunix

import (
	"net/http"
	"testing"
)

func TestSetLeverageReturnsErrorButCallerMayIgnoreIt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":10050,"msg":"leverage unchanged"}`))
	})
	err := c.SetLeverage("BTCUSDT", "USDT", 10)
	if err == nil {
		t.Fatal("expected SetLeverage to surface the exchange error to the caller")
	}
}

func TestSetLeverageSendsRequestedValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{}}`))
	})
	if err := c.SetLeverage("BTCUSDT", "USDT", 20); err != nil {
		t.Fatalf("SetLeverage: %v", err)
	}
}

func TestSetMarginMode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{}}`))
	})
	if err := c.SetMarginMode("BTCUSDT", "USDT", "ISOLATION"); err != nil {
		t.Fatalf("SetMarginMode: %v", err)
	}
}
