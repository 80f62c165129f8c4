package bitunix

import (
	"net/http"
	"testing"
)

func TestGetSymbolInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"basePrecision":3,"quotePrecision":2,"minTradeVolume":"0.001"}}`))
	})
	info, err := c.GetSymbolInfo("BTCUSDT")
	if err != nil {
		t.Fatalf("GetSymbolInfo: %v", err)
	}
	if info.BasePrecision != 3 || info.QuotePrecision != 2 {
		t.Errorf("unexpected precisions: %+v", info)
	}
	if !info.MinTradeVolume.Equal(decimalMustParse(t, "0.001")) {
		t.Errorf("MinTradeVolume = %s, want 0.001", info.MinTradeVolume)
	}
}

func TestGetLastPriceFallsBackToMarkPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"lastPrice":"","markPrice":"50000.5"}}`))
	})
	price, err := c.GetLastPrice("BTCUSDT")
	if err != nil {
		t.Fatalf("GetLastPrice: %v", err)
	}
	if !price.Equal(decimalMustParse(t, "50000.5")) {
		t.Errorf("price = %s, want 50000.5", price)
	}
}

func TestGetLastPriceRejectsNonPositive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"lastPrice":"0","markPrice":"0"}}`))
	})
	if _, err := c.GetLastPrice("BTCUSDT"); err == nil {
		t.Fatal("expected an error for a non-positive price")
	}
}

func TestGetAccountAvailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"available":"1234.56"}}`))
	})
	avail, err := c.GetAccountAvailable("USDT")
	if err != nil {
		t.Fatalf("GetAccountAvailable: %v", err)
	}
	if !avail.Equal(decimalMustParse(t, "1234.56")) {
		t.Errorf("available = %s, want 1234.56", avail)
	}
}
