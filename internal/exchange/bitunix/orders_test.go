package bitunix

import (
	"encoding/json"
	"net/http"
	"testing"

	"tradeflow/internal/numeric"
)

func TestOpenMarketSendsSideAndOpenTradeSide(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["side"] != "BUY" || body["tradeSide"] != "OPEN" {
			t.Errorf("unexpected body: %+v", body)
		}
		w.Write([]byte(`{"code":0,"data":{"orderId":"ord-1"}}`))
	})
	id, err := c.OpenMarket("BTCUSDT", decimalMustParse(t, "0.01"), numeric.Long)
	if err != nil {
		t.Fatalf("OpenMarket: %v", err)
	}
	if id != "ord-1" {
		t.Errorf("id = %q, want ord-1", id)
	}
}

func TestOpenMarketWithProvisionalSLIncludesSLPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["slPrice"] != "49000" {
			t.Errorf("slPrice = %v, want 49000", body["slPrice"])
		}
		w.Write([]byte(`{"code":0,"data":{"orderId":"ord-2"}}`))
	})
	_, err := c.OpenMarketWithProvisionalSL("BTCUSDT", decimalMustParse(t, "0.01"), numeric.Long, decimalMustParse(t, "49000"))
	if err != nil {
		t.Fatalf("OpenMarketWithProvisionalSL: %v", err)
	}
}

func TestCloseMarketRequiresPositionID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach the server without a positionID")
	})
	err := c.CloseMarket("BTCUSDT", decimalMustParse(t, "0.01"), numeric.Long, "")
	if err == nil {
		t.Fatal("expected an error for a missing positionID")
	}
}

func TestCloseMarketUsesOpeningSideAndReduceOnly(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["side"] != "SELL" {
			t.Errorf("side = %v, want SELL (opening side of a SHORT)", body["side"])
		}
		if body["tradeSide"] != "CLOSE" || body["reduceOnly"] != true {
			t.Errorf("tradeSide/reduceOnly wrong: %+v", body)
		}
		w.Write([]byte(`{"code":0,"data":{}}`))
	})
	err := c.CloseMarket("BTCUSDT", decimalMustParse(t, "0.01"), numeric.Short, "pos-1")
	if err != nil {
		t.Fatalf("CloseMarket: %v", err)
	}
}

func TestGetOrderDetailResolvesAvgPriceSynonyms(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"orderId":"ord-1","status":"FILLED","tradeQty":"0.01","avgPrice":"","dealPrice":"50000","price":"49999"}}`))
	})
	detail, err := c.GetOrderDetail("ord-1")
	if err != nil {
		t.Fatalf("GetOrderDetail: %v", err)
	}
	if !detail.AvgPrice.Equal(decimalMustParse(t, "50000")) {
		t.Errorf("AvgPrice = %s, want 50000 (dealPrice synonym)", detail.AvgPrice)
	}
}

func TestGetOrderDetailFallsBackToDealMoneyOverTradeQty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"orderId":"ord-1","status":"FILLED","tradeQty":"0.02","avgPrice":"0","dealPrice":"0","price":"0","dealMoney":"1000"}}`))
	})
	detail, err := c.GetOrderDetail("ord-1")
	if err != nil {
		t.Fatalf("GetOrderDetail: %v", err)
	}
	if !detail.AvgPrice.Equal(decimalMustParse(t, "50000")) {
		t.Errorf("AvgPrice = %s, want 50000 (1000/0.02)", detail.AvgPrice)
	}
}
