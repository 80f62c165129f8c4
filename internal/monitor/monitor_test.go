package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeflow/internal/cfg"
	"tradeflow/internal/exchange/bitunix"
	"tradeflow/internal/numeric"
)

type fakeGateway struct {
	mu          sync.Mutex
	positions   map[string][]bitunix.Position
	price       decimal.Decimal
	modifyCalls []decimal.Decimal
}

func (g *fakeGateway) GetPendingPositions(symbol string) ([]bitunix.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]bitunix.Position(nil), g.positions[symbol]...), nil
}

func (g *fakeGateway) GetLastPrice(symbol string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.price, nil
}

func (g *fakeGateway) ModifyPositionSL(symbol, positionID string, slPrice decimal.Decimal) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modifyCalls = append(g.modifyCalls, slPrice)
	for i := range g.positions[symbol] {
		if g.positions[symbol][i].PositionID == positionID {
			v := slPrice
			g.positions[symbol][i].SLPrice = &v
		}
	}
	return "sl-1", nil
}

func (g *fakeGateway) setPrice(p string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.price = decMust(p)
}

func (g *fakeGateway) lastModify() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.modifyCalls) == 0 {
		return decimal.Decimal{}
	}
	return g.modifyCalls[len(g.modifyCalls)-1]
}

func (g *fakeGateway) modifyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.modifyCalls)
}

func decMust(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newFakeGateway(symbol, positionID string, side numeric.Side, entry, qty, price string, sl *string) *fakeGateway {
	var slPtr *decimal.Decimal
	if sl != nil {
		v := decMust(*sl)
		slPtr = &v
	}
	return &fakeGateway{
		positions: map[string][]bitunix.Position{
			symbol: {{
				Symbol:     symbol,
				PositionID: positionID,
				Side:       side,
				Qty:        decMust(qty),
				EntryPrice: decMust(entry),
				SLPrice:    slPtr,
			}},
		},
		price: decMust(price),
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// Scenario 2: LONG with break-even firing (spec.md §8).
func TestBreakevenFiresOnceThenStays(t *testing.T) {
	slInitial := "99.00"
	gw := newFakeGateway("BTCUSDT", "P1", numeric.Long, "100.00", "0.500", "100.50", &slInitial)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager(ctx, gw, 10*time.Millisecond)
	defer m.StopAll()

	pc := cfg.PairConfig{
		SLEnabled:           true,
		BreakevenEnabled:    true,
		BreakevenTriggerPct: decMust("0.005"),
		BreakevenOffsetPct:  decMust("0.001"),
	}
	m.Attach("BTCUSDT", OpenPosition{
		Symbol: "BTCUSDT", PositionID: "P1", Side: numeric.Long,
		EntryPrice: decMust("100.00"), InitialQty: decMust("0.500"),
		BasePrecision: 3, QuotePrecision: 2,
	}, pc)

	waitUntil(t, time.Second, func() bool { return gw.modifyCount() >= 1 })
	if !gw.lastModify().Equal(decMust("100.10")) {
		t.Fatalf("breakeven SL = %s, want 100.10", gw.lastModify())
	}

	countAfterFirst := gw.modifyCount()
	gw.setPrice("100.60")
	time.Sleep(80 * time.Millisecond)
	if gw.modifyCount() != countAfterFirst {
		t.Fatalf("expected no further SL change after breakeven fired once, got %d new calls", gw.modifyCount()-countAfterFirst)
	}
}

// Scenario 6: trailing activation + follow (spec.md §8).
func TestTrailingActivationAndFollow(t *testing.T) {
	gw := newFakeGateway("BTCUSDT", "P1", numeric.Long, "200.00", "1.000", "203.00", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager(ctx, gw, 10*time.Millisecond)
	defer m.StopAll()

	pc := cfg.PairConfig{
		SLEnabled:               true,
		TrailingEnabled:         true,
		TrailingTriggerPct:      decMust("0.02"),
		TrailingStepPct:         decMust("0.01"),
		TrailingDistancePct:     decMust("0.005"),
		TrailingMoveImmediately: true,
	}
	m.Attach("BTCUSDT", OpenPosition{
		Symbol: "BTCUSDT", PositionID: "P1", Side: numeric.Long,
		EntryPrice: decMust("200.00"), InitialQty: decMust("1.000"),
		BasePrecision: 3, QuotePrecision: 2,
	}, pc)

	time.Sleep(30 * time.Millisecond)
	if gw.modifyCount() != 0 {
		t.Fatalf("expected no SL change at price 203 (below 204 activation threshold), got %d calls", gw.modifyCount())
	}

	gw.setPrice("204")
	waitUntil(t, time.Second, func() bool { return gw.modifyCount() >= 1 })
	if !gw.lastModify().Equal(decMust("202.98")) {
		t.Fatalf("activation SL = %s, want 202.98 (204 * (1-0.005))", gw.lastModify())
	}

	countAfterActivation := gw.modifyCount()
	gw.setPrice("206.04")
	waitUntil(t, time.Second, func() bool { return gw.modifyCount() > countAfterActivation })
	if !gw.lastModify().Equal(decMust("205.00")) {
		t.Fatalf("follow SL = %s, want 205.00", gw.lastModify())
	}
}

func TestMonitorDetectsExternalClose(t *testing.T) {
	gw := newFakeGateway("BTCUSDT", "P1", numeric.Long, "100.00", "0.500", "101.00", nil)
	gw.positions["BTCUSDT"] = nil // no positions at all: external close

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager(ctx, gw, 10*time.Millisecond)
	defer m.StopAll()

	pc := cfg.PairConfig{SLEnabled: true, BreakevenEnabled: true, BreakevenTriggerPct: decMust("0.005"), BreakevenOffsetPct: decMust("0.001")}
	m.Attach("BTCUSDT", OpenPosition{
		Symbol: "BTCUSDT", PositionID: "P1", Side: numeric.Long,
		EntryPrice: decMust("100.00"), InitialQty: decMust("0.500"),
		BasePrecision: 3, QuotePrecision: 2,
	}, pc)

	time.Sleep(50 * time.Millisecond)
	if gw.modifyCount() != 0 {
		t.Fatalf("expected no SL calls against a closed position, got %d", gw.modifyCount())
	}
}

func TestMonitorNoOpWithoutBreakevenOrTrailing(t *testing.T) {
	gw := newFakeGateway("BTCUSDT", "P1", numeric.Long, "100.00", "0.500", "150.00", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager(ctx, gw, 10*time.Millisecond)
	defer m.StopAll()

	pc := cfg.PairConfig{SLEnabled: true} // neither breakeven nor trailing enabled
	m.Attach("BTCUSDT", OpenPosition{
		Symbol: "BTCUSDT", PositionID: "P1", Side: numeric.Long,
		EntryPrice: decMust("100.00"), InitialQty: decMust("0.500"),
		BasePrecision: 3, QuotePrecision: 2,
	}, pc)

	time.Sleep(50 * time.Millisecond)
	if gw.modifyCount() != 0 {
		t.Fatalf("expected no-op iteration, got %d SL calls", gw.modifyCount())
	}
}
