package numeric

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestStopLossLong(t *testing.T) {
	sl := StopLossLong(d("100.00"), d("0.01"), 2)
	assert.True(t, sl.Equal(d("99.00")), "got %s", sl)
}

func TestStopLossShort(t *testing.T) {
	sl := StopLossShort(d("100.00"), d("0.01"), 2)
	assert.True(t, sl.Equal(d("101.00")), "got %s", sl)
}

func TestStopLossLongSnapsWhenTooClose(t *testing.T) {
	// slPct=0 would otherwise produce sl == entry; must snap below by one tick.
	sl := StopLossLong(d("100.00"), d("0"), 2)
	assert.True(t, sl.Equal(d("99.99")), "got %s", sl)
}

func TestTakeProfitLong(t *testing.T) {
	tp := TakeProfitLong(d("100.00"), d("0.01"), 2)
	assert.True(t, tp.Equal(d("101.00")), "got %s", tp)
}

func TestTakeProfitShort(t *testing.T) {
	tp := TakeProfitShort(d("100.00"), d("0.01"), 2)
	assert.True(t, tp.Equal(d("99.00")), "got %s", tp)
}

func TestClampAntiInstantFillLong(t *testing.T) {
	// price 100.00, qp=2, k=2 -> limit 99.98; proposed SL 99.99 is too close.
	sl := ClampAntiInstantFill(Long, d("99.99"), d("100.00"), 2, 2)
	assert.True(t, sl.Equal(d("99.98")), "got %s", sl)

	// a compliant SL is left untouched.
	sl2 := ClampAntiInstantFill(Long, d("99.00"), d("100.00"), 2, 2)
	assert.True(t, sl2.Equal(d("99.00")), "got %s", sl2)
}

func TestClampAntiInstantFillShort(t *testing.T) {
	sl := ClampAntiInstantFill(Short, d("100.01"), d("100.00"), 2, 2)
	assert.True(t, sl.Equal(d("100.02")), "got %s", sl)
}

func TestMonotoneTighten(t *testing.T) {
	assert.True(t, MonotoneTighten(Long, d("99.00"), d("99.01")))
	assert.False(t, MonotoneTighten(Long, d("99.00"), d("99.00")))
	assert.False(t, MonotoneTighten(Long, d("99.00"), d("98.99")))

	assert.True(t, MonotoneTighten(Short, d("101.00"), d("100.99")))
	assert.False(t, MonotoneTighten(Short, d("101.00"), d("101.00")))
	assert.False(t, MonotoneTighten(Short, d("101.00"), d("101.01")))
}

// TestSizeTPLadderScenario1 reproduces spec.md §8 scenario 1.
func TestSizeTPLadderScenario1(t *testing.T) {
	levels := []TPLevelInput{
		{Level: 1, TargetPct: d("0.01"), CloseFrac: d("0.3")},
		{Level: 2, TargetPct: d("0.02"), CloseFrac: d("0.3")},
	}
	ladder := SizeTPLadder(Long, d("100.00"), d("0.500"), levels, 3, 2, d("0.001"))

	if assert.Len(t, ladder.Tranches, 2) {
		assert.True(t, ladder.Tranches[0].Price.Equal(d("101.00")))
		assert.True(t, ladder.Tranches[0].Qty.Equal(d("0.150")))
		assert.True(t, ladder.Tranches[1].Price.Equal(d("102.00")))
		assert.True(t, ladder.Tranches[1].Qty.Equal(d("0.150")))
	}
	assert.True(t, ladder.Runner.Equal(d("0.200")), "got %s", ladder.Runner)
}

func TestSizeTPLadderFoldsSmallRunnerIntoLastTranche(t *testing.T) {
	levels := []TPLevelInput{
		{Level: 1, TargetPct: d("0.01"), CloseFrac: d("0.99")},
	}
	// totalQty 1.000, tranche 0.990, runner 0.010 < minTradeVolume 0.05 -> folded in.
	ladder := SizeTPLadder(Long, d("100.00"), d("1.000"), levels, 3, 2, d("0.05"))

	if assert.Len(t, ladder.Tranches, 1) {
		assert.True(t, ladder.Tranches[0].Qty.Equal(d("1.000")), "got %s", ladder.Tranches[0].Qty)
	}
	assert.True(t, ladder.Runner.Equal(decimal.Zero))
}

func TestSizeQtyRaisesToMinTradeVolume(t *testing.T) {
	qty := SizeQty(d("0.0003"), 3, d("0.001"))
	assert.True(t, qty.Equal(d("0.001")), "got %s", qty)
}

func TestSizeQtyTruncatesNotRounds(t *testing.T) {
	qty := SizeQty(d("0.5009"), 3, d("0.001"))
	assert.True(t, qty.Equal(d("0.500")), "got %s", qty)
}
