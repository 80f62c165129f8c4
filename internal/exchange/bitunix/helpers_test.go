package bitunix

import (
	"testing"

	"github.com/shopspring/decimal"
)

func decimalMustParse(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q): %v", s, err)
	}
	return v
}
