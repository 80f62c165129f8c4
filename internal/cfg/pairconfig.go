package cfg

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// MarginMode selects isolated or cross margin for a symbol (spec.md §3).
type MarginMode string

const (
	MarginIsolation MarginMode = "ISOLATION"
	MarginCross     MarginMode = "CROSS"
)

// OrderSizeType selects how orderSizeValue is interpreted when the executor
// sizes a fresh open (spec.md §4.4 step 2).
type OrderSizeType string

const (
	OrderSizeMarginUSDT   OrderSizeType = "MARGIN_USDT"
	OrderSizeNotionalUSDT OrderSizeType = "NOTIONAL_USDT"
	OrderSizePctBalance   OrderSizeType = "PCT_BALANCE"
)

// SameSidePolicy controls how the executor reacts to a same-direction
// signal arriving while a matching position is already open (spec.md §3).
type SameSidePolicy string

const (
	SameSideIgnore      SameSidePolicy = "IGNORE"
	SameSideResetOrders SameSidePolicy = "RESET_ORDERS"
)

// TPLevel is one rung of a symbol's take-profit ladder (spec.md §3).
type TPLevel struct {
	Level     int             `yaml:"level"`
	TargetPct decimal.Decimal `yaml:"targetPct"`
	CloseFrac decimal.Decimal `yaml:"closeFrac"`
	IsEnabled bool            `yaml:"isEnabled"`
}

// PairConfig is the immutable, per-symbol configuration snapshot the
// executor and monitor consult for the lifetime of the process (spec.md §3).
type PairConfig struct {
	Symbol string `yaml:"-"`

	IsEnabled bool `yaml:"isEnabled"`

	MarginMode MarginMode `yaml:"marginMode"`
	Leverage   int        `yaml:"leverage"`

	OrderSizeType  OrderSizeType   `yaml:"orderSizeType"`
	OrderSizeValue decimal.Decimal `yaml:"orderSizeValue"`

	SLEnabled bool            `yaml:"slEnabled"`
	SLPct     decimal.Decimal `yaml:"slPct"`

	TPEnabled bool      `yaml:"tpEnabled"`
	TPLevels  []TPLevel `yaml:"tpLevels"`

	BreakevenEnabled    bool            `yaml:"breakevenEnabled"`
	BreakevenTriggerPct decimal.Decimal `yaml:"breakevenTriggerPct"`
	BreakevenOffsetPct  decimal.Decimal `yaml:"breakevenOffsetPct"`

	TrailingEnabled         bool            `yaml:"trailingEnabled"`
	TrailingTriggerPct      decimal.Decimal `yaml:"trailingTriggerPct"`
	TrailingStepPct         decimal.Decimal `yaml:"trailingStepPct"`
	TrailingDistancePct     decimal.Decimal `yaml:"trailingDistancePct"`
	TrailingMoveImmediately bool            `yaml:"trailingMoveImmediately"`

	SameSidePolicy SameSidePolicy `yaml:"sameSidePolicy"`
}

type pairConfigFile struct {
	Pairs map[string]PairConfig `yaml:"pairs"`
}

// LoadPairConfigs reads the per-symbol configuration view from a YAML file,
// normalizes each entry's enabled TP levels to ascending level order, and
// validates the fields of every enabled entry (spec.md §3). Disabled entries
// are loaded without validation.
func LoadPairConfigs(path string) (map[string]PairConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pair config %s: %w", path, err)
	}
	var file pairConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing pair config %s: %w", path, err)
	}

	out := make(map[string]PairConfig, len(file.Pairs))
	for symbol, pc := range file.Pairs {
		pc.Symbol = symbol
		pc.TPLevels = enabledLevelsAscending(pc.TPLevels)
		if err := validatePairConfig(symbol, pc); err != nil {
			return nil, err
		}
		out[symbol] = pc
	}
	return out, nil
}

// enabledLevelsAscending drops disabled levels and sorts the remainder by
// level (spec.md §3: "Enabled levels only are materialized").
func enabledLevelsAscending(levels []TPLevel) []TPLevel {
	out := make([]TPLevel, 0, len(levels))
	for _, l := range levels {
		if l.IsEnabled {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

func validatePairConfig(symbol string, pc PairConfig) error {
	if !pc.IsEnabled {
		return nil
	}
	if pc.MarginMode != MarginIsolation && pc.MarginMode != MarginCross {
		return fmt.Errorf("pair %s: marginMode must be ISOLATION or CROSS, got %q", symbol, pc.MarginMode)
	}
	if pc.Leverage < 1 {
		return fmt.Errorf("pair %s: leverage must be >= 1, got %d", symbol, pc.Leverage)
	}
	switch pc.OrderSizeType {
	case OrderSizeMarginUSDT, OrderSizeNotionalUSDT, OrderSizePctBalance:
	default:
		return fmt.Errorf("pair %s: orderSizeType %q is not recognized", symbol, pc.OrderSizeType)
	}
	if !pc.OrderSizeValue.IsPositive() {
		return fmt.Errorf("pair %s: orderSizeValue must be positive", symbol)
	}
	if pc.SLEnabled && (pc.SLPct.IsNegative() || pc.SLPct.GreaterThan(decimal.NewFromInt(1))) {
		return fmt.Errorf("pair %s: slPct must be in [0,1]", symbol)
	}
	seen := map[int]bool{}
	for _, l := range pc.TPLevels {
		if seen[l.Level] {
			return fmt.Errorf("pair %s: duplicate tp level %d", symbol, l.Level)
		}
		seen[l.Level] = true
		if !l.TargetPct.IsPositive() || l.TargetPct.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("pair %s: tp level %d targetPct must be in (0,1]", symbol, l.Level)
		}
		if !l.CloseFrac.IsPositive() || l.CloseFrac.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("pair %s: tp level %d closeFrac must be in (0,1]", symbol, l.Level)
		}
	}
	if err := validateUnitInterval(symbol, "breakevenTriggerPct", pc.BreakevenTriggerPct); pc.BreakevenEnabled && err != nil {
		return err
	}
	if err := validateUnitInterval(symbol, "breakevenOffsetPct", pc.BreakevenOffsetPct); pc.BreakevenEnabled && err != nil {
		return err
	}
	if pc.TrailingEnabled {
		for _, pair := range []struct {
			name string
			v    decimal.Decimal
		}{
			{"trailingTriggerPct", pc.TrailingTriggerPct},
			{"trailingStepPct", pc.TrailingStepPct},
			{"trailingDistancePct", pc.TrailingDistancePct},
		} {
			if err := validateUnitInterval(symbol, pair.name, pair.v); err != nil {
				return err
			}
		}
	}
	if pc.SameSidePolicy != SameSideIgnore && pc.SameSidePolicy != SameSideResetOrders {
		return fmt.Errorf("pair %s: sameSidePolicy must be IGNORE or RESET_ORDERS, got %q", symbol, pc.SameSidePolicy)
	}
	return nil
}

func validateUnitInterval(symbol, field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("pair %s: %s must be in [0,1]", symbol, field)
	}
	return nil
}
