package market

import "math"

// SymbolInfo describes the trading terms of a symbol.
type SymbolInfo struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string
	Digits        int
	Point         float64
	ContractSize  float64
	VolumeMin     float64
	VolumeMax     float64
	VolumeStep    float64
}

// VolumeOK reports whether v is within [VolumeMin, VolumeMax] and on a
// VolumeStep boundary. A small tolerance absorbs float representation noise.
func (s SymbolInfo) VolumeOK(v float64) bool {
	if v < s.VolumeMin || v > s.VolumeMax {
		return false
	}
	if s.VolumeStep <= 0 {
		return true
	}
	steps := v / s.VolumeStep
	return math.Abs(steps-math.Round(steps)) < 1e-7
}

// ToMap enumerates the symbol's fields for serialization and logging.
func (s SymbolInfo) ToMap() map[string]any {
	return map[string]any{
		"name":           s.Name,
		"base_currency":  s.BaseCurrency,
		"quote_currency": s.QuoteCurrency,
		"digits":         s.Digits,
		"point":          s.Point,
		"contract_size":  s.ContractSize,
		"volume_min":     s.VolumeMin,
		"volume_max":     s.VolumeMax,
		"volume_step":    s.VolumeStep,
	}
}

// Symbols is the default symbol table. Engines take a copy at construction;
// there is no process-wide mutable registry.
var Symbols = map[string]SymbolInfo{
	"EURUSD": {
		Name:          "EURUSD",
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		Digits:        5,
		Point:         0.00001,
		ContractSize:  100_000,
		VolumeMin:     0.01,
		VolumeMax:     500,
		VolumeStep:    0.01,
	},
	"GBPUSD": {
		Name:          "GBPUSD",
		BaseCurrency:  "GBP",
		QuoteCurrency: "USD",
		Digits:        5,
		Point:         0.00001,
		ContractSize:  100_000,
		VolumeMin:     0.01,
		VolumeMax:     500,
		VolumeStep:    0.01,
	},
	"USDJPY": {
		Name:          "USDJPY",
		BaseCurrency:  "USD",
		QuoteCurrency: "JPY",
		Digits:        3,
		Point:         0.001,
		ContractSize:  100_000,
		VolumeMin:     0.01,
		VolumeMax:     500,
		VolumeStep:    0.01,
	},
}
