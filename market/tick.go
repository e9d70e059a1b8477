package market

import (
	"context"
	"time"
)

// Tick is a single top-of-book quote. Ticks are immutable and sourced
// externally (historical snapshot or live terminal).
type Tick struct {
	Symbol string
	Time   time.Time
	Bid    float64
	Ask    float64
	Volume float64
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// ToMap enumerates the tick's fields for serialization and logging.
func (t Tick) ToMap() map[string]any {
	return map[string]any{
		"symbol": t.Symbol,
		"time":   t.Time.Unix(),
		"bid":    t.Bid,
		"ask":    t.Ask,
		"volume": t.Volume,
	}
}

// TickSource supplies the latest quote for a symbol.
type TickSource interface {
	SymbolInfoTick(ctx context.Context, symbol string) (Tick, error)
}
