// Package broker defines the surface shared by the simulated matching
// engine and live terminal adapters. Strategy code written against Broker
// behaves identically in backtest and live modes.
package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
)

type Broker interface {
	Account(ctx context.Context) (Account, error)
	SymbolInfoTick(ctx context.Context, symbol string) (market.Tick, error)
	OrderSend(ctx context.Context, req TradeRequest) (TradeResult, error)

	// PositionsGet returns open positions; symbol "" means all symbols.
	PositionsGet(ctx context.Context, symbol string) ([]ledger.Position, error)

	// History queries use inclusive [from, to] bounds at second granularity.
	HistoryOrdersGet(ctx context.Context, from, to time.Time) ([]ledger.Order, error)
	HistoryDealsGet(ctx context.Context, from, to time.Time) ([]ledger.Deal, error)
}

// Account is the balance/equity/margin aggregate. It is mutated only by the
// matching engine as a side effect of deal creation.
type Account struct {
	ID         string
	Currency   string
	Balance    float64
	Equity     float64
	Margin     float64
	FreeMargin float64
	Leverage   float64
}

// ToMap enumerates the account's fields for serialization.
func (a Account) ToMap() map[string]any {
	return map[string]any{
		"id":          a.ID,
		"currency":    a.Currency,
		"balance":     a.Balance,
		"equity":      a.Equity,
		"margin":      a.Margin,
		"free_margin": a.FreeMargin,
		"leverage":    a.Leverage,
	}
}
