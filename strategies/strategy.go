// Package strategies contains the strategy collaborator surface: the
// per-tick interface, the runner adapter scheduled by the executor, and a
// few sample strategies.
package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/market"
)

// TickStrategy is the minimal interface a strategy must implement. It is
// called once per replayed tick.
type TickStrategy interface {
	OnTick(ctx context.Context, b broker.Broker, tick market.Tick) error
}

// ByName builds one of the bundled strategies from CLI/config parameters.
func ByName(name, symbol string, volume float64, fast, slow int, stopPoints, targetPoints float64) (TickStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return Noop{}, nil

	case "open-once":
		return &OpenOnce{Symbol: symbol, Volume: volume}, nil

	case "ema-cross", "emacross":
		return NewEMACross(EMACrossConfig{
			Symbol:       symbol,
			Volume:       volume,
			FastPeriod:   fast,
			SlowPeriod:   slow,
			StopPoints:   stopPoints,
			TargetPoints: targetPoints,
		}), nil

	default:
		return nil, fmt.Errorf("strategies: unknown strategy %q", name)
	}
}
