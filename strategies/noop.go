package strategies

import (
	"context"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/market"
)

// Noop does nothing. Baseline for replay plumbing tests.
type Noop struct{}

func (Noop) OnTick(ctx context.Context, b broker.Broker, tick market.Tick) error {
	_ = ctx
	_ = b
	_ = tick
	return nil
}
