package strategies

import (
	"context"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/market"
)

// Runner adapts a TickStrategy to a scheduled executor unit. It consumes
// ticks from a channel fed by the replay loop and exits when the channel
// closes, the context is cancelled, or the shutdown flag flips; its only
// suspension point is the channel receive, which is where cancellation is
// observed.
type Runner struct {
	name  string
	strat TickStrategy
	b     broker.Broker
	ticks <-chan market.Tick
	done  func() bool // global shutdown flag, may be nil
}

func NewRunner(name string, strat TickStrategy, b broker.Broker, ticks <-chan market.Tick, done func() bool) *Runner {
	return &Runner{name: name, strat: strat, b: b, ticks: ticks, done: done}
}

func (r *Runner) Name() string { return r.name }

func (r *Runner) Run(ctx context.Context) error {
	for {
		if r.done != nil && r.done() {
			return nil
		}
		select {
		case <-ctx.Done():
			// Cooperative cancellation, not a failure. The replay loop may
			// still be feeding the channel; keep draining so it never blocks
			// on a stopped consumer.
			r.drain()
			return nil
		case tick, ok := <-r.ticks:
			if !ok {
				return nil
			}
			if err := r.strat.OnTick(ctx, r.b, tick); err != nil {
				r.drain()
				return err
			}
		}
	}
}

// drain consumes leftover ticks until the replay loop closes the channel.
func (r *Runner) drain() {
	for range r.ticks {
	}
}
