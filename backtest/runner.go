// Package backtest drives a full simulation run: the replay loop advances
// the engine's clock as a must-complete task while strategy runners consume
// the resulting tick stream through the executor.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/clock"
	"github.com/rustyeddy/backsim/exec"
	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
	"github.com/rustyeddy/backsim/sim"
	"github.com/rustyeddy/backsim/strategies"
)

// RunnerOptions controls replay behavior.
type RunnerOptions struct {
	// Timeout bounds the whole run (aggregate queue timeout). Zero means
	// the run ends when the span is exhausted.
	Timeout time.Duration

	// CloseEnd closes all open positions at the end of the span.
	CloseEnd bool
}

// Result summarizes a finished run.
type Result struct {
	RunID   string
	Balance float64
	Equity  float64
	Deals   int
	Wins    int
	Losses  int
	Start   time.Time
	End     time.Time
}

type namedStrategy struct {
	name  string
	strat strategies.TickStrategy
}

// Runner owns one backtest run.
type Runner struct {
	Engine   *sim.Engine
	Executor *exec.Executor
	RunID    string
	Options  RunnerOptions

	// Broker is the order surface handed to strategies. Defaults to the
	// engine itself; set it to wrap the engine (e.g. with a risk guard).
	Broker broker.Broker

	strats []namedStrategy
	log    *logrus.Entry
}

func NewRunner(engine *sim.Engine, executor *exec.Executor, runID string, opts RunnerOptions, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		Engine:   engine,
		Executor: executor,
		RunID:    runID,
		Options:  opts,
		log: logger.WithFields(logrus.Fields{
			"component": "backtest",
			"run":       runID,
		}),
	}
}

// AddStrategy registers a strategy to be scheduled for this run.
func (r *Runner) AddStrategy(name string, strat strategies.TickStrategy) {
	r.strats = append(r.strats, namedStrategy{name: name, strat: strat})
}

// Run replays the span. The replay loop is enqueued as a must-complete item
// so the ledgers always reflect a fully-replayed (or cleanly interrupted)
// span; strategy runners are best-effort and cancelled cooperatively on
// timeout.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, fmt.Errorf("backtest: Engine is required")
	}
	if r.Executor == nil {
		return Result{}, fmt.Errorf("backtest: Executor is required")
	}

	b := r.Broker
	if b == nil {
		b = r.Engine
	}

	chans := make([]chan market.Tick, len(r.strats))
	for i, ns := range r.strats {
		chans[i] = make(chan market.Tick, 1)
		r.Executor.AddStrategy(strategies.NewRunner(ns.name, ns.strat, b, chans[i], r.Executor.ShuttingDown))
	}

	// The replay loop and every strategy runner must hold a worker slot at
	// the same time, or replay blocks on an unscheduled runner's channel.
	r.Executor.Queue().EnsureWorkers(len(r.strats) + 1)

	// The replay routine is must-complete so it is never dropped mid-tick,
	// but it observes the same overall deadline as the rest of the run:
	// once strategies are cancelled nobody consumes the tick stream.
	replayCtx := ctx
	if r.Options.Timeout > 0 {
		var cancel context.CancelFunc
		replayCtx, cancel = context.WithTimeout(ctx, r.Options.Timeout)
		defer cancel()
	}
	r.Executor.AddRoutine("replay", func(context.Context) error {
		defer func() {
			for _, ch := range chans {
				close(ch)
			}
		}()
		return r.replay(replayCtx, chans)
	}, true)

	start := time.Now()
	err := r.Executor.Run(ctx, r.Options.Timeout)
	if err != nil {
		return Result{}, err
	}
	r.log.WithField("elapsed", time.Since(start)).Info("replay finished")

	if r.Options.CloseEnd {
		if err := r.Engine.CloseAll(ctx, "end of replay"); err != nil {
			return Result{}, err
		}
	}

	return r.result(ctx)
}

// replay is the single authoritative loop for clock and ledger mutation: it
// advances one tick at a time and fans the tick out to every strategy
// before advancing again, so no reader observes a partially-applied tick.
func (r *Runner) replay(ctx context.Context, chans []chan market.Tick) error {
	for {
		if err := ctx.Err(); err != nil {
			r.log.Debug("replay interrupted")
			return nil
		}

		tick, err := r.Engine.Next()
		if errors.Is(err, clock.ErrRangeExhausted) {
			return nil
		}
		if err != nil {
			return err
		}

		for _, ch := range chans {
			select {
			case <-ctx.Done():
				return nil
			case ch <- tick:
			}
		}
	}
}

func (r *Runner) result(ctx context.Context) (Result, error) {
	acct, err := r.Engine.Account(ctx)
	if err != nil {
		return Result{}, err
	}

	span := r.Engine.Span()
	deals, err := r.Engine.HistoryDealsGet(ctx, span.Start, span.End)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		RunID:   r.RunID,
		Balance: acct.Balance,
		Equity:  acct.Equity,
		Deals:   len(deals),
		Start:   span.Start,
		End:     span.End,
	}
	for _, d := range deals {
		if d.Entry == ledger.EntryIn {
			continue
		}
		switch {
		case d.Profit > 0:
			res.Wins++
		case d.Profit < 0:
			res.Losses++
		}
	}
	return res, nil
}
