package backtest

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/config"
	"github.com/rustyeddy/backsim/exec"
	"github.com/rustyeddy/backsim/internal/id"
	"github.com/rustyeddy/backsim/journal"
	"github.com/rustyeddy/backsim/market"
	"github.com/rustyeddy/backsim/risk"
	"github.com/rustyeddy/backsim/sim"
	"github.com/rustyeddy/backsim/strategies"
	"github.com/rustyeddy/backsim/task"
)

// FromConfig assembles a ready-to-run backtest from the configuration: the
// tick series (file-backed or generated), the engine, the queue/executor,
// the configured strategy, and the journal. The caller owns the returned
// journal and should Close it after Run.
func FromConfig(cfg *config.Config, logger *logrus.Logger) (*Runner, journal.Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	start, err := cfg.Simulation.StartTime()
	if err != nil {
		return nil, nil, err
	}

	var series *market.Series
	if cfg.Simulation.TicksFile != "" {
		series, err = market.LoadCSV(cfg.Simulation.TicksFile, cfg.Simulation.Symbol, start)
	} else {
		series, err = market.RandomWalk(market.WalkConfig{
			Symbol:     cfg.Simulation.Symbol,
			Start:      start,
			Steps:      cfg.Simulation.Steps,
			InitialBid: cfg.Simulation.InitialBid,
			InitialAsk: cfg.Simulation.InitialAsk,
			StepSize:   cfg.Simulation.StepSize,
			Seed:       cfg.Simulation.Seed,
		})
	}
	if err != nil {
		return nil, nil, err
	}

	var jrnl journal.Journal
	switch cfg.Journal.Type {
	case "sqlite":
		jrnl, err = journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		jrnl, err = journal.NewCSV(cfg.Journal.DealsFile, cfg.Journal.EquityFile)
	default:
		jrnl = journal.Discard{}
	}
	if err != nil {
		return nil, nil, err
	}

	runID := id.New()

	engine, err := sim.NewEngine(sim.Options{
		Account: broker.Account{
			ID:       cfg.Account.ID,
			Currency: cfg.Account.Currency,
			Balance:  cfg.Account.Balance,
			Leverage: cfg.Account.Leverage,
		},
		Series:  series,
		Journal: jrnl,
		RunID:   runID,
		Logger:  logger,
	})
	if err != nil {
		jrnl.Close()
		return nil, nil, err
	}

	strat, err := strategies.ByName(
		cfg.Strategy.Name,
		cfg.Strategy.Symbol,
		cfg.Strategy.Volume,
		cfg.Strategy.Fast,
		cfg.Strategy.Slow,
		cfg.Strategy.StopPoints,
		cfg.Strategy.TargetPoints,
	)
	if err != nil {
		jrnl.Close()
		return nil, nil, err
	}

	timeout, err := cfg.Scheduler.TimeoutDuration()
	if err != nil {
		jrnl.Close()
		return nil, nil, fmt.Errorf("scheduler timeout: %w", err)
	}

	// Run raises the worker count if it cannot keep the replay loop and
	// every strategy live together.
	queue := task.NewQueue(cfg.Scheduler.Workers, logger)
	executor := exec.New(queue, logger)

	runner := NewRunner(engine, executor, runID, RunnerOptions{
		Timeout:  timeout,
		CloseEnd: cfg.Simulation.CloseEnd,
	}, logger)
	runner.AddStrategy(cfg.Strategy.Name, strat)

	policy := risk.Policy{
		MaxVolume:        cfg.Risk.MaxVolume,
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
		MaxRiskPct:       cfg.Risk.MaxRiskPct,
		MinRR:            cfg.Risk.MinRR,
		MaxMarginPct:     cfg.Risk.MaxMarginPct,
	}
	if policy.Enabled() {
		guard, err := risk.NewGuard(engine, policy, nil, logger)
		if err != nil {
			jrnl.Close()
			return nil, nil, err
		}
		runner.Broker = guard
	}

	return runner, jrnl, nil
}
