package backtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/config"
	"github.com/rustyeddy/backsim/exec"
	"github.com/rustyeddy/backsim/journal"
	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
	"github.com/rustyeddy/backsim/sim"
	"github.com/rustyeddy/backsim/strategies"
	"github.com/rustyeddy/backsim/task"
)

var runStart = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestRunner(t *testing.T, series *market.Series, opts RunnerOptions) *Runner {
	t.Helper()
	log := quietLogger()
	engine, err := sim.NewEngine(sim.Options{
		Account: broker.Account{Balance: 10_000, Currency: "USD", Leverage: 100},
		Series:  series,
		RunID:   "test-run",
		Logger:  log,
	})
	require.NoError(t, err)

	executor := exec.New(task.NewQueue(4, log), log)
	return NewRunner(engine, executor, "test-run", opts, log)
}

func flatSeries(t *testing.T, n int) *market.Series {
	t.Helper()
	ticks := make([]market.Tick, n)
	for i := range ticks {
		ticks[i] = market.Tick{Bid: 1.10000, Ask: 1.10010, Volume: 1}
	}
	s, err := market.NewSeries("EURUSD", runStart, ticks)
	require.NoError(t, err)
	return s
}

func TestRunReplaysWholeSpan(t *testing.T) {
	r := newTestRunner(t, flatSeries(t, 50), RunnerOptions{})
	r.AddStrategy("noop", strategies.Noop{})

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-run", res.RunID)
	assert.Equal(t, 0, res.Deals)
	assert.Equal(t, 10_000.0, res.Balance)
	assert.Equal(t, runStart, res.Start)
	assert.Equal(t, runStart.Add(50*time.Second), res.End)

	// The replay loop walked the span to its end.
	assert.Equal(t, 49, r.Engine.Cursor().Index)
	assert.True(t, r.Executor.ShuttingDown())
}

func TestRunOpenOnceWithCloseEnd(t *testing.T) {
	r := newTestRunner(t, flatSeries(t, 30), RunnerOptions{CloseEnd: true})
	r.AddStrategy("open-once", &strategies.OpenOnce{Symbol: "EURUSD", Volume: 0.1})

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Deals, "one opening fill, one end-of-replay close")
	assert.Equal(t, 0, r.Engine.Ledger().Positions.OpenCount())

	// A flat quote makes the spread the whole round-trip cost.
	assert.InDelta(t, 9_999.0, res.Balance, 1e-9)
	assert.Equal(t, 0, res.Wins)
	assert.Equal(t, 1, res.Losses)

	deals := r.Engine.Ledger().Deals.GetRange(runStart, runStart.Add(time.Hour))
	require.Len(t, deals, 2)
	assert.Equal(t, ledger.EntryIn, deals[0].Entry)
	assert.Equal(t, ledger.EntryOut, deals[1].Entry)
}

func TestRunWithoutCloseEndLeavesPositionOpen(t *testing.T) {
	r := newTestRunner(t, flatSeries(t, 30), RunnerOptions{})
	r.AddStrategy("open-once", &strategies.OpenOnce{Symbol: "EURUSD", Volume: 0.1})

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Deals)
	assert.Equal(t, 1, r.Engine.Ledger().Positions.OpenCount())
	assert.Equal(t, 10_000.0, res.Balance, "unrealized profit never touches the balance")
}

func TestRunRaisesWorkersForAllStrategies(t *testing.T) {
	// An undersized queue would leave replay blocked on an unscheduled
	// runner's channel with no deadline to unblock it.
	log := quietLogger()
	engine, err := sim.NewEngine(sim.Options{
		Account: broker.Account{Balance: 10_000, Currency: "USD", Leverage: 100},
		Series:  flatSeries(t, 30),
		RunID:   "test-run",
		Logger:  log,
	})
	require.NoError(t, err)

	queue := task.NewQueue(1, log)
	r := NewRunner(engine, exec.New(queue, log), "test-run", RunnerOptions{}, log)
	r.AddStrategy("noop", strategies.Noop{})
	r.AddStrategy("open-once", &strategies.OpenOnce{Symbol: "EURUSD", Volume: 0.1})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run stalled with fewer workers than strategies")
	}
	assert.GreaterOrEqual(t, queue.Workers(), 3)
	assert.Equal(t, 29, r.Engine.Cursor().Index, "replay walked the whole span")
}

func TestRunRequiresCollaborators(t *testing.T) {
	r := &Runner{}
	_, err := r.Run(context.Background())
	assert.Error(t, err)
}

func TestRunTimeoutInterruptsReplayCleanly(t *testing.T) {
	r := newTestRunner(t, flatSeries(t, 200), RunnerOptions{Timeout: time.Nanosecond})
	r.AddStrategy("noop", strategies.Noop{})

	res, err := r.Run(context.Background())
	require.NoError(t, err, "an interrupted replay is not a failure")
	assert.Less(t, r.Engine.Cursor().Index, 199)
	assert.Equal(t, 10_000.0, res.Balance)
}

func TestFromConfigBuildsRunnableBacktest(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Simulation.Steps = 120
	cfg.Simulation.CloseEnd = true
	cfg.Strategy = config.StrategyConfig{Name: "open-once", Symbol: "EURUSD", Volume: 0.1}
	cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: filepath.Join(dir, "run.sqlite")}
	cfg.Scheduler = config.SchedulerConfig{Workers: 2}

	r, jrnl, err := FromConfig(cfg, quietLogger())
	require.NoError(t, err)
	defer jrnl.Close()

	require.NotEmpty(t, r.RunID)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r.RunID, res.RunID)
	assert.Equal(t, 2, res.Deals)

	// The journal saw both fills.
	sq, ok := jrnl.(*journal.SQLiteJournal)
	require.True(t, ok)
	recorded, err := sq.ListDealsByRun(r.RunID)
	require.NoError(t, err)
	assert.Len(t, recorded, 2)
}

func TestFromConfigUsesTicksFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "ticks.csv")
	writeTicksCSV(t, csvPath, 60)

	cfg := config.Default()
	cfg.Simulation.TicksFile = csvPath
	cfg.Simulation.CloseEnd = false
	cfg.Strategy = config.StrategyConfig{Name: "noop", Symbol: "EURUSD", Volume: 0.1}
	cfg.Journal = config.JournalConfig{Type: "none"}

	r, jrnl, err := FromConfig(cfg, quietLogger())
	require.NoError(t, err)
	defer jrnl.Close()

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Deals)
	assert.Equal(t, res.Start.Add(60*time.Second), res.End)
}

func TestFromConfigWiresRiskGuard(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Steps = 30
	cfg.Simulation.CloseEnd = false
	cfg.Strategy = config.StrategyConfig{Name: "open-once", Symbol: "EURUSD", Volume: 0.5}
	cfg.Journal = config.JournalConfig{Type: "none"}
	cfg.Risk = config.RiskConfig{MaxVolume: 0.1}

	r, jrnl, err := FromConfig(cfg, quietLogger())
	require.NoError(t, err)
	defer jrnl.Close()
	require.NotNil(t, r.Broker, "a configured policy must wrap the engine")

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Deals, "the policy blocks the oversized entry")
	assert.Equal(t, 0, r.Engine.Ledger().Positions.OpenCount())
}

func TestFromConfigRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy.Name = ""
	_, _, err := FromConfig(cfg, quietLogger())
	assert.Error(t, err)
}

func TestFromConfigRejectsUnknownStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy.Name = "martingale"
	cfg.Journal = config.JournalConfig{Type: "none"}
	_, _, err := FromConfig(cfg, quietLogger())
	assert.Error(t, err)
}

func writeTicksCSV(t *testing.T, path string, rows int) {
	t.Helper()
	data := "bid,ask\n"
	for i := 0; i < rows; i++ {
		data += "1.1000,1.1002\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}
