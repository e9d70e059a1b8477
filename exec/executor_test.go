package exec

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backsim/task"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newExecutor() *Executor {
	return New(task.NewQueue(4, quietLogger()), quietLogger())
}

type fakeRunner struct {
	name string
	fn   func(ctx context.Context) error
}

func (r *fakeRunner) Name() string { return r.name }

func (r *fakeRunner) Run(ctx context.Context) error {
	if r.fn != nil {
		return r.fn(ctx)
	}
	return nil
}

func TestCounts(t *testing.T) {
	e := newExecutor()

	e.AddStrategy(&fakeRunner{name: "alpha"})
	e.AddStrategy(&fakeRunner{name: "beta"})
	e.AddRoutine("heartbeat", func(ctx context.Context) error { return nil }, false)
	e.AddBlocking("io", func() error { return nil })

	assert.Equal(t, 2, e.StrategyCount())
	assert.Equal(t, 1, e.RoutineCount())
	assert.Equal(t, 1, e.BlockingCount())
	assert.Equal(t, 0, e.RunningStrategies())
	assert.False(t, e.ShuttingDown())
}

func TestRunExecutesEverythingAndFlipsShutdown(t *testing.T) {
	e := newExecutor()

	var strat, routine, blocking atomic.Int32
	e.AddStrategy(&fakeRunner{name: "alpha", fn: func(ctx context.Context) error {
		strat.Add(1)
		return nil
	}})
	e.AddRoutine("routine", func(ctx context.Context) error {
		routine.Add(1)
		return nil
	}, true)
	e.AddBlocking("io", func() error {
		blocking.Add(1)
		return nil
	})

	require.NoError(t, e.Run(context.Background(), time.Second))

	assert.Equal(t, int32(1), strat.Load())
	assert.Equal(t, int32(1), routine.Load())
	assert.Equal(t, int32(1), blocking.Load())
	assert.True(t, e.ShuttingDown())
	assert.Equal(t, 0, e.RunningStrategies())
	assert.Equal(t, 0, e.Queue().Len())
	assert.Equal(t, 0, e.Queue().PriorityLen())
}

func TestRunningStrategiesTracksLiveRunners(t *testing.T) {
	e := newExecutor()

	started := make(chan struct{})
	release := make(chan struct{})
	e.AddStrategy(&fakeRunner{name: "alpha", fn: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background(), 0) }()

	<-started
	assert.Equal(t, 1, e.RunningStrategies())
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, 0, e.RunningStrategies())
}

func TestInitializeIsIdempotent(t *testing.T) {
	e := newExecutor()
	e.AddStrategy(&fakeRunner{name: "alpha"})

	e.Initialize()
	e.Initialize()

	assert.Equal(t, 1, e.Queue().Len(), "repeat initialization must not enqueue duplicates")
}

func TestStrategyErrorsAreBestEffort(t *testing.T) {
	e := newExecutor()
	e.AddStrategy(&fakeRunner{name: "flaky", fn: func(ctx context.Context) error {
		return errors.New("tick source gone")
	}})

	require.NoError(t, e.Run(context.Background(), time.Second),
		"strategy failures are logged, not propagated")
}

func TestMustCompleteRoutineErrorPropagates(t *testing.T) {
	e := newExecutor()
	errReplay := errors.New("series ended early")
	e.AddRoutine("replay", func(ctx context.Context) error { return errReplay }, true)

	err := e.Run(context.Background(), time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, errReplay)
}

func TestBlockingResultsAreCollected(t *testing.T) {
	e := newExecutor()

	var order []string
	done := make(chan struct{})
	e.AddBlocking("slow-io", func() error {
		<-done
		order = append(order, "blocking")
		return errors.New("disk full")
	})
	e.AddRoutine("fast", func(ctx context.Context) error {
		close(done)
		return nil
	}, true)

	// Blocking failures are reported via the results channel and logged;
	// they never fail the run.
	require.NoError(t, e.Run(context.Background(), time.Second))
	assert.Equal(t, []string{"blocking"}, order, "run waits for the blocking pool")
}

func TestBlockingPanicIsContained(t *testing.T) {
	e := newExecutor()
	e.AddBlocking("bomb", func() error { panic("kaboom") })
	require.NoError(t, e.Run(context.Background(), time.Second))
	assert.True(t, e.ShuttingDown())
}

func TestStrategyObservesShutdownFlag(t *testing.T) {
	e := newExecutor()

	var loops atomic.Int32
	e.AddStrategy(&fakeRunner{name: "looper", fn: func(ctx context.Context) error {
		for !e.ShuttingDown() {
			loops.Add(1)
			if err := task.Sleep(ctx, 10*time.Millisecond); err != nil {
				return nil
			}
		}
		return nil
	}})

	require.NoError(t, e.Run(context.Background(), 100*time.Millisecond))
	assert.Greater(t, loops.Load(), int32(0))
	assert.True(t, e.ShuttingDown())
}
