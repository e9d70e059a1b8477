package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRunDrainsEmptyQueue(t *testing.T) {
	q := NewQueue(4, quietLogger())
	require.NoError(t, q.Run(context.Background(), time.Second))
}

func TestMustCompleteOutlivesAggregateTimeout(t *testing.T) {
	q := NewQueue(4, quietLogger())

	var mustSteps, bestSteps, slowSteps atomic.Int32

	// Loops until its own bound, well past the 300ms aggregate timeout.
	q.Add(Item{
		Name:         "ticker",
		MustComplete: true,
		Fn: func(ctx context.Context) error {
			for i := 0; i < 10; i++ {
				mustSteps.Add(1)
				if err := Sleep(ctx, 60*time.Millisecond); err != nil {
					return err
				}
			}
			return nil
		},
	})

	// Best-effort sibling at the same cadence, cancelled at the timeout.
	q.Add(Item{
		Name: "worker",
		Fn: func(ctx context.Context) error {
			for i := 0; i < 10; i++ {
				bestSteps.Add(1)
				if err := Sleep(ctx, 60*time.Millisecond); err != nil {
					return err
				}
			}
			return nil
		},
	})

	// Suspends far past the aggregate timeout in one step: it only gets to
	// run its first iteration.
	q.Add(Item{
		Name: "sleeper",
		Fn: func(ctx context.Context) error {
			for i := 0; i < 10; i++ {
				slowSteps.Add(1)
				if err := Sleep(ctx, 2*time.Second); err != nil {
					return err
				}
			}
			return nil
		},
	})

	err := q.Run(context.Background(), 300*time.Millisecond)
	require.NoError(t, err, "best-effort cancellation is not a failure")

	assert.Equal(t, int32(10), mustSteps.Load(), "must-complete runs to completion")
	assert.GreaterOrEqual(t, bestSteps.Load(), int32(2), "best-effort runs until the timeout")
	assert.Less(t, bestSteps.Load(), int32(10))
	assert.Equal(t, int32(1), slowSteps.Load(), "a long suspension is cancelled mid-sleep")

	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.PriorityLen())
}

func TestBestEffortDroppedAfterDeadlineNeverStarts(t *testing.T) {
	// One worker: the must-complete item holds the slot past the aggregate
	// timeout, so the queued best-effort item is dropped unstarted.
	q := NewQueue(1, quietLogger())

	var started atomic.Bool
	q.Add(Item{
		Name:         "holder",
		MustComplete: true,
		Fn: func(ctx context.Context) error {
			time.Sleep(150 * time.Millisecond)
			return nil
		},
	})
	q.Add(Item{
		Name: "late",
		Fn: func(ctx context.Context) error {
			started.Store(true)
			return nil
		},
	})

	require.NoError(t, q.Run(context.Background(), 50*time.Millisecond))
	assert.False(t, started.Load(), "expired best-effort items are dropped, not run")
}

func TestPerItemTimeoutAppliesToMustComplete(t *testing.T) {
	q := NewQueue(2, quietLogger())

	q.Add(Item{
		Name:         "bounded",
		MustComplete: true,
		Timeout:      50 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			return Sleep(ctx, time.Second)
		},
	})

	err := q.Run(context.Background(), 0)
	require.Error(t, err, "the per-item bound applies even to must-complete items")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "bounded")
}

func TestMustCompleteFailuresAreJoined(t *testing.T) {
	q := NewQueue(4, quietLogger())

	errBoom := errors.New("boom")
	var ran atomic.Int32

	q.Add(Item{Name: "a", MustComplete: true, Fn: func(ctx context.Context) error { ran.Add(1); return errBoom }})
	q.Add(Item{Name: "b", MustComplete: true, Fn: func(ctx context.Context) error { ran.Add(1); return nil }})
	q.Add(Item{Name: "c", MustComplete: true, Fn: func(ctx context.Context) error { ran.Add(1); return errBoom }})

	err := q.Run(context.Background(), time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, int32(3), ran.Load(), "a failing item never aborts its siblings")
}

func TestBestEffortFailuresAreAbsorbed(t *testing.T) {
	q := NewQueue(4, quietLogger())

	var ran atomic.Int32
	q.Add(Item{Name: "bad", Fn: func(ctx context.Context) error { ran.Add(1); return errors.New("ignored") }})
	q.Add(Item{Name: "good", Fn: func(ctx context.Context) error { ran.Add(1); return nil }})

	require.NoError(t, q.Run(context.Background(), time.Second))
	assert.Equal(t, int32(2), ran.Load())
}

func TestPanicIsIsolated(t *testing.T) {
	q := NewQueue(4, quietLogger())

	var survived atomic.Bool
	q.Add(Item{Name: "bomb", MustComplete: true, Fn: func(ctx context.Context) error { panic("kaboom") }})
	q.Add(Item{Name: "survivor", MustComplete: true, Fn: func(ctx context.Context) error {
		survived.Store(true)
		return nil
	}})

	err := q.Run(context.Background(), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.True(t, survived.Load())
}

func TestBestEffortPanicIsAbsorbed(t *testing.T) {
	q := NewQueue(2, quietLogger())
	q.Add(Item{Name: "bomb", Fn: func(ctx context.Context) error { panic("kaboom") }})
	require.NoError(t, q.Run(context.Background(), time.Second))
}

func TestItemsAddedDuringRunAreDrained(t *testing.T) {
	q := NewQueue(2, quietLogger())

	var second atomic.Bool
	q.Add(Item{
		Name:         "first",
		MustComplete: true,
		Fn: func(ctx context.Context) error {
			q.Add(Item{
				Name:         "second",
				MustComplete: true,
				Fn: func(ctx context.Context) error {
					second.Store(true)
					return nil
				},
			})
			return nil
		},
	})

	require.NoError(t, q.Run(context.Background(), time.Second))
	assert.True(t, second.Load(), "items enqueued mid-run are picked up by the next drain")
	assert.Equal(t, 0, q.PriorityLen())
}

func TestRunHonorsParentContext(t *testing.T) {
	q := NewQueue(2, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var steps atomic.Int32
	q.Add(Item{
		Name: "worker",
		Fn: func(ctx context.Context) error {
			for {
				steps.Add(1)
				if err := Sleep(ctx, 20*time.Millisecond); err != nil {
					return err
				}
			}
		},
	})

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not stop after parent cancellation")
	}
	assert.Greater(t, steps.Load(), int32(0))
}

func TestMustCompleteStopsOnParentCancellation(t *testing.T) {
	// The aggregate-timeout exemption must not sever must-complete items
	// from the caller: cancelling ctx stops them at their next suspension.
	q := NewQueue(2, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var steps atomic.Int32
	q.Add(Item{
		Name:         "ticker",
		MustComplete: true,
		Fn: func(ctx context.Context) error {
			for i := 0; i < 20; i++ {
				steps.Add(1)
				if err := Sleep(ctx, 50*time.Millisecond); err != nil {
					return err
				}
			}
			return nil
		},
	})

	go func() {
		time.Sleep(120 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := q.Run(ctx, 10*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "run returns at the next suspension point")
	assert.Less(t, steps.Load(), int32(20), "the item does not run to completion after cancellation")
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
