// Package exec composes the task queue with strategy runners, background
// routines, and blocking routines offloaded to their own goroutine pool.
// It tracks liveness counts and drives global shutdown: when all tracked
// units finish (or the queue times out) the executor flips a shutdown flag
// that dependent strategy loops consume to exit their own loops.
package exec

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/rustyeddy/backsim/task"
)

// Runner is a scheduled strategy unit. Run should observe ctx and the
// executor's shutdown flag at its suspension points.
type Runner interface {
	Name() string
	Run(ctx context.Context) error
}

// BlockingFn is a routine that may block without suspension points
// (e.g. blocking I/O). It runs outside the cooperative queue and must not
// touch engine state; its result is delivered back over a channel.
type BlockingFn func() error

type blockingRoutine struct {
	name string
	fn   BlockingFn
}

// Result reports the completion of a blocking routine.
type Result struct {
	Name string
	Err  error
}

type Executor struct {
	queue *task.Queue
	log   *logrus.Entry

	mu          sync.Mutex
	strategies  []Runner
	routines    []task.Item
	blocking    []blockingRoutine
	initialized bool

	running  atomic.Int32 // strategy runners currently executing
	shutdown atomic.Bool
}

// New creates an executor over the given queue.
func New(queue *task.Queue, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{
		queue: queue,
		log:   logger.WithField("component", "exec"),
	}
}

func (e *Executor) Queue() *task.Queue { return e.queue }

// AddStrategy registers a strategy runner. Strategy items are best-effort:
// they stop cooperatively when the queue's aggregate timeout elapses.
func (e *Executor) AddStrategy(r Runner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies = append(e.strategies, r)
}

// AddRoutine registers a background routine scheduled through the queue.
func (e *Executor) AddRoutine(name string, fn task.Fn, mustComplete bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.routines = append(e.routines, task.Item{Name: name, Fn: fn, MustComplete: mustComplete})
}

// AddBlocking registers a routine offloaded to the blocking pool.
func (e *Executor) AddBlocking(name string, fn BlockingFn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocking = append(e.blocking, blockingRoutine{name: name, fn: fn})
}

// StrategyCount reports registered strategy runners.
func (e *Executor) StrategyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.strategies)
}

// RoutineCount reports registered queue-scheduled background routines.
func (e *Executor) RoutineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.routines)
}

// BlockingCount reports registered blocking routines; they are tracked
// separately from cooperatively scheduled ones.
func (e *Executor) BlockingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.blocking)
}

// RunningStrategies reports strategy runners currently executing.
func (e *Executor) RunningStrategies() int {
	return int(e.running.Load())
}

// ShuttingDown is the global shutdown flag. Strategy loops check it at
// their suspension points and exit when it flips.
func (e *Executor) ShuttingDown() bool {
	return e.shutdown.Load()
}

// Initialize enqueues one queue item per registered strategy runner and one
// per background routine. It is idempotent and called implicitly by Run.
func (e *Executor) Initialize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return
	}
	e.initialized = true

	for _, r := range e.strategies {
		r := r
		e.queue.Add(task.Item{
			Name: "strategy/" + r.Name(),
			Fn: func(ctx context.Context) error {
				e.running.Add(1)
				defer e.running.Add(-1)
				return r.Run(ctx)
			},
		})
	}
	for _, it := range e.routines {
		e.queue.Add(it)
	}
}

// Run executes everything: queue items under the aggregate timeout, and
// blocking routines on their own pool with results marshalled back over a
// channel. When the queue is drained (or timed out) and all blocking
// routines have reported, the shutdown flag flips and Run returns the
// queue's must-complete failures, if any.
func (e *Executor) Run(ctx context.Context, timeout time.Duration) error {
	e.Initialize()

	e.mu.Lock()
	blocking := append([]blockingRoutine(nil), e.blocking...)
	e.mu.Unlock()

	results := make(chan Result, len(blocking))
	bp := pool.New()
	for _, b := range blocking {
		b := b
		bp.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					results <- Result{Name: b.name, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			results <- Result{Name: b.name, Err: b.fn()}
		})
	}

	err := e.queue.Run(ctx, timeout)

	// Queue work is done; signal dependent loops before waiting out the
	// blocking pool.
	e.shutdown.Store(true)

	bp.Wait()
	close(results)
	for res := range results {
		if res.Err != nil {
			e.log.WithField("routine", res.Name).WithError(res.Err).Warn("blocking routine failed")
		} else {
			e.log.WithField("routine", res.Name).Debug("blocking routine finished")
		}
	}

	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}
