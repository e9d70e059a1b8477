package task

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

// Queue holds pending items in two priority classes. Items may be added
// while Run is draining; Run keeps going until both classes are empty or
// the aggregate timeout has elapsed.
type Queue struct {
	mu       sync.Mutex
	priority []Item
	items    []Item
	workers  int
	log      *logrus.Entry
}

// NewQueue creates a queue running at most workers items concurrently
// (GOMAXPROCS when workers <= 0).
func NewQueue(workers int, logger *logrus.Logger) *Queue {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Queue{
		workers: workers,
		log:     logger.WithField("component", "task"),
	}
}

// Workers reports the concurrency limit.
func (q *Queue) Workers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.workers
}

// EnsureWorkers raises the concurrency limit to at least n. Callers must
// raise it before Run; the limit is fixed once draining starts.
func (q *Queue) EnsureWorkers(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.workers < n {
		q.workers = n
	}
}

// Add enqueues an item into its priority class.
func (q *Queue) Add(it Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it.MustComplete {
		q.priority = append(q.priority, it)
	} else {
		q.items = append(q.items, it)
	}
}

// Len reports the number of queued best-effort items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// PriorityLen reports the number of queued must-complete items.
func (q *Queue) PriorityLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.priority)
}

func (q *Queue) drain() (priority, items []Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	priority, q.priority = q.priority, nil
	items, q.items = q.items, nil
	return priority, items
}

// Run drains the queue until it is empty, bounding total duration by
// timeout (0 means unbounded). Best-effort items inherit the aggregate
// deadline and are cancelled cooperatively when it passes; items not yet
// started by then are dropped. Must-complete items are started regardless
// and outlive the aggregate deadline, bounded by their per-item timeout
// and by cancellation of ctx itself.
//
// A failing or panicking item never aborts its siblings. Run returns the
// joined errors of must-complete items only; best-effort failures are
// logged and absorbed.
func (q *Queue) Run(ctx context.Context, timeout time.Duration) error {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	// Must-complete items keep running after the aggregate deadline but
	// still stop when the caller cancels ctx.
	exempt := ctx

	var mu sync.Mutex
	var failures []error

	for {
		priority, items := q.drain()
		if len(priority) == 0 && len(items) == 0 {
			return errors.Join(failures...)
		}

		p := pool.New().WithMaxGoroutines(q.Workers())
		for _, it := range priority {
			it := it
			p.Go(func() {
				if err := q.execute(exempt, it); err != nil {
					mu.Lock()
					failures = append(failures, fmt.Errorf("%s: %w", it.Name, err))
					mu.Unlock()
				}
			})
		}
		for _, it := range items {
			it := it
			p.Go(func() {
				if runCtx.Err() != nil {
					q.log.WithField("item", it.Name).Debug("dropped: queue timeout elapsed")
					return
				}
				if err := q.execute(runCtx, it); err != nil {
					q.log.WithField("item", it.Name).WithError(err).Warn("best-effort item failed")
				}
			})
		}
		p.Wait()
	}
}

// execute runs one item under its per-item timeout, converting panics to
// errors so one unit cannot take down the queue.
func (q *Queue) execute(ctx context.Context, it Item) (err error) {
	if it.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, it.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			if it.MustComplete {
				q.log.WithField("item", it.Name).Errorf("must-complete item panicked: %v", r)
			}
		}
	}()

	err = it.Fn(ctx)
	if err != nil && it.MustComplete {
		q.log.WithField("item", it.Name).WithError(err).Error("must-complete item failed")
	}
	return err
}
