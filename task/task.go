// Package task provides the priority-aware unit-of-work queue that drives
// strategy execution. Must-complete items run ahead of best-effort items
// and are exempt from the queue's aggregate-timeout cancellation;
// best-effort items are cancelled cooperatively once the aggregate timeout
// elapses.
package task

import (
	"context"
	"time"
)

// Fn is a unit of work. Implementations observe cancellation at their own
// suspension points (Sleep, channel operations, I/O); a function that never
// suspends cannot be cancelled.
type Fn func(ctx context.Context) error

// Item wraps a callable for queueing.
type Item struct {
	Name string
	Fn   Fn

	// MustComplete items start before any best-effort item and are allowed
	// to run to completion even as the aggregate timeout approaches. The
	// per-item Timeout still applies.
	MustComplete bool

	// Timeout bounds this single item's execution. Zero means no per-item
	// bound.
	Timeout time.Duration
}

// Sleep pauses for d or until ctx is cancelled, whichever comes first. It
// is the canonical suspension point for queued work.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
