// Package clock owns the simulated time cursor of a backtest: a monotonic
// index over a fixed historical span at one-second granularity.
//
// The clock is not safe for concurrent use; only the matching engine's
// replay loop advances it (single-writer discipline).
package clock

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRangeExhausted is returned when an advance would move the cursor
	// past the end of the span.
	ErrRangeExhausted = errors.New("clock: range exhausted")

	// ErrOutOfRange is returned by GoTo for timestamps outside the span.
	ErrOutOfRange = errors.New("clock: time out of range")
)

// Cursor is the simulation's position within the span. Time is always
// Span.Start + Index seconds.
type Cursor struct {
	Index int
	Time  time.Time
}

// Span is the historical interval the clock covers. Start is inclusive,
// End exclusive.
type Span struct {
	Start time.Time
	End   time.Time
}

func (s Span) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

type Clock struct {
	start  time.Time
	length int
	index  int
}

// New creates a clock over [start, start+length seconds) with the cursor at
// index 0.
func New(start time.Time, length int) (*Clock, error) {
	if length <= 0 {
		return nil, fmt.Errorf("clock: span length must be positive, got %d", length)
	}
	return &Clock{start: start.UTC().Truncate(time.Second), length: length}, nil
}

func (c *Clock) Span() Span {
	return Span{Start: c.start, End: c.start.Add(time.Duration(c.length) * time.Second)}
}

func (c *Clock) Len() int { return c.length }

func (c *Clock) Cursor() Cursor {
	return Cursor{Index: c.index, Time: c.timeAt(c.index)}
}

// Next advances the cursor by one step and returns the new position.
func (c *Clock) Next() (Cursor, error) {
	return c.FastForward(1)
}

// FastForward advances the cursor by steps. The advance is atomic: if it
// would leave the span, the cursor does not move at all.
func (c *Clock) FastForward(steps int) (Cursor, error) {
	if steps < 0 {
		return c.Cursor(), fmt.Errorf("clock: cannot fast-forward by %d steps", steps)
	}
	next := c.index + steps
	if next >= c.length {
		return c.Cursor(), fmt.Errorf("%w: index %d + %d steps exceeds span of %d", ErrRangeExhausted, c.index, steps, c.length)
	}
	c.index = next
	return c.Cursor(), nil
}

// GoTo moves the cursor to the smallest index whose time is >= t. Unlike
// the advancing operations it may rewind. Timestamps outside the span are
// rejected, not clamped.
func (c *Clock) GoTo(t time.Time) (Cursor, error) {
	if !c.Span().Contains(t) {
		return c.Cursor(), fmt.Errorf("%w: %s not in [%s, %s)", ErrOutOfRange,
			t.UTC().Format(time.RFC3339), c.Span().Start.Format(time.RFC3339), c.Span().End.Format(time.RFC3339))
	}
	d := t.Sub(c.start)
	idx := int(d / time.Second)
	if d%time.Second != 0 {
		idx++ // closest grid time at or after t
	}
	if idx >= c.length {
		return c.Cursor(), fmt.Errorf("%w: %s rounds past span end", ErrOutOfRange, t.UTC().Format(time.RFC3339))
	}
	c.index = idx
	return c.Cursor(), nil
}

func (c *Clock) timeAt(i int) time.Time {
	return c.start.Add(time.Duration(i) * time.Second)
}
