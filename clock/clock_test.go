package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newClock(t *testing.T, length int) *Clock {
	t.Helper()
	c, err := New(start, length)
	require.NoError(t, err)
	return c
}

func TestNewRejectsEmptySpan(t *testing.T) {
	_, err := New(start, 0)
	require.Error(t, err)
	_, err = New(start, -5)
	require.Error(t, err)
}

func TestNextAdvancesOneSecond(t *testing.T) {
	c := newClock(t, 10)

	cur, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, cur.Index)
	assert.Equal(t, start.Add(time.Second), cur.Time)
}

func TestNextExhaustsAtSpanEnd(t *testing.T) {
	c := newClock(t, 3)

	for i := 0; i < 2; i++ {
		_, err := c.Next()
		require.NoError(t, err)
	}

	_, err := c.Next()
	require.ErrorIs(t, err, ErrRangeExhausted)
	// Cursor stays at the last valid index.
	assert.Equal(t, 2, c.Cursor().Index)
}

func TestFastForward(t *testing.T) {
	c := newClock(t, 200)

	prev := c.Cursor()
	cur, err := c.FastForward(100)
	require.NoError(t, err)

	assert.Equal(t, prev.Index+100, cur.Index)
	assert.Equal(t, prev.Time.Add(100*time.Second), cur.Time)
}

func TestFastForwardIsAtomic(t *testing.T) {
	c := newClock(t, 10)

	_, err := c.FastForward(4)
	require.NoError(t, err)

	// Overshooting must not move the cursor at all.
	_, err = c.FastForward(100)
	require.ErrorIs(t, err, ErrRangeExhausted)
	assert.Equal(t, 4, c.Cursor().Index)
}

func TestFastForwardRejectsNegative(t *testing.T) {
	c := newClock(t, 10)
	_, err := c.FastForward(-1)
	require.Error(t, err)
	assert.Equal(t, 0, c.Cursor().Index)
}

func TestGoTo(t *testing.T) {
	tests := []struct {
		name    string
		at      time.Time
		wantIdx int
		wantErr error
	}{
		{"exact grid time", start.Add(42 * time.Second), 42, nil},
		{"rounds up to next grid time", start.Add(42*time.Second + 300*time.Millisecond), 43, nil},
		{"span start", start, 0, nil},
		{"last index", start.Add(99 * time.Second), 99, nil},
		{"before span", start.Add(-time.Second), 0, ErrOutOfRange},
		{"at span end", start.Add(100 * time.Second), 0, ErrOutOfRange},
		{"after span", start.Add(time.Hour), 0, ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClock(t, 100)
			cur, err := c.GoTo(tt.at)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, c.Cursor().Index, "rejection must not move the cursor")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIdx, cur.Index)
			assert.Equal(t, start.Add(time.Duration(tt.wantIdx)*time.Second), cur.Time)
		})
	}
}

func TestGoToIsIdempotent(t *testing.T) {
	c := newClock(t, 100)
	at := start.Add(37 * time.Second)

	first, err := c.GoTo(at)
	require.NoError(t, err)
	second, err := c.GoTo(at)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGoToRewinds(t *testing.T) {
	c := newClock(t, 100)

	_, err := c.FastForward(80)
	require.NoError(t, err)

	cur, err := c.GoTo(start.Add(5 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5, cur.Index)
}

func TestSpan(t *testing.T) {
	c := newClock(t, 60)
	sp := c.Span()

	assert.Equal(t, start, sp.Start)
	assert.Equal(t, start.Add(60*time.Second), sp.End)
	assert.True(t, sp.Contains(start))
	assert.True(t, sp.Contains(start.Add(59*time.Second)))
	assert.False(t, sp.Contains(sp.End))
}
