package market

import (
	"fmt"
	"math/rand"
	"time"
)

// Series is a pre-loaded, read-only snapshot of ticks over a closed
// historical span at fixed one-second granularity: tick i carries the
// quote in effect at Start + i seconds.
type Series struct {
	symbol string
	start  time.Time
	ticks  []Tick
}

// NewSeries builds a Series from time-ordered ticks. Tick times are
// normalized to the fixed grid; the caller supplies one tick per second.
func NewSeries(symbol string, start time.Time, ticks []Tick) (*Series, error) {
	if len(ticks) == 0 {
		return nil, fmt.Errorf("market: series needs at least one tick")
	}
	start = start.UTC().Truncate(time.Second)
	out := make([]Tick, len(ticks))
	for i, t := range ticks {
		t.Symbol = symbol
		t.Time = start.Add(time.Duration(i) * time.Second)
		out[i] = t
	}
	return &Series{symbol: symbol, start: start, ticks: out}, nil
}

func (s *Series) Symbol() string { return s.symbol }

func (s *Series) Len() int { return len(s.ticks) }

func (s *Series) Start() time.Time { return s.start }

// End is the exclusive upper bound of the span.
func (s *Series) End() time.Time {
	return s.start.Add(time.Duration(len(s.ticks)) * time.Second)
}

// At returns the tick at index i. An out-of-bounds index is a programming
// error: the clock guarantees cursor indices stay within the span.
func (s *Series) At(i int) Tick {
	if i < 0 || i >= len(s.ticks) {
		panic(fmt.Sprintf("market: series index %d out of range [0,%d)", i, len(s.ticks)))
	}
	return s.ticks[i]
}

// WalkConfig parameterizes a deterministic random-walk series, used when no
// historical tick file is supplied.
type WalkConfig struct {
	Symbol     string
	Start      time.Time
	Steps      int
	InitialBid float64
	InitialAsk float64
	StepSize   float64 // max absolute mid move per second
	Seed       int64
}

// RandomWalk generates a synthetic tick series. The same seed always yields
// the same series, so backtests over generated data are reproducible.
func RandomWalk(cfg WalkConfig) (*Series, error) {
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("market: walk needs a positive step count, got %d", cfg.Steps)
	}
	if cfg.InitialAsk <= cfg.InitialBid {
		return nil, fmt.Errorf("market: walk initial ask %v must exceed bid %v", cfg.InitialAsk, cfg.InitialBid)
	}
	if cfg.StepSize <= 0 {
		cfg.StepSize = 0.0001
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	spread := cfg.InitialAsk - cfg.InitialBid
	mid := (cfg.InitialBid + cfg.InitialAsk) / 2

	ticks := make([]Tick, cfg.Steps)
	for i := range ticks {
		ticks[i] = Tick{
			Bid:    mid - spread/2,
			Ask:    mid + spread/2,
			Volume: float64(1 + rng.Intn(100)),
		}
		mid += (rng.Float64()*2 - 1) * cfg.StepSize
		if mid <= spread {
			mid = spread * 2 // keep quotes positive on long walks
		}
	}
	return NewSeries(cfg.Symbol, cfg.Start, ticks)
}
