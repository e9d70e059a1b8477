// Package indicators holds the streaming indicators used by the sample
// strategies. Indicator math is a thin collaborator of the engine.
package indicators

import "fmt"

// EMA is a streaming Exponential Moving Average. It seeds with the simple
// average of the first period values, then applies the standard multiplier.
type EMA struct {
	period     int
	multiplier float64
	value      float64
	count      int
	warmupSum  float64
}

func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *EMA) Reset() {
	e.value = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *EMA) Update(v float64) {
	e.count++
	if e.count < e.period {
		e.warmupSum += v
		return
	}
	if e.count == e.period {
		e.value = (e.warmupSum + v) / float64(e.period)
		return
	}
	e.value = (v-e.value)*e.multiplier + e.value
}

func (e *EMA) Ready() bool {
	return e.count >= e.period
}

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}
