package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/backsim/market"
)

func TestPlannedRisk(t *testing.T) {
	info := market.Symbols["EURUSD"]

	// 0.1 lots, 20 pip stop distance.
	assert.InDelta(t, 20.0, PlannedRisk(info, 0.1, 1.10010, 1.09810), 1e-9)
	// Direction of the stop does not matter.
	assert.InDelta(t, 20.0, PlannedRisk(info, 0.1, 1.09810, 1.10010), 1e-9)
}

func TestRR(t *testing.T) {
	assert.InDelta(t, 2.0, RR(1.1000, 1.0980, 1.1040), 1e-9)
	assert.InDelta(t, 0.5, RR(1.1000, 1.0960, 1.1020), 1e-9)
	assert.Equal(t, 0.0, RR(1.1, 1.1, 1.2), "zero stop distance yields no ratio")
}

func TestSizeVolume(t *testing.T) {
	info := market.Symbols["EURUSD"]

	// Risk 1% of $10,000 = $100 over a 20 pip stop: 100/(0.0020*100000) = 0.5.
	vol := SizeVolume(info, 10_000, 0.01, 1.10010, 1.09810)
	assert.InDelta(t, 0.5, vol, 1e-9)

	// An awkward budget floors to the volume step.
	vol = SizeVolume(info, 10_000, 0.0017, 1.10010, 1.09810)
	assert.InDelta(t, 0.08, vol, 1e-9)

	// Too small a budget to reach the minimum lot.
	assert.Equal(t, 0.0, SizeVolume(info, 100, 0.001, 1.10010, 1.09810))

	// Clamped to the symbol maximum.
	vol = SizeVolume(info, 1e9, 0.5, 1.10010, 1.09810)
	assert.Equal(t, info.VolumeMax, vol)

	// Degenerate inputs.
	assert.Equal(t, 0.0, SizeVolume(info, 10_000, 0.01, 1.1, 1.1))
	assert.Equal(t, 0.0, SizeVolume(info, 0, 0.01, 1.1, 1.09))
}
