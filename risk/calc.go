package risk

import (
	"math"

	"github.com/rustyeddy/backsim/market"
)

// PlannedRisk is the loss in account currency if the stop is hit: the
// entry-to-stop distance over vol lots. Quotes are assumed to be in the
// account currency, matching the engine's margin model.
func PlannedRisk(info market.SymbolInfo, vol, entry, stop float64) float64 {
	return math.Abs(entry-stop) * vol * info.ContractSize
}

// RR is the reward/risk ratio of an entry with both levels set. Zero when
// the stop distance is zero.
func RR(entry, stop, target float64) float64 {
	denom := math.Abs(entry - stop)
	if denom == 0 {
		return 0
	}
	return math.Abs(target-entry) / denom
}

// SizeVolume returns the largest lot size whose loss at the stop stays
// within riskPct of equity, floored to the symbol's volume step and clamped
// to its limits. Zero means no valid size exists.
func SizeVolume(info market.SymbolInfo, equity, riskPct, entry, stop float64) float64 {
	dist := math.Abs(entry - stop)
	if dist == 0 || equity <= 0 || riskPct <= 0 {
		return 0
	}

	vol := equity * riskPct / (dist * info.ContractSize)
	if info.VolumeStep > 0 {
		// Slack before flooring so exact budgets (0.5/0.01 = 49.999...)
		// do not lose a whole step to float error.
		vol = math.Floor(vol/info.VolumeStep+1e-9) * info.VolumeStep
	}
	if vol > info.VolumeMax {
		vol = info.VolumeMax
	}
	if vol < info.VolumeMin {
		return 0
	}
	return vol
}
