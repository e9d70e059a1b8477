// Package risk provides pre-trade checks layered in front of a broker. The
// Guard vets opening requests against a Policy and rejects violations with a
// trade retcode, so strategies handle a risk rejection exactly like any other
// broker rejection.
package risk

import "fmt"

// Policy is the set of pre-trade limits. A zero value disables the
// corresponding check; the zero Policy allows everything.
type Policy struct {
	// MaxVolume caps the lot size of a single opening request.
	MaxVolume float64

	// MaxOpenPositions caps concurrently open positions across all symbols.
	MaxOpenPositions int

	// MaxRiskPct caps the planned loss-at-stop as a fraction of equity
	// (0.01 = 1%). Requests without a stop loss are rejected when set.
	MaxRiskPct float64

	// MinRR is the minimum reward/risk ratio, checked only when the request
	// carries both a stop and a target.
	MinRR float64

	// MaxMarginPct caps margin in use (including the new position) as a
	// fraction of equity.
	MaxMarginPct float64
}

// Enabled reports whether any check is active.
func (p Policy) Enabled() bool {
	return p != Policy{}
}

func (p Policy) Validate() error {
	if p.MaxVolume < 0 || p.MaxRiskPct < 0 || p.MinRR < 0 || p.MaxMarginPct < 0 || p.MaxOpenPositions < 0 {
		return fmt.Errorf("risk: policy limits must not be negative")
	}
	return nil
}
