package sim

import (
	"github.com/rustyeddy/backsim/journal"
	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
)

// requiredMargin is the notional of vol lots at price divided by the
// account leverage. Quotes are assumed to be in the account currency;
// cross-currency conversion belongs to the market-data collaborator.
func requiredMargin(info market.SymbolInfo, vol, price, leverage float64) float64 {
	return vol * info.ContractSize * price / leverage
}

// marginAvailableLocked reports whether an opening fill of vol lots fits in
// the current free margin.
func (e *Engine) marginAvailableLocked(info market.SymbolInfo, vol, price float64) bool {
	return requiredMargin(info, vol, price, e.acct.Leverage) <= e.acct.FreeMargin
}

// revalueLocked recomputes unrealized profit per open position from the
// latest tick and refreshes the account aggregate.
func (e *Engine) revalueLocked(tick market.Tick) {
	var unrealized, margin float64

	for _, pos := range e.store.Positions.Open("") {
		if pos.Symbol != tick.Symbol {
			continue
		}
		info := e.symbols[pos.Symbol]

		mark := tick.Bid
		if pos.Side == ledger.Sell {
			mark = tick.Ask
		}
		pos.Profit = realized(info, pos.Side, pos.AvgPrice, mark, pos.Volume)
		e.store.Positions.Put(pos)

		unrealized += pos.Profit
		margin += requiredMargin(info, pos.Volume, tick.Mid(), e.acct.Leverage)
	}

	e.acct.Equity = e.acct.Balance + unrealized
	e.acct.Margin = margin
	e.acct.FreeMargin = e.acct.Equity - margin
}

func (e *Engine) snapshotEquityLocked(tick market.Tick) error {
	return e.jrnl.RecordEquity(journal.EquitySnapshot{
		RunID:      e.runID,
		Time:       tick.Time,
		Balance:    e.acct.Balance,
		Equity:     e.acct.Equity,
		Margin:     e.acct.Margin,
		FreeMargin: e.acct.FreeMargin,
	})
}
