// Package journal persists deal records and equity snapshots produced by a
// simulation run. Persistence is a thin collaborator of the engine: the
// ledger stores remain the source of truth during a run.
package journal

import "time"

// DealRecord is the persisted form of a ledger deal.
type DealRecord struct {
	RunID    string
	Ticket   int64
	Order    int64
	Position int64
	Symbol   string
	Side     string
	Entry    string
	Volume   float64
	Price    float64
	Profit   float64
	Time     time.Time
}

// EquitySnapshot captures the account aggregate at a point in simulated time.
type EquitySnapshot struct {
	RunID      string
	Time       time.Time
	Balance    float64
	Equity     float64
	Margin     float64
	FreeMargin float64
}

type Journal interface {
	RecordDeal(DealRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Discard is a Journal that drops every record, for runs that only need the
// in-memory ledgers.
type Discard struct{}

func (Discard) RecordDeal(DealRecord) error       { return nil }
func (Discard) RecordEquity(EquitySnapshot) error { return nil }
func (Discard) Close() error                      { return nil }
