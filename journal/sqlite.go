package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordDeal(d DealRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO deals
		(ticket, run_id, order_ticket, position_ticket, symbol, side, entry, volume, price, profit, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Ticket, d.RunID, d.Order, d.Position, d.Symbol, d.Side,
		d.Entry, d.Volume, d.Price, d.Profit, d.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, balance, equity, margin, free_margin)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.Balance, e.Equity, e.Margin, e.FreeMargin,
	)
	return err
}

// GetDeal looks up a single deal by ticket across all runs.
func (j *SQLiteJournal) GetDeal(ticket int64) (DealRecord, error) {
	row := j.db.QueryRow(`
		SELECT ticket, run_id, order_ticket, position_ticket, symbol, side, entry, volume, price, profit, time
		FROM deals WHERE ticket = ?`, ticket)

	var d DealRecord
	err := row.Scan(&d.Ticket, &d.RunID, &d.Order, &d.Position, &d.Symbol,
		&d.Side, &d.Entry, &d.Volume, &d.Price, &d.Profit, &d.Time)
	if err == sql.ErrNoRows {
		return DealRecord{}, fmt.Errorf("journal: deal %d not found", ticket)
	}
	return d, err
}

// ListDealsBetween returns deals executed within [from, to], ordered by
// ticket, mirroring the ledger's range-query contract.
func (j *SQLiteJournal) ListDealsBetween(from, to time.Time) ([]DealRecord, error) {
	rows, err := j.db.Query(`
		SELECT ticket, run_id, order_ticket, position_ticket, symbol, side, entry, volume, price, profit, time
		FROM deals WHERE time >= ? AND time <= ?
		ORDER BY ticket`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DealRecord
	for rows.Next() {
		var d DealRecord
		if err := rows.Scan(&d.Ticket, &d.RunID, &d.Order, &d.Position, &d.Symbol,
			&d.Side, &d.Entry, &d.Volume, &d.Price, &d.Profit, &d.Time); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListDealsByRun returns all deals of a run in ticket order.
func (j *SQLiteJournal) ListDealsByRun(runID string) ([]DealRecord, error) {
	rows, err := j.db.Query(`
		SELECT ticket, run_id, order_ticket, position_ticket, symbol, side, entry, volume, price, profit, time
		FROM deals WHERE run_id = ?
		ORDER BY ticket`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DealRecord
	for rows.Next() {
		var d DealRecord
		if err := rows.Scan(&d.Ticket, &d.RunID, &d.Order, &d.Position, &d.Symbol,
			&d.Side, &d.Entry, &d.Volume, &d.Price, &d.Profit, &d.Time); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
