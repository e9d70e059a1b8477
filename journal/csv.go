package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	deals  *csv.Writer
	equity *csv.Writer
	df, ef *os.File
}

func NewCSV(dealsPath, equityPath string) (*CSVJournal, error) {
	df, err := os.Create(dealsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		df.Close()
		return nil, err
	}

	dw := csv.NewWriter(df)
	ew := csv.NewWriter(ef)

	if err := dw.Write([]string{"ticket", "run_id", "order", "position", "symbol", "side", "entry", "volume", "price", "profit", "time"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"run_id", "time", "balance", "equity", "margin", "free_margin"}); err != nil {
		return nil, err
	}

	dw.Flush()
	if err := dw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{dw, ew, df, ef}, nil
}

func (j *CSVJournal) RecordDeal(d DealRecord) error {
	err := j.deals.Write([]string{
		strconv.FormatInt(d.Ticket, 10),
		d.RunID,
		strconv.FormatInt(d.Order, 10),
		strconv.FormatInt(d.Position, 10),
		d.Symbol,
		d.Side,
		d.Entry,
		f(d.Volume),
		f(d.Price),
		f(d.Profit),
		d.Time.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.deals.Flush()
	return j.deals.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.RunID,
		e.Time.Format(time.RFC3339),
		f(e.Balance),
		f(e.Equity),
		f(e.Margin),
		f(e.FreeMargin),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.deals.Flush()
	if err := j.deals.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.df.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
