package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// LoadCSV reads a tick series from a CSV file with rows of the form
// bid,ask[,volume]. A header row is skipped if present. Rows are assumed to
// be one second apart starting at start; the loader does not resample.
func LoadCSV(path, symbol string, start time.Time) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load ticks: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var ticks []Tick
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load ticks: %w", err)
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("load ticks: line %d: want bid,ask[,volume], got %d fields", line, len(rec))
		}

		bid, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("load ticks: line %d: bad bid %q", line, rec[0])
		}
		ask, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("load ticks: line %d: bad ask %q", line, rec[1])
		}

		vol := 0.0
		if len(rec) > 2 && rec[2] != "" {
			vol, err = strconv.ParseFloat(rec[2], 64)
			if err != nil {
				return nil, fmt.Errorf("load ticks: line %d: bad volume %q", line, rec[2])
			}
		}

		ticks = append(ticks, Tick{Bid: bid, Ask: ask, Volume: vol})
	}

	return NewSeries(symbol, start, ticks)
}
