package ledger

import (
	"sync"
	"time"
)

// Positions is the keyed position store. Closed positions are retained in
// history; the open set is the subset with non-zero volume. Readers get
// copies; only the matching engine calls Put.
type Positions struct {
	mu   sync.RWMutex
	recs map[Ticket]*Position
	seq  []Ticket
}

func NewPositions() *Positions {
	return &Positions{recs: make(map[Ticket]*Position)}
}

// Put inserts or replaces a record. Matching-engine use only.
func (m *Positions) Put(p Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[p.Ticket]; !ok {
		m.seq = append(m.seq, p.Ticket)
	}
	cp := p
	cp.Orders = append([]Ticket(nil), p.Orders...)
	m.recs[p.Ticket] = &cp
}

func (m *Positions) Get(t Ticket) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.recs[t]
	if !ok {
		return Position{}, false
	}
	return copyPosition(p), true
}

// OpenBySymbol returns the open position on symbol, if one exists. Netting
// keeps at most one open position per symbol.
func (m *Positions) OpenBySymbol(symbol string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.seq {
		if p := m.recs[t]; p.Open() && p.Symbol == symbol {
			return copyPosition(p), true
		}
	}
	return Position{}, false
}

// Open returns all open positions in ascending ticket order. When symbol is
// non-empty the result is filtered to that symbol.
func (m *Positions) Open(symbol string) []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Position
	for _, t := range m.seq {
		p := m.recs[t]
		if !p.Open() {
			continue
		}
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		out = append(out, copyPosition(p))
	}
	return out
}

func (m *Positions) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.seq {
		if m.recs[t].Open() {
			n++
		}
	}
	return n
}

// GetRange returns positions opened within [from, to] (inclusive bounds),
// ordered by ascending ticket.
func (m *Positions) GetRange(from, to time.Time) []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Position
	for _, t := range m.seq {
		if p := m.recs[t]; inRange(p.OpenTime, from, to) {
			out = append(out, copyPosition(p))
		}
	}
	return out
}

// HistoryGet returns the same result set as GetRange.
func (m *Positions) HistoryGet(from, to time.Time) []Position {
	return m.GetRange(from, to)
}

// Total reports the number of positions in [from, to]. It always agrees
// with len(GetRange(from, to)).
func (m *Positions) Total(from, to time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.seq {
		if inRange(m.recs[t].OpenTime, from, to) {
			n++
		}
	}
	return n
}

func (m *Positions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seq)
}

func copyPosition(p *Position) Position {
	cp := *p
	cp.Orders = append([]Ticket(nil), p.Orders...)
	return cp
}
