package ledger

import (
	"sync"
	"time"
)

// Deals is the keyed, time-ordered deal store. Readers get copies; only the
// matching engine calls Put.
type Deals struct {
	mu   sync.RWMutex
	recs map[Ticket]*Deal
	seq  []Ticket
}

func NewDeals() *Deals {
	return &Deals{recs: make(map[Ticket]*Deal)}
}

// Put inserts or replaces a record. Matching-engine use only.
func (m *Deals) Put(d Deal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[d.Ticket]; !ok {
		m.seq = append(m.seq, d.Ticket)
	}
	cp := d
	m.recs[d.Ticket] = &cp
}

func (m *Deals) Get(t Ticket) (Deal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.recs[t]
	if !ok {
		return Deal{}, false
	}
	return *d, true
}

// GetByPosition returns all deals referencing the position, in ascending
// ticket order.
func (m *Deals) GetByPosition(pos Ticket) []Deal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Deal
	for _, t := range m.seq {
		if d := m.recs[t]; d.Position == pos {
			out = append(out, *d)
		}
	}
	return out
}

// GetByOrder returns the deal generated by the order, if any.
func (m *Deals) GetByOrder(order Ticket) (Deal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.seq {
		if d := m.recs[t]; d.Order == order {
			return *d, true
		}
	}
	return Deal{}, false
}

// GetRange returns deals executed within [from, to] (inclusive bounds),
// ordered by ascending ticket.
func (m *Deals) GetRange(from, to time.Time) []Deal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Deal
	for _, t := range m.seq {
		if d := m.recs[t]; inRange(d.Time, from, to) {
			out = append(out, *d)
		}
	}
	return out
}

// HistoryGet returns the same result set as GetRange.
func (m *Deals) HistoryGet(from, to time.Time) []Deal {
	return m.GetRange(from, to)
}

// Total reports the number of deals in [from, to]. It always agrees with
// len(GetRange(from, to)).
func (m *Deals) Total(from, to time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.seq {
		if inRange(m.recs[t].Time, from, to) {
			n++
		}
	}
	return n
}

func (m *Deals) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seq)
}
