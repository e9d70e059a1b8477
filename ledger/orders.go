package ledger

import (
	"sync"
	"time"
)

// Orders is the keyed, time-ordered order store. Readers get copies; only
// the matching engine calls Put.
type Orders struct {
	mu   sync.RWMutex
	recs map[Ticket]*Order
	seq  []Ticket // ascending ticket order
}

func NewOrders() *Orders {
	return &Orders{recs: make(map[Ticket]*Order)}
}

// Put inserts or replaces a record. Matching-engine use only.
func (m *Orders) Put(o Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[o.Ticket]; !ok {
		m.seq = append(m.seq, o.Ticket)
	}
	cp := o
	m.recs[o.Ticket] = &cp
}

func (m *Orders) Get(t Ticket) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.recs[t]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// GetByPosition returns all orders whose fills touched the position, in
// ascending ticket order.
func (m *Orders) GetByPosition(pos Ticket) []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, t := range m.seq {
		if o := m.recs[t]; o.Position == pos {
			out = append(out, *o)
		}
	}
	return out
}

// GetRange returns orders created within [from, to] (inclusive bounds,
// second granularity), ordered by ascending ticket. This is the ground
// truth ordering contract for reconciliation.
func (m *Orders) GetRange(from, to time.Time) []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, t := range m.seq {
		if o := m.recs[t]; inRange(o.Created, from, to) {
			out = append(out, *o)
		}
	}
	return out
}

// HistoryGet returns the same result set as GetRange.
func (m *Orders) HistoryGet(from, to time.Time) []Order {
	return m.GetRange(from, to)
}

// Total reports the number of orders in [from, to]. It always agrees with
// len(GetRange(from, to)).
func (m *Orders) Total(from, to time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.seq {
		if inRange(m.recs[t].Created, from, to) {
			n++
		}
	}
	return n
}

func (m *Orders) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seq)
}

// inRange implements the inclusive [from, to] window used by all history
// queries. Comparison is at Unix-second granularity to match the external
// date_from/date_to convention.
func inRange(t, from, to time.Time) bool {
	ts := t.Unix()
	return ts >= from.Unix() && ts <= to.Unix()
}
