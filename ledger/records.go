// Package ledger holds the three bookkeeping stores of the simulated
// brokerage: orders, positions, and deals. The stores are keyed by ticket
// and time-ordered; only the matching engine writes to them.
package ledger

import (
	"sync/atomic"
	"time"
)

// Ticket identifies an order, position, or deal. Tickets are unique across
// all record kinds and strictly increasing in allocation order.
type Ticket int64

// Sequence allocates tickets. A single sequence is shared by all three
// stores so cross-references are unambiguous.
type Sequence struct {
	last atomic.Int64
}

func (s *Sequence) Next() Ticket {
	return Ticket(s.last.Add(1))
}

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

// Sign is +1 for buys and -1 for sells, used for signed volume sums.
func (s Side) Sign() float64 { return float64(s) }

func (s Side) Opposite() Side { return -s }

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

type OrderState int8

const (
	OrderPending OrderState = iota
	OrderFilled
	OrderRejected
	OrderCancelled
)

func (s OrderState) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderFilled:
		return "filled"
	case OrderRejected:
		return "rejected"
	case OrderCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Action distinguishes immediate market execution from resting orders.
type Action int8

const (
	ActionMarket Action = iota
	ActionLimit
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionMarket:
		return "market"
	case ActionLimit:
		return "limit"
	case ActionStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Order is created by the matching engine on order submission. Once filled
// it is immutable apart from its state transition.
type Order struct {
	Ticket   Ticket
	Symbol   string
	Side     Side
	Action   Action
	Volume   float64
	Price    float64 // requested price; 0 for market orders
	SL       float64
	TP       float64
	State    OrderState
	Position Ticket // position the fill was applied to, 0 while pending
	Created  time.Time
}

// ToMap enumerates the order's fields for serialization.
func (o Order) ToMap() map[string]any {
	return map[string]any{
		"ticket":   int64(o.Ticket),
		"symbol":   o.Symbol,
		"side":     o.Side.String(),
		"action":   o.Action.String(),
		"volume":   o.Volume,
		"price":    o.Price,
		"sl":       o.SL,
		"tp":       o.TP,
		"state":    o.State.String(),
		"position": int64(o.Position),
		"created":  o.Created.Unix(),
	}
}

// DealEntry classifies how a deal changed its position.
type DealEntry int8

const (
	EntryIn    DealEntry = iota // opened or increased
	EntryOut                    // reduced or closed
	EntryInOut                  // closed and reversed in one fill
)

func (e DealEntry) String() string {
	switch e {
	case EntryIn:
		return "in"
	case EntryOut:
		return "out"
	case EntryInOut:
		return "in-out"
	default:
		return "unknown"
	}
}

// Deal records a single fill. Exactly one deal exists per filled order, and
// every deal references exactly one order and one position.
type Deal struct {
	Ticket   Ticket
	Order    Ticket
	Position Ticket
	Symbol   string
	Side     Side
	Entry    DealEntry
	Volume   float64
	Price    float64
	Profit   float64 // realized profit, 0 for opening deals
	Time     time.Time
}

// ToMap enumerates the deal's fields for serialization.
func (d Deal) ToMap() map[string]any {
	return map[string]any{
		"ticket":   int64(d.Ticket),
		"order":    int64(d.Order),
		"position": int64(d.Position),
		"symbol":   d.Symbol,
		"side":     d.Side.String(),
		"entry":    d.Entry.String(),
		"volume":   d.Volume,
		"price":    d.Price,
		"profit":   d.Profit,
		"time":     d.Time.Unix(),
	}
}

// Position is the netted exposure on one symbol. Volume is unsigned; Side
// carries the direction. A position is open iff Volume != 0; closed
// positions stay in history.
type Position struct {
	Ticket   Ticket
	Symbol   string
	Side     Side
	Volume   float64
	AvgPrice float64 // volume-weighted average open price
	SL       float64
	TP       float64
	Profit   float64 // unrealized, recomputed each tick
	OpenTime time.Time
	Orders   []Ticket // orders whose fills touched this position
}

func (p Position) Open() bool { return p.Volume != 0 }

// NetVolume is the signed exposure: positive long, negative short.
func (p Position) NetVolume() float64 { return p.Side.Sign() * p.Volume }

// ToMap enumerates the position's fields for serialization.
func (p Position) ToMap() map[string]any {
	orders := make([]int64, len(p.Orders))
	for i, t := range p.Orders {
		orders[i] = int64(t)
	}
	return map[string]any{
		"ticket":    int64(p.Ticket),
		"symbol":    p.Symbol,
		"side":      p.Side.String(),
		"volume":    p.Volume,
		"avg_price": p.AvgPrice,
		"sl":        p.SL,
		"tp":        p.TP,
		"profit":    p.Profit,
		"open_time": p.OpenTime.Unix(),
		"orders":    orders,
	}
}
