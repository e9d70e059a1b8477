package ledger

// Store bundles the three managers with the shared ticket sequence.
type Store struct {
	seq       Sequence
	Orders    *Orders
	Positions *Positions
	Deals     *Deals
}

func NewStore() *Store {
	return &Store{
		Orders:    NewOrders(),
		Positions: NewPositions(),
		Deals:     NewDeals(),
	}
}

// NextTicket allocates the next ticket. Matching-engine use only.
func (s *Store) NextTicket() Ticket {
	return s.seq.Next()
}
