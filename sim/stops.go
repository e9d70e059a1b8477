package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
)

// matchPendingLocked fills resting orders whose trigger the tick crossed.
// Fills happen at the order's requested price. Pending matches are resolved
// before stop evaluation so a fresh fill sees its own sl/tp checked against
// the same tick.
func (e *Engine) matchPendingLocked(tick market.Tick) error {
	if len(e.pending) == 0 {
		return nil
	}

	remaining := e.pending[:0]
	for _, ticket := range e.pending {
		o, ok := e.store.Orders.Get(ticket)
		if !ok || o.State != ledger.OrderPending {
			continue
		}
		if !pendingTriggered(o, tick) {
			remaining = append(remaining, ticket)
			continue
		}

		res, err := e.fillLocked(o, o.Price, tick)
		if err != nil {
			return err
		}
		if !res.OK() {
			// Margin no longer covers the fill; the order is dropped, not
			// retried on later ticks.
			e.log.WithFields(logrus.Fields{
				"order":   ticket,
				"retcode": res.Retcode,
			}).Warn("pending order rejected at trigger")
		}
	}
	e.pending = remaining
	return nil
}

func pendingTriggered(o ledger.Order, tick market.Tick) bool {
	switch {
	case o.Action == ledger.ActionLimit && o.Side == ledger.Buy:
		return tick.Ask <= o.Price
	case o.Action == ledger.ActionLimit && o.Side == ledger.Sell:
		return tick.Bid >= o.Price
	case o.Action == ledger.ActionStop && o.Side == ledger.Buy:
		return tick.Ask >= o.Price
	case o.Action == ledger.ActionStop && o.Side == ledger.Sell:
		return tick.Bid <= o.Price
	default:
		return false
	}
}

// evaluateStopsLocked closes open positions whose sl or tp the tick
// breached, exactly as if the close had been requested manually, at the
// breached level. Stop-loss wins when both levels are breached by the same
// tick.
func (e *Engine) evaluateStopsLocked(tick market.Tick) error {
	for _, pos := range e.store.Positions.Open(tick.Symbol) {
		mark := tick.Bid
		if pos.Side == ledger.Sell {
			mark = tick.Ask
		}

		var price float64
		var comment string
		switch {
		case hitStopLoss(pos, mark):
			price, comment = pos.SL, "stop loss"
		case hitTakeProfit(pos, mark):
			price, comment = pos.TP, "take profit"
		default:
			continue
		}

		o := ledger.Order{
			Ticket:   e.store.NextTicket(),
			Symbol:   pos.Symbol,
			Side:     pos.Side.Opposite(),
			Action:   ledger.ActionMarket,
			Volume:   pos.Volume,
			Price:    price,
			State:    ledger.OrderPending,
			Position: pos.Ticket,
			Created:  tick.Time,
		}
		res, err := e.fillLocked(o, price, tick)
		if err != nil {
			return err
		}

		e.log.WithFields(logrus.Fields{
			"position": pos.Ticket,
			"order":    res.Order,
			"deal":     res.Deal,
			"price":    price,
		}).Debugf("position auto-closed: %s", comment)
	}
	return nil
}

func hitStopLoss(p ledger.Position, mark float64) bool {
	if p.SL == 0 {
		return false
	}
	if p.Side == ledger.Buy {
		return mark <= p.SL
	}
	return mark >= p.SL
}

func hitTakeProfit(p ledger.Position, mark float64) bool {
	if p.TP == 0 {
		return false
	}
	if p.Side == ledger.Buy {
		return mark >= p.TP
	}
	return mark <= p.TP
}
