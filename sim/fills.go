package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/journal"
	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
)

// marketOrderLocked fills a market request immediately at the current tick:
// ask for buys, bid for sells.
func (e *Engine) marketOrderLocked(req broker.TradeRequest) (broker.TradeResult, error) {
	tick := e.series.At(e.clk.Cursor().Index)
	side := req.Type.Side()

	price := tick.Ask
	if side == ledger.Sell {
		price = tick.Bid
	}
	if !stopsValid(side, price, req.SL, req.TP) {
		return e.rejectLocked(req, broker.RetcodeInvalidStops,
			fmt.Sprintf("sl %g / tp %g invalid for %s at %g", req.SL, req.TP, side, price)), nil
	}

	o := ledger.Order{
		Ticket:  e.store.NextTicket(),
		Symbol:  req.Symbol,
		Side:    side,
		Action:  ledger.ActionMarket,
		Volume:  req.Volume,
		SL:      req.SL,
		TP:      req.TP,
		State:   ledger.OrderPending,
		Created: e.nowLocked(),
	}
	return e.fillLocked(o, price, tick)
}

// closeRequestLocked handles requests targeting an existing position. A
// zero volume closes the whole position; anything larger than the open
// volume is an invalid request (a reversal must be submitted as a plain
// opposite-side order).
func (e *Engine) closeRequestLocked(req broker.TradeRequest, info market.SymbolInfo) (broker.TradeResult, error) {
	pos, ok := e.store.Positions.Get(req.Position)
	if !ok || !pos.Open() {
		return e.rejectLocked(req, broker.RetcodeInvalidRequest,
			fmt.Sprintf("position %d not open", req.Position)), nil
	}
	if pos.Symbol != req.Symbol {
		return e.rejectLocked(req, broker.RetcodeInvalidRequest,
			fmt.Sprintf("position %d is on %s, not %s", pos.Ticket, pos.Symbol, req.Symbol)), nil
	}

	vol := req.Volume
	if vol == 0 {
		vol = pos.Volume
	}
	if vol > pos.Volume || (vol != pos.Volume && !info.VolumeOK(vol)) {
		return e.rejectLocked(req, broker.RetcodeInvalidVolume,
			fmt.Sprintf("close volume %g exceeds or misfits open volume %g", vol, pos.Volume)), nil
	}

	tick := e.series.At(e.clk.Cursor().Index)
	side := pos.Side.Opposite()
	price := tick.Ask
	if side == ledger.Sell {
		price = tick.Bid
	}

	o := ledger.Order{
		Ticket:   e.store.NextTicket(),
		Symbol:   req.Symbol,
		Side:     side,
		Action:   ledger.ActionMarket,
		Volume:   vol,
		State:    ledger.OrderPending,
		Position: pos.Ticket,
		Created:  e.nowLocked(),
	}
	return e.fillLocked(o, price, tick)
}

// placePendingLocked validates and rests a limit/stop order. Placement
// succeeds with retcode done; the fill happens on a later tick.
func (e *Engine) placePendingLocked(req broker.TradeRequest) (broker.TradeResult, error) {
	if req.Price <= 0 {
		return e.rejectLocked(req, broker.RetcodeInvalidPrice,
			fmt.Sprintf("pending order needs a positive price, got %g", req.Price)), nil
	}
	tick := e.series.At(e.clk.Cursor().Index)
	if !restable(req.Type, req.Price, tick) {
		return e.rejectLocked(req, broker.RetcodeInvalidPrice,
			fmt.Sprintf("%s at %g is already marketable against bid %g / ask %g",
				req.Type, req.Price, tick.Bid, tick.Ask)), nil
	}
	if !stopsValid(req.Type.Side(), req.Price, req.SL, req.TP) {
		return e.rejectLocked(req, broker.RetcodeInvalidStops,
			fmt.Sprintf("sl %g / tp %g invalid for %s at %g", req.SL, req.TP, req.Type, req.Price)), nil
	}

	o := ledger.Order{
		Ticket:  e.store.NextTicket(),
		Symbol:  req.Symbol,
		Side:    req.Type.Side(),
		Action:  req.Type.Action(),
		Volume:  req.Volume,
		Price:   req.Price,
		SL:      req.SL,
		TP:      req.TP,
		State:   ledger.OrderPending,
		Created: e.nowLocked(),
	}
	e.store.Orders.Put(o)
	e.pending = append(e.pending, o.Ticket)

	e.log.WithFields(logrus.Fields{
		"order":  o.Ticket,
		"symbol": o.Symbol,
		"type":   req.Type.String(),
		"price":  o.Price,
	}).Debug("pending order placed")

	return broker.TradeResult{
		Retcode: broker.RetcodeDone,
		Order:   o.Ticket,
		Volume:  o.Volume,
		Price:   o.Price,
	}, nil
}

// fillLocked applies a fill to the ledgers under the netting policy and
// records the resulting deal. The order is stored as filled (or rejected if
// margin is insufficient) before returning.
func (e *Engine) fillLocked(o ledger.Order, price float64, tick market.Tick) (broker.TradeResult, error) {
	info := e.symbols[o.Symbol]

	pos, havePos := e.store.Positions.OpenBySymbol(o.Symbol)

	deal := ledger.Deal{
		Order:  o.Ticket,
		Symbol: o.Symbol,
		Side:   o.Side,
		Volume: o.Volume,
		Price:  price,
		Time:   tick.Time,
	}

	switch {
	case !havePos:
		// Opening fill: new position.
		if !e.marginAvailableLocked(info, o.Volume, price) {
			o.State = ledger.OrderRejected
			e.store.Orders.Put(o)
			return broker.TradeResult{Retcode: broker.RetcodeNoMoney, Order: o.Ticket, Comment: "not enough free margin"}, nil
		}
		pos = ledger.Position{
			Ticket:   e.store.NextTicket(),
			Symbol:   o.Symbol,
			Side:     o.Side,
			Volume:   o.Volume,
			AvgPrice: price,
			SL:       o.SL,
			TP:       o.TP,
			OpenTime: tick.Time,
			Orders:   []ledger.Ticket{o.Ticket},
		}
		deal.Entry = ledger.EntryIn

	case pos.Side == o.Side:
		// Same side: increase volume, recompute the weighted average price.
		if !e.marginAvailableLocked(info, o.Volume, price) {
			o.State = ledger.OrderRejected
			e.store.Orders.Put(o)
			return broker.TradeResult{Retcode: broker.RetcodeNoMoney, Order: o.Ticket, Comment: "not enough free margin"}, nil
		}
		total := pos.Volume + o.Volume
		pos.AvgPrice = (pos.AvgPrice*pos.Volume + price*o.Volume) / total
		pos.Volume = total
		if o.SL != 0 {
			pos.SL = o.SL
		}
		if o.TP != 0 {
			pos.TP = o.TP
		}
		pos.Orders = append(pos.Orders, o.Ticket)
		deal.Entry = ledger.EntryIn

	case o.Volume <= pos.Volume:
		// Opposite side up to the open volume: reduce or close.
		deal.Entry = ledger.EntryOut
		deal.Profit = realized(info, pos.Side, pos.AvgPrice, price, o.Volume)
		pos.Volume -= o.Volume
		if pos.Volume == 0 {
			pos.SL, pos.TP = 0, 0
		}
		pos.Orders = append(pos.Orders, o.Ticket)

	default:
		// Opposite side beyond the open volume: close everything and
		// reverse the remainder in one fill. The position ticket is
		// retained; side and weighted average reset to the fill.
		remainder := o.Volume - pos.Volume
		if !e.marginAvailableLocked(info, remainder, price) {
			o.State = ledger.OrderRejected
			e.store.Orders.Put(o)
			return broker.TradeResult{Retcode: broker.RetcodeNoMoney, Order: o.Ticket, Comment: "not enough free margin for reversal"}, nil
		}
		deal.Entry = ledger.EntryInOut
		deal.Profit = realized(info, pos.Side, pos.AvgPrice, price, pos.Volume)
		pos.Side = o.Side
		pos.Volume = remainder
		pos.AvgPrice = price
		pos.SL = o.SL
		pos.TP = o.TP
		pos.Orders = append(pos.Orders, o.Ticket)
	}

	deal.Ticket = e.store.NextTicket()
	deal.Position = pos.Ticket

	o.State = ledger.OrderFilled
	o.Position = pos.Ticket
	e.store.Orders.Put(o)
	e.store.Positions.Put(pos)
	e.store.Deals.Put(deal)

	closing := deal.Entry != ledger.EntryIn
	if closing {
		e.acct.Balance += deal.Profit
	}
	e.revalueLocked(tick)

	if err := e.jrnl.RecordDeal(journal.DealRecord{
		RunID:    e.runID,
		Ticket:   int64(deal.Ticket),
		Order:    int64(deal.Order),
		Position: int64(deal.Position),
		Symbol:   deal.Symbol,
		Side:     deal.Side.String(),
		Entry:    deal.Entry.String(),
		Volume:   deal.Volume,
		Price:    deal.Price,
		Profit:   deal.Profit,
		Time:     deal.Time,
	}); err != nil {
		return broker.TradeResult{}, fmt.Errorf("sim: journal deal %d: %w", deal.Ticket, err)
	}
	if closing {
		if err := e.snapshotEquityLocked(tick); err != nil {
			return broker.TradeResult{}, err
		}
	}

	e.log.WithFields(logrus.Fields{
		"order":    o.Ticket,
		"deal":     deal.Ticket,
		"position": deal.Position,
		"symbol":   deal.Symbol,
		"side":     deal.Side.String(),
		"entry":    deal.Entry.String(),
		"volume":   deal.Volume,
		"price":    deal.Price,
		"profit":   deal.Profit,
	}).Debug("order filled")

	return broker.TradeResult{
		Retcode: broker.RetcodeDone,
		Order:   o.Ticket,
		Deal:    deal.Ticket,
		Volume:  deal.Volume,
		Price:   price,
	}, nil
}

// realized computes the profit of closing vol lots of a position opened at
// avg against price, in the account currency.
func realized(info market.SymbolInfo, side ledger.Side, avg, price, vol float64) float64 {
	return (price - avg) * side.Sign() * vol * info.ContractSize
}

// restable reports whether a pending price rests on the passive side of the
// current quote. A marketable price would fill at a stale level on the next
// tick, so it is rejected at submission.
func restable(t broker.OrderType, price float64, tick market.Tick) bool {
	switch t {
	case broker.OrderTypeBuyLimit:
		return price < tick.Ask
	case broker.OrderTypeSellLimit:
		return price > tick.Bid
	case broker.OrderTypeBuyStop:
		return price > tick.Ask
	case broker.OrderTypeSellStop:
		return price < tick.Bid
	default:
		return false
	}
}

// stopsValid checks sl/tp ordering relative to the side and reference price.
// Zero means "not set" and is always valid.
func stopsValid(side ledger.Side, price, sl, tp float64) bool {
	if side == ledger.Buy {
		return (sl == 0 || sl < price) && (tp == 0 || tp > price)
	}
	return (sl == 0 || sl > price) && (tp == 0 || tp < price)
}
