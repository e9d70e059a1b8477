package broker

import (
	"fmt"

	"github.com/rustyeddy/backsim/ledger"
)

// TradeAction selects immediate execution or a resting order.
type TradeAction int8

const (
	TradeActionDeal TradeAction = iota
	TradeActionPending
)

// OrderType follows the terminal convention: market buy/sell plus the four
// resting kinds.
type OrderType int8

const (
	OrderTypeBuy OrderType = iota
	OrderTypeSell
	OrderTypeBuyLimit
	OrderTypeSellLimit
	OrderTypeBuyStop
	OrderTypeSellStop
)

func (t OrderType) Side() ledger.Side {
	switch t {
	case OrderTypeBuy, OrderTypeBuyLimit, OrderTypeBuyStop:
		return ledger.Buy
	default:
		return ledger.Sell
	}
}

func (t OrderType) Pending() bool {
	return t != OrderTypeBuy && t != OrderTypeSell
}

// Action maps the order type onto the ledger's action taxonomy.
func (t OrderType) Action() ledger.Action {
	switch t {
	case OrderTypeBuyLimit, OrderTypeSellLimit:
		return ledger.ActionLimit
	case OrderTypeBuyStop, OrderTypeSellStop:
		return ledger.ActionStop
	default:
		return ledger.ActionMarket
	}
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeBuy:
		return "buy"
	case OrderTypeSell:
		return "sell"
	case OrderTypeBuyLimit:
		return "buy-limit"
	case OrderTypeSellLimit:
		return "sell-limit"
	case OrderTypeBuyStop:
		return "buy-stop"
	case OrderTypeSellStop:
		return "sell-stop"
	default:
		return "unknown"
	}
}

// FillPolicy selects how a request may be filled. The simulation fills whole
// requests against the quote, so fill-or-kill and immediate-or-cancel behave
// identically; Return is only meaningful for resting orders.
type FillPolicy int8

const (
	FillFOK FillPolicy = iota
	FillIOC
	FillReturn
)

func (f FillPolicy) String() string {
	switch f {
	case FillFOK:
		return "fok"
	case FillIOC:
		return "ioc"
	case FillReturn:
		return "return"
	default:
		return "unknown"
	}
}

// TradeRequest is the order submission envelope consumed by OrderSend.
// Validation happens inside the engine and is reported through the result
// retcode, never as a Go error.
type TradeRequest struct {
	Action   TradeAction
	Symbol   string
	Volume   float64
	Type     OrderType
	Price    float64       // required for pending orders
	SL       float64       // 0 means none
	TP       float64       // 0 means none
	Position ledger.Ticket // set to close (fully or partially) an open position
	Filling  FillPolicy
	Comment  string
}

// ToMap enumerates the request's fields for serialization and logging.
func (r TradeRequest) ToMap() map[string]any {
	return map[string]any{
		"action":   int8(r.Action),
		"symbol":   r.Symbol,
		"volume":   r.Volume,
		"type":     r.Type.String(),
		"price":    r.Price,
		"sl":       r.SL,
		"tp":       r.TP,
		"position": int64(r.Position),
		"filling":  r.Filling.String(),
		"comment":  r.Comment,
	}
}

// TradeResult reports the outcome of OrderSend.
type TradeResult struct {
	Retcode int
	Order   ledger.Ticket
	Deal    ledger.Ticket
	Volume  float64
	Price   float64
	Comment string
}

// OK reports whether the request was accepted (retcode "done").
func (r TradeResult) OK() bool { return r.Retcode == RetcodeDone }

func (r TradeResult) String() string {
	return fmt.Sprintf("retcode=%d order=%d deal=%d volume=%g price=%g %s",
		r.Retcode, r.Order, r.Deal, r.Volume, r.Price, r.Comment)
}
