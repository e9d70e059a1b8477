// Package sim implements the backtest matching engine: it replays a
// historical tick series through the simulated clock, fills order requests
// with brokerage-compatible bookkeeping (orders, positions, deals), and
// maintains the account aggregate.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/clock"
	"github.com/rustyeddy/backsim/journal"
	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
)

// Engine is the simulated broker. It is the single writer of the clock,
// the ledger store, and the account; readers take point-in-time snapshots
// through the ledger managers.
//
// All foreseeable order-submission failures are reported through the result
// retcode. Engine methods return Go errors only for range failures and
// infrastructure faults (journal I/O).
type Engine struct {
	mu      sync.Mutex
	clk     *clock.Clock
	series  *market.Series
	symbols map[string]market.SymbolInfo
	store   *ledger.Store
	acct    broker.Account
	pending []ledger.Ticket // resting pending orders, submission order
	runID   string
	jrnl    journal.Journal
	log     *logrus.Entry
}

// Options carries the engine's collaborators. Symbols and Journal are
// optional; Logger defaults to the standard logrus logger.
type Options struct {
	Account broker.Account
	Series  *market.Series
	Symbols map[string]market.SymbolInfo
	Journal journal.Journal
	RunID   string
	Logger  *logrus.Logger
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Series == nil {
		return nil, fmt.Errorf("sim: a tick series is required")
	}
	clk, err := clock.New(opts.Series.Start(), opts.Series.Len())
	if err != nil {
		return nil, err
	}

	symbols := opts.Symbols
	if symbols == nil {
		symbols = make(map[string]market.SymbolInfo, len(market.Symbols))
		for k, v := range market.Symbols {
			symbols[k] = v
		}
	}

	jrnl := opts.Journal
	if jrnl == nil {
		jrnl = journal.Discard{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	acct := opts.Account
	if acct.Leverage <= 0 {
		acct.Leverage = 100
	}
	acct.Equity = acct.Balance
	acct.FreeMargin = acct.Balance

	return &Engine{
		clk:     clk,
		series:  opts.Series,
		symbols: symbols,
		store:   ledger.NewStore(),
		acct:    acct,
		runID:   opts.RunID,
		jrnl:    jrnl,
		log: logger.WithFields(logrus.Fields{
			"component": "sim",
			"run":       opts.RunID,
		}),
	}, nil
}

// Ledger exposes the record stores for readers. Callers must never mutate
// records directly.
func (e *Engine) Ledger() *ledger.Store { return e.store }

func (e *Engine) Cursor() clock.Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clk.Cursor()
}

func (e *Engine) Span() clock.Span { return e.clk.Span() }

// CurrentTick returns the tick at the cursor.
func (e *Engine) CurrentTick() market.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.series.At(e.clk.Cursor().Index)
}

// Next advances the clock one step and processes the new tick: resting
// pending orders are matched, breached sl/tp levels close positions, and
// open positions are revalued. Within a tick, everything is resolved before
// the clock can advance again. Returns clock.ErrRangeExhausted at the end
// of the span.
func (e *Engine) Next() (market.Tick, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.clk.Next()
	if err != nil {
		return market.Tick{}, err
	}
	return e.processTickLocked(cur)
}

// FastForward advances the clock by steps (atomically; see clock.FastForward)
// and processes the landing tick. Intermediate ticks are skipped, so resting
// stops are only evaluated against the landing quote.
func (e *Engine) FastForward(steps int) (market.Tick, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.clk.FastForward(steps)
	if err != nil {
		return market.Tick{}, err
	}
	return e.processTickLocked(cur)
}

// GoTo rewinds or advances the cursor to the closest grid time at or after
// t and processes the landing tick. Times outside the span are rejected
// with clock.ErrOutOfRange.
func (e *Engine) GoTo(t time.Time) (market.Tick, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.clk.GoTo(t)
	if err != nil {
		return market.Tick{}, err
	}
	return e.processTickLocked(cur)
}

func (e *Engine) processTickLocked(cur clock.Cursor) (market.Tick, error) {
	tick := e.series.At(cur.Index)

	if err := e.matchPendingLocked(tick); err != nil {
		return tick, err
	}
	if err := e.evaluateStopsLocked(tick); err != nil {
		return tick, err
	}
	e.revalueLocked(tick)
	return tick, nil
}

// Account implements broker.Broker.
func (e *Engine) Account(_ context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct, nil
}

// SymbolInfoTick implements broker.Broker. The simulation carries one
// instrument series; requests for other symbols fail.
func (e *Engine) SymbolInfoTick(_ context.Context, symbol string) (market.Tick, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if symbol != e.series.Symbol() {
		return market.Tick{}, fmt.Errorf("sim: no tick data for %q", symbol)
	}
	return e.series.At(e.clk.Cursor().Index), nil
}

// SymbolInfo returns the trading terms for a symbol.
func (e *Engine) SymbolInfo(symbol string) (market.SymbolInfo, bool) {
	info, ok := e.symbols[symbol]
	return info, ok
}

// PositionsGet implements broker.Broker. Readers take e.mu so a fill that
// touches orders, positions, and deals is observed whole or not at all.
func (e *Engine) PositionsGet(_ context.Context, symbol string) ([]ledger.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Positions.Open(symbol), nil
}

// HistoryOrdersGet implements broker.Broker.
func (e *Engine) HistoryOrdersGet(_ context.Context, from, to time.Time) ([]ledger.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Orders.HistoryGet(from, to), nil
}

// HistoryDealsGet implements broker.Broker.
func (e *Engine) HistoryDealsGet(_ context.Context, from, to time.Time) ([]ledger.Deal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Deals.HistoryGet(from, to), nil
}

// OrderSend implements broker.Broker. Validation failures are reported via
// the result retcode and never as a Go error; a request is either rejected
// whole or applied whole.
func (e *Engine) OrderSend(_ context.Context, req broker.TradeRequest) (broker.TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	info, ok := e.symbols[req.Symbol]
	if !ok {
		return e.rejectLocked(req, broker.RetcodeInvalidRequest, fmt.Sprintf("unknown symbol %q", req.Symbol)), nil
	}
	if req.Position != 0 {
		return e.closeRequestLocked(req, info)
	}
	if !info.VolumeOK(req.Volume) {
		return e.rejectLocked(req, broker.RetcodeInvalidVolume,
			fmt.Sprintf("volume %g outside [%g, %g] step %g", req.Volume, info.VolumeMin, info.VolumeMax, info.VolumeStep)), nil
	}

	switch req.Action {
	case broker.TradeActionDeal:
		if req.Type.Pending() {
			return e.rejectLocked(req, broker.RetcodeInvalidRequest, "deal action requires a market order type"), nil
		}
		if req.Filling != broker.FillFOK && req.Filling != broker.FillIOC {
			return e.rejectLocked(req, broker.RetcodeInvalidFill,
				fmt.Sprintf("market orders fill whole or not at all, got %s", req.Filling)), nil
		}
		return e.marketOrderLocked(req)
	case broker.TradeActionPending:
		if !req.Type.Pending() {
			return e.rejectLocked(req, broker.RetcodeInvalidRequest, "pending action requires a limit or stop order type"), nil
		}
		if req.Filling < broker.FillFOK || req.Filling > broker.FillReturn {
			return e.rejectLocked(req, broker.RetcodeInvalidFill,
				fmt.Sprintf("unknown fill policy %d", req.Filling)), nil
		}
		return e.placePendingLocked(req)
	default:
		return e.rejectLocked(req, broker.RetcodeInvalidRequest, fmt.Sprintf("unknown action %d", req.Action)), nil
	}
}

// ClosePosition closes volume lots of the position (0 = all) at the current
// market price.
func (e *Engine) ClosePosition(ctx context.Context, ticket ledger.Ticket, volume float64, comment string) (broker.TradeResult, error) {
	pos, ok := e.store.Positions.Get(ticket)
	if !ok {
		return broker.TradeResult{Retcode: broker.RetcodeInvalidRequest, Comment: "position not found"}, nil
	}
	orderType := broker.OrderTypeSell
	if pos.Side == ledger.Sell {
		orderType = broker.OrderTypeBuy
	}
	return e.OrderSend(ctx, broker.TradeRequest{
		Action:   broker.TradeActionDeal,
		Symbol:   pos.Symbol,
		Volume:   volume,
		Type:     orderType,
		Position: ticket,
		Comment:  comment,
	})
}

// CloseAll closes every open position at current prices, e.g. at the end of
// a replay.
func (e *Engine) CloseAll(ctx context.Context, comment string) error {
	for _, pos := range e.store.Positions.Open("") {
		res, err := e.ClosePosition(ctx, pos.Ticket, 0, comment)
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("sim: close position %d: %s", pos.Ticket, broker.RetcodeText(res.Retcode))
		}
	}
	return nil
}

func (e *Engine) rejectLocked(req broker.TradeRequest, retcode int, comment string) broker.TradeResult {
	o := ledger.Order{
		Ticket:  e.store.NextTicket(),
		Symbol:  req.Symbol,
		Side:    req.Type.Side(),
		Action:  req.Type.Action(),
		Volume:  req.Volume,
		Price:   req.Price,
		SL:      req.SL,
		TP:      req.TP,
		State:   ledger.OrderRejected,
		Created: e.nowLocked(),
	}
	e.store.Orders.Put(o)

	e.log.WithFields(logrus.Fields{
		"order":   o.Ticket,
		"retcode": retcode,
	}).Warnf("order rejected: %s", comment)

	return broker.TradeResult{Retcode: retcode, Order: o.Ticket, Comment: comment}
}

// nowLocked is the current simulated time.
func (e *Engine) nowLocked() time.Time {
	return e.clk.Cursor().Time
}
