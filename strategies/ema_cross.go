package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/indicators"
	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
)

// EMACross trades a single symbol on fast/slow EMA crossovers of the mid
// price:
//   - enters only on a cross
//   - reverses on the opposite cross (close then open)
//   - attaches sl/tp so the engine auto-closes and journals breaches
type EMACross struct {
	EMACrossConfig

	fast *indicators.EMA
	slow *indicators.EMA

	lastDiff     float64
	haveLastDiff bool

	position ledger.Ticket
	side     ledger.Side
}

type EMACrossConfig struct {
	Symbol     string
	Volume     float64
	FastPeriod int // e.g. 20
	SlowPeriod int // e.g. 50

	// Stop/target distances in points (symbol Point units).
	StopPoints   float64
	TargetPoints float64
}

func NewEMACross(cfg EMACrossConfig) *EMACross {
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = 10
	}
	if cfg.SlowPeriod <= cfg.FastPeriod {
		cfg.SlowPeriod = cfg.FastPeriod * 3
	}
	return &EMACross{
		EMACrossConfig: cfg,
		fast:           indicators.NewEMA(cfg.FastPeriod),
		slow:           indicators.NewEMA(cfg.SlowPeriod),
	}
}

func (s *EMACross) OnTick(ctx context.Context, b broker.Broker, tick market.Tick) error {
	if tick.Symbol != s.Symbol {
		return nil
	}

	s.fast.Update(tick.Mid())
	s.slow.Update(tick.Mid())
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value() - s.slow.Value()
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil
	}

	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	switch {
	case bullCross:
		return s.onSignal(ctx, b, tick, ledger.Buy)
	case bearCross:
		return s.onSignal(ctx, b, tick, ledger.Sell)
	default:
		return nil
	}
}

func (s *EMACross) onSignal(ctx context.Context, b broker.Broker, tick market.Tick, side ledger.Side) error {
	// The engine may have auto-closed our position via sl/tp; re-check
	// before acting on stale state.
	s.syncOpenState(ctx, b)

	if s.position != 0 {
		if s.side == side {
			return nil // already positioned with the cross
		}
		res, err := b.OrderSend(ctx, broker.TradeRequest{
			Action:   broker.TradeActionDeal,
			Symbol:   s.Symbol,
			Type:     orderType(side),
			Position: s.position,
			Comment:  "ema-cross exit",
		})
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("ema-cross: exit rejected: %s", broker.RetcodeText(res.Retcode))
		}
		s.position = 0
	}

	return s.open(ctx, b, tick, side)
}

func (s *EMACross) open(ctx context.Context, b broker.Broker, tick market.Tick, side ledger.Side) error {
	info, ok := market.Symbols[s.Symbol]
	if !ok {
		return fmt.Errorf("ema-cross: unknown symbol %q", s.Symbol)
	}

	entry := tick.Ask
	if side == ledger.Sell {
		entry = tick.Bid
	}

	var sl, tp float64
	if s.StopPoints > 0 {
		sl = entry - side.Sign()*s.StopPoints*info.Point
	}
	if s.TargetPoints > 0 {
		tp = entry + side.Sign()*s.TargetPoints*info.Point
	}

	res, err := b.OrderSend(ctx, broker.TradeRequest{
		Action:  broker.TradeActionDeal,
		Symbol:  s.Symbol,
		Volume:  s.Volume,
		Type:    orderType(side),
		SL:      sl,
		TP:      tp,
		Comment: "ema-cross entry",
	})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("ema-cross: entry rejected: %s", broker.RetcodeText(res.Retcode))
	}

	deals, err := b.HistoryDealsGet(ctx, tick.Time, tick.Time)
	if err != nil {
		return err
	}
	for _, d := range deals {
		if d.Order == res.Order {
			s.position = d.Position
			s.side = side
			break
		}
	}
	return nil
}

// syncOpenState clears the strategy's position state when the engine has
// already closed it (stop loss / take profit).
func (s *EMACross) syncOpenState(ctx context.Context, b broker.Broker) {
	if s.position == 0 {
		return
	}
	open, err := b.PositionsGet(ctx, s.Symbol)
	if err != nil {
		return
	}
	for _, p := range open {
		if p.Ticket == s.position {
			return
		}
	}
	s.position = 0
}

func orderType(side ledger.Side) broker.OrderType {
	if side == ledger.Buy {
		return broker.OrderTypeBuy
	}
	return broker.OrderTypeSell
}
