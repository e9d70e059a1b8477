package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/ledger"
	"github.com/rustyeddy/backsim/market"
)

// Guard wraps a broker and vets opening order requests against a Policy.
// Reads and close/reduce requests pass straight through; a violating open is
// answered with a reject retcode and never reaches the inner broker.
type Guard struct {
	inner   broker.Broker
	policy  Policy
	symbols map[string]market.SymbolInfo
	log     *logrus.Entry
}

// NewGuard wraps inner. A nil symbols map falls back to the default symbol
// table.
func NewGuard(inner broker.Broker, policy Policy, symbols map[string]market.SymbolInfo, logger *logrus.Logger) (*Guard, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = market.Symbols
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Guard{
		inner:   inner,
		policy:  policy,
		symbols: symbols,
		log:     logger.WithField("component", "risk"),
	}, nil
}

func (g *Guard) Account(ctx context.Context) (broker.Account, error) {
	return g.inner.Account(ctx)
}

func (g *Guard) SymbolInfoTick(ctx context.Context, symbol string) (market.Tick, error) {
	return g.inner.SymbolInfoTick(ctx, symbol)
}

func (g *Guard) PositionsGet(ctx context.Context, symbol string) ([]ledger.Position, error) {
	return g.inner.PositionsGet(ctx, symbol)
}

func (g *Guard) HistoryOrdersGet(ctx context.Context, from, to time.Time) ([]ledger.Order, error) {
	return g.inner.HistoryOrdersGet(ctx, from, to)
}

func (g *Guard) HistoryDealsGet(ctx context.Context, from, to time.Time) ([]ledger.Deal, error) {
	return g.inner.HistoryDealsGet(ctx, from, to)
}

// OrderSend vets opening requests. Requests targeting an existing position
// reduce exposure and are never blocked.
func (g *Guard) OrderSend(ctx context.Context, req broker.TradeRequest) (broker.TradeResult, error) {
	if !g.policy.Enabled() || req.Position != 0 {
		return g.inner.OrderSend(ctx, req)
	}

	if reason, err := g.check(ctx, req); err != nil {
		return broker.TradeResult{}, err
	} else if reason != "" {
		g.log.WithFields(logrus.Fields{
			"symbol": req.Symbol,
			"volume": req.Volume,
		}).Warnf("order blocked: %s", reason)
		return broker.TradeResult{Retcode: broker.RetcodeReject, Comment: reason}, nil
	}

	return g.inner.OrderSend(ctx, req)
}

// check returns a non-empty reason when the request violates the policy.
func (g *Guard) check(ctx context.Context, req broker.TradeRequest) (string, error) {
	p := g.policy

	if p.MaxVolume > 0 && req.Volume > p.MaxVolume {
		return fmt.Sprintf("volume %g exceeds policy maximum %g", req.Volume, p.MaxVolume), nil
	}

	if p.MaxOpenPositions > 0 {
		open, err := g.inner.PositionsGet(ctx, "")
		if err != nil {
			return "", err
		}
		if len(open) >= p.MaxOpenPositions {
			return fmt.Sprintf("%d positions already open, policy maximum is %d", len(open), p.MaxOpenPositions), nil
		}
	}

	if p.MaxRiskPct == 0 && p.MinRR == 0 && p.MaxMarginPct == 0 {
		return "", nil
	}

	info, ok := g.symbols[req.Symbol]
	if !ok {
		// Let the broker produce its own invalid-symbol rejection.
		return "", nil
	}
	tick, err := g.inner.SymbolInfoTick(ctx, req.Symbol)
	if err != nil {
		return "", err
	}
	acct, err := g.inner.Account(ctx)
	if err != nil {
		return "", err
	}

	entry := req.Price
	if entry == 0 { // market order, assume fill at the touch
		entry = tick.Ask
		if req.Type.Side() == ledger.Sell {
			entry = tick.Bid
		}
	}

	if p.MaxRiskPct > 0 {
		if req.SL == 0 {
			return "policy requires a stop loss on every entry", nil
		}
		if acct.Equity > 0 {
			pct := PlannedRisk(info, req.Volume, entry, req.SL) / acct.Equity
			if pct > p.MaxRiskPct {
				return fmt.Sprintf("planned risk %.2f%% exceeds policy maximum %.2f%%", 100*pct, 100*p.MaxRiskPct), nil
			}
		}
	}

	if p.MinRR > 0 && req.SL != 0 && req.TP != 0 {
		if rr := RR(entry, req.SL, req.TP); rr < p.MinRR {
			return fmt.Sprintf("reward/risk %.2f below policy minimum %.2f", rr, p.MinRR), nil
		}
	}

	if p.MaxMarginPct > 0 && acct.Equity > 0 && acct.Leverage > 0 {
		needed := req.Volume * info.ContractSize * entry / acct.Leverage
		if (acct.Margin+needed)/acct.Equity > p.MaxMarginPct {
			return fmt.Sprintf("margin in use would exceed %.0f%% of equity", 100*p.MaxMarginPct), nil
		}
	}

	return "", nil
}
