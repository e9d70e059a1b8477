package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/backsim/broker"
	"github.com/rustyeddy/backsim/market"
)

// OpenOnce opens a single market position on the first tick it sees and
// then goes quiet. Useful for exercising the fill path end to end.
type OpenOnce struct {
	Symbol string
	Volume float64
	Sell   bool

	opened bool
}

func (s *OpenOnce) OnTick(ctx context.Context, b broker.Broker, tick market.Tick) error {
	if s.opened || tick.Symbol != s.Symbol {
		return nil
	}

	orderType := broker.OrderTypeBuy
	if s.Sell {
		orderType = broker.OrderTypeSell
	}

	res, err := b.OrderSend(ctx, broker.TradeRequest{
		Action:  broker.TradeActionDeal,
		Symbol:  s.Symbol,
		Volume:  s.Volume,
		Type:    orderType,
		Comment: "open-once",
	})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("open-once: order rejected: %s", broker.RetcodeText(res.Retcode))
	}

	s.opened = true
	return nil
}
