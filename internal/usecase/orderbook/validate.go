package orderbook

import (
	"fmt"

	orderbookv1 "github.com/marketforge/matching-engine/internal/domain/orderbook/v1"
)

// Validate walks every book invariant and reports the first violation. A
// violation is a bug in the engine, never a caller error; production hosts
// may abort on it, tests assert it after every operation.
//
// Checked: no-cross between best bid and best ask, per-level volume sums,
// ladder/index agreement, order-index consistency in both directions, and
// strictly increasing execution ticks.
func (b *Book) Validate() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.bids.Validate(); err != nil {
		return err
	}
	if err := b.asks.Validate(); err != nil {
		return err
	}

	bid, okBid := bestPrice(b.bids)
	ask, okAsk := bestPrice(b.asks)
	if okBid && okAsk && bid >= ask {
		return fmt.Errorf("book crossed: best bid %v >= best ask %v", bid, ask)
	}

	// Every queued order must be indexed under its own id, and no order
	// may appear in more than one queue position.
	queued := make(map[uint64]*orderbookv1.Order)
	var err error
	collect := func(level *orderbookv1.Level) bool {
		for _, order := range level.Orders {
			if _, dup := queued[order.ID]; dup {
				err = fmt.Errorf("order %d queued more than once", order.ID)
				return false
			}
			if order.Price != level.Price {
				err = fmt.Errorf("order %d carries price %v but rests at level %v", order.ID, order.Price, level.Price)
				return false
			}
			indexed, ok := b.orders[order.ID]
			if !ok {
				err = fmt.Errorf("queued order %d missing from index", order.ID)
				return false
			}
			if indexed != order {
				err = fmt.Errorf("index entry for order %d points at a different order", order.ID)
				return false
			}
			queued[order.ID] = order
		}
		return true
	}
	b.bids.Ascend(collect)
	if err != nil {
		return err
	}
	b.asks.Ascend(collect)
	if err != nil {
		return err
	}

	if len(queued) != len(b.orders) {
		return fmt.Errorf("index holds %d orders but ladders hold %d", len(b.orders), len(queued))
	}

	for i := 1; i < len(b.trades); i++ {
		if b.trades[i].Tick <= b.trades[i-1].Tick {
			return fmt.Errorf("execution ticks not strictly increasing at trade %d", i)
		}
	}

	return nil
}
