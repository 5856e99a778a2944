package orderbook

import (
	"fmt"
	"sort"
	"sync"

	orderbookv1 "github.com/marketforge/matching-engine/internal/domain/orderbook/v1"
	snapshotv1 "github.com/marketforge/matching-engine/internal/domain/snapshot/v1"
)

// Book is a single-symbol limit order book with a continuous double-auction
// matching engine. It owns two price ladders, the order index and an
// append-only trade log, all driven by one logical tick counter.
//
// Every public call runs to completion under one mutex; the domain types
// underneath carry no locks of their own.
type Book struct {
	mu     sync.RWMutex
	symbol string

	bids *orderbookv1.Ladder
	asks *orderbookv1.Ladder

	// orders maps an id to its resting order. An id is present exactly
	// while the order has nonzero remaining quantity and sits in one
	// level's queue; market orders never outlive their submission call.
	orders map[uint64]*orderbookv1.Order

	trades []orderbookv1.Trade
	tick   uint64
}

// NewBook creates an empty book for the given symbol.
func NewBook(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   orderbookv1.NewLadder(orderbookv1.Buy),
		asks:   orderbookv1.NewLadder(orderbookv1.Sell),
		orders: make(map[uint64]*orderbookv1.Order),
		trades: make([]orderbookv1.Trade, 0, 1024),
	}
}

// nextTick advances the book's logical clock. Arrivals and executions draw
// from the same counter, so all observable events are totally ordered.
func (b *Book) nextTick() uint64 {
	t := b.tick
	b.tick++
	return t
}

func (b *Book) ladder(side orderbookv1.Side) *orderbookv1.Ladder {
	if side == orderbookv1.Buy {
		return b.bids
	}
	return b.asks
}

// SubmitLimit places a limit order. The order first matches against the
// opposite ladder from the best price inward; any residual rests at its
// limit price. Returned trades are in execution order. A rejection leaves
// the book untouched.
func (b *Book) SubmitLimit(id uint64, side orderbookv1.Side, price float64, quantity uint64) ([]orderbookv1.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitLimit(id, side, price, quantity)
}

func (b *Book) submitLimit(id uint64, side orderbookv1.Side, price float64, quantity uint64) ([]orderbookv1.Trade, error) {
	if side != orderbookv1.Buy && side != orderbookv1.Sell {
		return nil, orderbookv1.ErrUnknownSide
	}
	if _, exists := b.orders[id]; exists {
		return nil, fmt.Errorf("%w: %d", orderbookv1.ErrDuplicateOrderID, id)
	}
	if quantity == 0 {
		return nil, orderbookv1.ErrInvalidQuantity
	}
	if !orderbookv1.ValidLimitPrice(price) {
		return nil, fmt.Errorf("%w: %v", orderbookv1.ErrInvalidPrice, price)
	}

	order := orderbookv1.NewLimitOrder(id, side, price, quantity, b.nextTick())
	trades := b.match(order)

	// Matching consumed all crossing liquidity first, so a residual can
	// rest without violating the no-cross invariant.
	if order.Remaining > 0 {
		level := b.ladder(side).FindOrCreate(price)
		if err := level.Enqueue(order); err != nil {
			return trades, err
		}
		b.orders[id] = order
	}

	return trades, nil
}

// SubmitMarket places a market order. It matches against the opposite
// ladder without a price bound; any unfilled residual is discarded and the
// order never rests or stays indexed.
func (b *Book) SubmitMarket(id uint64, side orderbookv1.Side, quantity uint64) ([]orderbookv1.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if side != orderbookv1.Buy && side != orderbookv1.Sell {
		return nil, orderbookv1.ErrUnknownSide
	}
	if _, exists := b.orders[id]; exists {
		return nil, fmt.Errorf("%w: %d", orderbookv1.ErrDuplicateOrderID, id)
	}
	if quantity == 0 {
		return nil, orderbookv1.ErrInvalidQuantity
	}

	order := orderbookv1.NewMarketOrder(id, side, quantity, b.nextTick())
	return b.match(order), nil
}

// match scans the ladder opposite the aggressive order from its best price
// inward. Each execution takes the passive order's limit price, decrements
// both remainings and the level's cached volume, and appends to the trade
// log with a fresh execution tick. Filled passive orders are popped and
// unindexed; drained levels leave their ladder in the same pass.
func (b *Book) match(aggressive *orderbookv1.Order) []orderbookv1.Trade {
	opposite := b.ladder(aggressive.Side.Opposite())

	var trades []orderbookv1.Trade
	for aggressive.Remaining > 0 {
		level, ok := opposite.Best()
		if !ok {
			break
		}
		if aggressive.Type == orderbookv1.OrderTypeLimit && !crosses(aggressive, level.Price) {
			break
		}

		passive := level.Head()
		quantity := min(aggressive.Remaining, passive.Remaining)

		trade := orderbookv1.Trade{
			Price:    level.Price,
			Quantity: quantity,
			Tick:     b.nextTick(),
		}
		if aggressive.IsBuy() {
			trade.BuyOrderID, trade.SellOrderID = aggressive.ID, passive.ID
		} else {
			trade.BuyOrderID, trade.SellOrderID = passive.ID, aggressive.ID
		}
		b.trades = append(b.trades, trade)
		trades = append(trades, trade)

		aggressive.Remaining -= quantity
		passive.Remaining -= quantity
		level.TotalVolume -= quantity

		if passive.Remaining == 0 {
			delete(b.orders, passive.ID)
			level.PopHead()
			if level.IsEmpty() {
				opposite.Delete(level.Price)
			}
		}
	}

	return trades
}

// crosses reports whether a limit order still trades at the given opposite
// level price: a buy crosses while its limit >= the ask, a sell while its
// limit <= the bid.
func crosses(order *orderbookv1.Order, levelPrice float64) bool {
	if order.IsBuy() {
		return order.Price >= levelPrice
	}
	return order.Price <= levelPrice
}

// Cancel removes a resting order from its level and the index. The level
// leaves its ladder in the same call when it drains.
func (b *Book) Cancel(id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel(id)
}

func (b *Book) cancel(id uint64) error {
	order, exists := b.orders[id]
	if !exists {
		return fmt.Errorf("%w: %d", orderbookv1.ErrOrderNotFound, id)
	}

	ladder := b.ladder(order.Side)
	level, ok := ladder.Get(order.Price)
	if !ok {
		// The index said the order rests here; a missing level is a bug,
		// not a runtime condition.
		panic(fmt.Sprintf("orderbook: indexed order %d has no level at %v on %s ladder", id, order.Price, order.Side))
	}

	if err := level.Remove(id); err != nil {
		panic(fmt.Sprintf("orderbook: indexed order %d missing from its level queue: %v", id, err))
	}
	if level.IsEmpty() {
		ladder.Delete(level.Price)
	}
	delete(b.orders, id)

	return nil
}

// Modify changes a resting order's quantity. A decrease keeps the order's
// queue position; an increase forfeits it by cancelling and resubmitting
// through the full match path, so the returned trades may be non-empty.
// Modifying to zero cancels; modifying to the current quantity is an
// accepted no-op.
func (b *Book) Modify(id uint64, newQuantity uint64) ([]orderbookv1.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, exists := b.orders[id]
	if !exists {
		return nil, fmt.Errorf("%w: %d", orderbookv1.ErrOrderNotFound, id)
	}

	if newQuantity == 0 {
		return nil, b.cancel(id)
	}

	current := order.Remaining
	switch {
	case newQuantity == current:
		return nil, nil

	case newQuantity < current:
		level, ok := b.ladder(order.Side).Get(order.Price)
		if !ok {
			panic(fmt.Sprintf("orderbook: indexed order %d has no level at %v on %s ladder", id, order.Price, order.Side))
		}
		level.TotalVolume -= current - newQuantity
		order.Remaining = newQuantity
		return nil, nil

	default:
		side, price := order.Side, order.Price
		if err := b.cancel(id); err != nil {
			return nil, err
		}
		return b.submitLimit(id, side, price, newQuantity)
	}
}

// BestBid returns the highest resting buy price, if any.
func (b *Book) BestBid() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bestPrice(b.bids)
}

// BestAsk returns the lowest resting sell price, if any.
func (b *Book) BestAsk() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bestPrice(b.asks)
}

// Mid returns the midpoint of the best bid and ask; absent unless both
// sides have liquidity.
func (b *Book) Mid() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid, okBid := bestPrice(b.bids)
	ask, okAsk := bestPrice(b.asks)
	if !okBid || !okAsk {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// Spread returns best ask minus best bid; absent unless both sides have
// liquidity.
func (b *Book) Spread() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid, okBid := bestPrice(b.bids)
	ask, okAsk := bestPrice(b.asks)
	if !okBid || !okAsk {
		return 0, false
	}
	return ask - bid, true
}

func bestPrice(ladder *orderbookv1.Ladder) (float64, bool) {
	level, ok := ladder.Best()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// VolumeAt returns the aggregate resting volume at the exact price on the
// given side, or 0 when no such level exists.
func (b *Book) VolumeAt(side orderbookv1.Side, price float64) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	level, ok := b.ladder(side).Get(price)
	if !ok {
		return 0
	}
	return level.TotalVolume
}

// TotalVolume returns the aggregate resting volume across all levels of
// the given side.
func (b *Book) TotalVolume(side orderbookv1.Side) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ladder(side).TotalVolume()
}

// Depth returns up to n (price, volume) pairs on the given side in
// best-first order.
func (b *Book) Depth(side orderbookv1.Side, n int) []orderbookv1.DepthEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ladder(side).Depth(n)
}

// Symbol returns the instrument this book serves.
func (b *Book) Symbol() string {
	return b.symbol
}

// OrderCount returns the number of resting orders.
func (b *Book) OrderCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// TradeCount returns the number of executions recorded so far.
func (b *Book) TradeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.trades)
}

// Trades returns a copy of the trade log in execution order.
func (b *Book) Trades() []orderbookv1.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()

	trades := make([]orderbookv1.Trade, len(b.trades))
	copy(trades, b.trades)
	return trades
}

// CreateSnapshot captures the resting orders with their arrival ticks plus
// the book's logical clock, so a restore reproduces FIFO priority exactly.
func (b *Book) CreateSnapshot() *snapshotv1.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bookOrders := make([]snapshotv1.BookOrder, 0, len(b.orders))
	capture := func(level *orderbookv1.Level) bool {
		for _, order := range level.Orders {
			bookOrders = append(bookOrders, snapshotv1.BookOrder{
				OrderID:   order.ID,
				Side:      order.Side.String(),
				Price:     order.Price,
				Remaining: order.Remaining,
				Tick:      order.Tick,
			})
		}
		return true
	}
	b.bids.Ascend(capture)
	b.asks.Ascend(capture)

	return &snapshotv1.Snapshot{
		Symbol:     b.symbol,
		Tick:       b.tick,
		TradeCount: len(b.trades),
		Orders:     bookOrders,
	}
}

// Restore replaces the book's resting state with the snapshot's. Orders
// re-enter their levels in arrival-tick order, bypassing the match path.
// The trade log is not restored; executed history lives in the trade
// stream, not the snapshot.
func (b *Book) Restore(snapshot *snapshotv1.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = orderbookv1.NewLadder(orderbookv1.Buy)
	b.asks = orderbookv1.NewLadder(orderbookv1.Sell)
	b.orders = make(map[uint64]*orderbookv1.Order, len(snapshot.Orders))
	b.tick = snapshot.Tick

	restored := make([]snapshotv1.BookOrder, len(snapshot.Orders))
	copy(restored, snapshot.Orders)
	sort.Slice(restored, func(i, j int) bool {
		return restored[i].Tick < restored[j].Tick
	})

	for _, bookOrder := range restored {
		side, err := orderbookv1.SideFromString(bookOrder.Side)
		if err != nil {
			return fmt.Errorf("failed to restore order %d: %w", bookOrder.OrderID, err)
		}

		order := orderbookv1.NewLimitOrder(bookOrder.OrderID, side, bookOrder.Price, bookOrder.Remaining, bookOrder.Tick)
		level := b.ladder(side).FindOrCreate(bookOrder.Price)
		if err := level.Enqueue(order); err != nil {
			return fmt.Errorf("failed to restore order %d: %w", bookOrder.OrderID, err)
		}
		b.orders[order.ID] = order
	}

	return nil
}
