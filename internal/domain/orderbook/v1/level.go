package orderbookv1

import (
	"fmt"
)

// Level represents a price level: the FIFO queue of all resting orders at
// one exact price on one side, with a cached aggregate volume.
type Level struct {
	Price       float64  `json:"price"`
	Orders      []*Order `json:"orders"`
	TotalVolume uint64   `json:"totalVolume"`
}

// NewLevel creates a new empty Level at the specified price.
func NewLevel(price float64) *Level {
	return &Level{
		Price:  price,
		Orders: make([]*Order, 0, 4),
	}
}

// Enqueue appends an order to the tail of the queue and updates the total
// volume. Arrival order is queue order; no re-sorting happens later.
func (l *Level) Enqueue(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}
	if order.Remaining == 0 {
		return fmt.Errorf("%w: order %d", ErrInvalidQuantity, order.ID)
	}

	l.Orders = append(l.Orders, order)
	l.TotalVolume += order.Remaining

	return nil
}

// Head returns the order with the highest time priority, or nil when the
// level is empty.
func (l *Level) Head() *Order {
	if len(l.Orders) == 0 {
		return nil
	}
	return l.Orders[0]
}

// PopHead removes and returns the head of the queue.
func (l *Level) PopHead() *Order {
	if len(l.Orders) == 0 {
		return nil
	}
	head := l.Orders[0]
	l.Orders = l.Orders[1:]
	return head
}

// Remove removes the order with the given id from an arbitrary queue
// position and updates the total volume. The scan is linear; cancel cost
// is bounded by the level's depth.
func (l *Level) Remove(orderID uint64) error {
	for i, o := range l.Orders {
		if o.ID == orderID {
			l.TotalVolume -= o.Remaining
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: order %d at level %v", ErrOrderNotFound, orderID, l.Price)
}

// IsEmpty checks if the level has no orders.
func (l *Level) IsEmpty() bool {
	return len(l.Orders) == 0
}

// OrderCount returns the number of orders at this level.
func (l *Level) OrderCount() int {
	return len(l.Orders)
}

// Validate checks the level's internal consistency: the cached volume must
// equal the sum of the queued remaining quantities, and a non-empty level
// must have positive volume.
func (l *Level) Validate() error {
	if !ValidLimitPrice(l.Price) {
		return fmt.Errorf("%w: level price %v", ErrInvalidPrice, l.Price)
	}

	var sum uint64
	for _, order := range l.Orders {
		if order == nil {
			return fmt.Errorf("nil order found at level %v", l.Price)
		}
		if order.Remaining == 0 {
			return fmt.Errorf("order %d resting with zero remaining at level %v", order.ID, l.Price)
		}
		sum += order.Remaining
	}

	if sum != l.TotalVolume {
		return fmt.Errorf("volume mismatch at level %v: computed %d, cached %d", l.Price, sum, l.TotalVolume)
	}

	return nil
}
