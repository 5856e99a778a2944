package orderbookv1

import (
	"errors"
	"math"
)

var (
	ErrNilOrder         = errors.New("order cannot be nil")
	ErrInvalidPrice     = errors.New("price must be positive and finite")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrDuplicateOrderID = errors.New("order ID already exists")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUnknownSide      = errors.New("unknown order side")
)

// Side represents the side of an order.
type Side uint8

const (
	// Buy represents a bid order.
	Buy Side = iota
	// Sell represents an ask order.
	Sell
)

// Opposite returns the side an aggressive order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// SideFromString parses "buy" or "sell".
func SideFromString(s string) (Side, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, ErrUnknownSide
	}
}

// OrderType represents the type of order.
type OrderType string

const (
	// OrderTypeLimit represents a limit order.
	OrderTypeLimit OrderType = "limit"
	// OrderTypeMarket represents a market order.
	OrderTypeMarket OrderType = "market"
)

// marketOrderPrice marks market orders; it is distinguishable from any
// valid limit price and never leaves the package boundary.
const marketOrderPrice = math.MaxFloat64

// Order represents a single order in the order book. Identity fields are
// fixed at submission; only Remaining changes afterwards.
type Order struct {
	ID        uint64    `json:"id"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Price     float64   `json:"price"`
	Remaining uint64    `json:"remaining"`
	// Tick is the arrival tick assigned by the book; it defines time
	// priority within a price level.
	Tick uint64 `json:"tick"`
}

// NewLimitOrder creates a limit order with the given arrival tick.
func NewLimitOrder(id uint64, side Side, price float64, quantity, tick uint64) *Order {
	return &Order{
		ID:        id,
		Side:      side,
		Type:      OrderTypeLimit,
		Price:     price,
		Remaining: quantity,
		Tick:      tick,
	}
}

// NewMarketOrder creates a market order with the given arrival tick.
func NewMarketOrder(id uint64, side Side, quantity, tick uint64) *Order {
	return &Order{
		ID:        id,
		Side:      side,
		Type:      OrderTypeMarket,
		Price:     marketOrderPrice,
		Remaining: quantity,
		Tick:      tick,
	}
}

// IsBuy checks if the order is a bid (buy) order.
func (o *Order) IsBuy() bool {
	return o.Side == Buy
}

// IsFilled checks if the order is filled (remaining quantity is zero).
func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// ValidLimitPrice reports whether p can key a price level.
func ValidLimitPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 1) && !math.IsNaN(p)
}
