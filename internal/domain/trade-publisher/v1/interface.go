package tradepublisherv1

import (
	"context"
	"encoding/json"
)

// TradeEvent is the payload published for every execution.
type TradeEvent struct {
	EventID     string  `json:"eventID"`
	Symbol      string  `json:"symbol"`
	BuyOrderID  uint64  `json:"buyOrderID"`
	SellOrderID uint64  `json:"sellOrderID"`
	Price       float64 `json:"price"`
	Quantity    uint64  `json:"quantity"`
	Tick        uint64  `json:"tick"`
}

// ToBytes serializes the event for the wire.
func ToBytes(event *TradeEvent) []byte {
	buf, _ := json.Marshal(event)
	return buf
}

// TradePublisher defines the interface for publishing trade events.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradepublisherv1_mock
type TradePublisher interface {
	PublishTrade(ctx context.Context, event *TradeEvent) error
}
