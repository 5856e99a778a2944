package orderreaderv1

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Action identifies an order stream operation.
type Action string

const (
	// ActionSubmitLimit places a limit order.
	ActionSubmitLimit Action = "submit_limit"
	// ActionSubmitMarket places a market order.
	ActionSubmitMarket Action = "submit_market"
	// ActionCancel cancels a resting order.
	ActionCancel Action = "cancel"
	// ActionModify changes a resting order's quantity.
	ActionModify Action = "modify"
)

// Command is one decoded record of the order stream.
type Command struct {
	Action   Action  `json:"action"`
	OrderID  uint64  `json:"orderID"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Quantity uint64  `json:"quantity"`

	// Offset is the record's position in the stream, set by the reader.
	Offset int64 `json:"-"`
}

// OrderReader defines the interface for reading order commands from a source.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderreaderv1_mock
type OrderReader interface {
	// ReadMessage reads a message and returns it with the parsed command
	ReadMessage(ctx context.Context) (kafka.Message, *Command, error)
	// SetOffset sets the offset for the reader
	SetOffset(offset int64) error
	// Close closes the reader
	Close() error

	// CommitMessages commits the messages after processing
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}
