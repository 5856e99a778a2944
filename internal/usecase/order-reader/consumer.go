package orderreader

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	orderreaderv1 "github.com/marketforge/matching-engine/internal/domain/order-reader/v1"
	"github.com/marketforge/matching-engine/pkg/config"
	"github.com/marketforge/matching-engine/pkg/logger"
)

// Reader consumes order commands from the order topic.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      *logger.Logger
}

// NewReader creates a new Kafka reader for the order topic. It returns an
// implementation of the OrderReader interface.
func NewReader(cfg config.KafkaConfig, log *logger.Logger) Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

func (r Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// SetOffset sets the offset for the Kafka reader.
func (r Reader) SetOffset(offset int64) error {
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return err
	}
	return nil
}

// ReadMessage reads a message from the order topic and parses it as a
// Command.
func (r Reader) ReadMessage(ctx context.Context) (kafka.Message, *orderreaderv1.Command, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return kafka.Message{}, nil, err
	}

	var cmd orderreaderv1.Command
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		r.logError(err, "UnmarshalCommand")
		return kafka.Message{}, nil, err
	}

	r.logger.Debug("ReadMessage",
		logger.Field{Key: "action", Value: cmd.Action},
		logger.Field{Key: "orderID", Value: cmd.OrderID},
		logger.Field{Key: "side", Value: cmd.Side},
		logger.Field{Key: "price", Value: cmd.Price},
		logger.Field{Key: "quantity", Value: cmd.Quantity},
	)

	cmd.Offset = msg.Offset

	return msg, &cmd, nil
}

// Close properly closes the Kafka reader.
func (r Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}

// CommitMessages commits the messages after processing.
func (r Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	// The reader runs without a consumer group; offsets are tracked by
	// the snapshot instead of Kafka commits.
	return nil
}
