package tradepublisher

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"

	tradepublisherv1 "github.com/marketforge/matching-engine/internal/domain/trade-publisher/v1"
	"github.com/marketforge/matching-engine/pkg/config"
	"github.com/marketforge/matching-engine/pkg/errors"
	"github.com/marketforge/matching-engine/pkg/logger"
)

// Publisher publishes trade events to the trade topic.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      *logger.Logger
}

// NewPublisher creates a new Kafka publisher for trade events.
func NewPublisher(cfg config.KafkaConfig, logger *logger.Logger) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      logger,
	}
}

// PublishTrade publishes a trade event, assigning it a ulid event id.
func (p *Publisher) PublishTrade(ctx context.Context, event *tradepublisherv1.TradeEvent) error {
	if event.EventID == "" {
		event.EventID = ulid.Make().String()
	}

	msg := kafka.Message{
		Key:   []byte(event.Symbol),
		Value: tradepublisherv1.ToBytes(event),
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "tradeEvent", Value: event},
		)
		return errors.NewTracer(string(errors.TradePublishError)).Wrap(err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
