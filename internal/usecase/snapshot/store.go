package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	snapshotv1 "github.com/marketforge/matching-engine/internal/domain/snapshot/v1"
	"github.com/marketforge/matching-engine/pkg/errors"
	"github.com/marketforge/matching-engine/pkg/logger"
	"github.com/marketforge/matching-engine/pkg/redis"
)

// Store persists book snapshots in Redis, keyed by symbol. Snapshots serve
// the host service only; the book itself keeps no durable state.
type Store struct {
	symbol      string
	logger      *logger.Logger
	redisclient redis.Client
}

// NewStore creates a snapshot store for the given symbol.
func NewStore(redisclient redis.Client, symbol string, logger *logger.Logger) *Store {
	return &Store{
		symbol:      symbol,
		redisclient: redisclient,
		logger:      logger,
	}
}

func (s *Store) key() string {
	return "book-snapshot:" + s.symbol
}

// Store serializes the snapshot and stores it in Redis.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "symbol",
			Value: s.symbol,
		})
		return errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key(), buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "symbol",
			Value: s.symbol,
		})
		return errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}

	s.logger.InfoContext(ctx, fmt.Sprintf("Snapshot stored for %s", s.symbol),
		logger.Field{Key: "symbol", Value: s.symbol},
		logger.Field{Key: "orderOffset", Value: snapshot.OrderOffset},
		logger.Field{Key: "restingOrders", Value: len(snapshot.Orders)},
	)
	return nil
}

// LoadStore loads the latest snapshot from Redis; a nil snapshot with a
// nil error means none was stored yet.
func (s *Store) LoadStore(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key())
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "symbol",
			Value: s.symbol,
		})
		return nil, errors.NewTracer(string(errors.SnapshotLoadError)).Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, fmt.Sprintf("No snapshot found for %s", s.symbol), logger.Field{
			Key:   "symbol",
			Value: s.symbol,
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "symbol",
			Value: s.symbol,
		})
		return nil, errors.NewTracer(string(errors.SnapshotLoadError)).Wrap(err)
	}

	return &snapshot, nil
}
