package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	app "github.com/marketforge/matching-engine/internal/app/engine"
	orderreader "github.com/marketforge/matching-engine/internal/usecase/order-reader"
	"github.com/marketforge/matching-engine/internal/usecase/orderbook"
	"github.com/marketforge/matching-engine/internal/usecase/snapshot"
	tradepublisher "github.com/marketforge/matching-engine/internal/usecase/trade-publisher"
	"github.com/marketforge/matching-engine/pkg/config"
	"github.com/marketforge/matching-engine/pkg/logger"
	"github.com/marketforge/matching-engine/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	// A .env file is optional; the environment wins either way.
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load()
	if err != nil {
		panic(err)
	}

	log, err = logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.LogLevel)))
	if err != nil {
		panic(err)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	rclient := redis.NewClient(log, &cfg.Redis)
	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "connect_redis",
		})
		return
	}

	book := orderbook.NewBook(cfg.Symbol)
	reader := orderreader.NewReader(cfg.OrderStream, log)
	snapshotStore := snapshot.NewStore(rclient, cfg.Symbol, log)
	publisher := tradepublisher.NewPublisher(cfg.TradeStream, log)

	engine := app.NewEngine(
		book,
		reader,
		snapshotStore,
		publisher,
		log,
		cfg,
		&app.Options{
			SnapshotInterval:    cfg.SnapshotInterval,
			SnapshotOffsetDelta: cfg.SnapshotOffsetDelta,
		},
	)

	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	log.Info("Matching engine started successfully", logger.Field{
		Key:   "symbol",
		Value: cfg.Symbol,
	})

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	cancel()
	engine.Stop()

	if err := publisher.Close(); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "close_trade_publisher",
		})
	}

	if err := rclient.Disconnect(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "disconnect_redis",
		})
	}

	log.Info("Matching engine shutdown complete")
}
