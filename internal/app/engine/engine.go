package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	orderreaderv1 "github.com/marketforge/matching-engine/internal/domain/order-reader/v1"
	orderbookv1 "github.com/marketforge/matching-engine/internal/domain/orderbook/v1"
	snapshotv1 "github.com/marketforge/matching-engine/internal/domain/snapshot/v1"
	tradepublisherv1 "github.com/marketforge/matching-engine/internal/domain/trade-publisher/v1"
	"github.com/marketforge/matching-engine/internal/usecase/orderbook"
	"github.com/marketforge/matching-engine/pkg/config"
	"github.com/marketforge/matching-engine/pkg/errors"
	"github.com/marketforge/matching-engine/pkg/logger"
)

// Engine drives one book from the order stream: it restores the latest
// snapshot, replays commands in stream order, publishes resulting trades
// and periodically snapshots the book. The book itself is synchronous; the
// engine is the single writer.
type Engine struct {
	book      *orderbook.Book
	reader    orderreaderv1.OrderReader
	snapshots snapshotv1.Store
	publisher tradepublisherv1.TradePublisher
	logger    *logger.Logger
	cfg       *config.Config
	opts      *Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// orderOffset is the last order stream offset applied to the book.
	orderOffset atomic.Int64
	// snapshotOffset is the offset captured by the last stored snapshot;
	// only the snapshot loop touches it.
	snapshotOffset int64
}

// NewEngine wires an engine around the given collaborators.
func NewEngine(
	book *orderbook.Book,
	reader orderreaderv1.OrderReader,
	snapshots snapshotv1.Store,
	publisher tradepublisherv1.TradePublisher,
	log *logger.Logger,
	cfg *config.Config,
	opts *Options,
) *Engine {
	if opts == nil {
		opts = DefaultEngineOptions()
	}
	e := &Engine{
		book:      book,
		reader:    reader,
		snapshots: snapshots,
		publisher: publisher,
		logger:    log,
		cfg:       cfg,
		opts:      opts,
	}
	e.orderOffset.Store(-1)
	e.snapshotOffset = -1
	return e
}

// Start restores the book from the latest snapshot and launches the
// consume and snapshot loops.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.restore(e.ctx); err != nil {
		return err
	}

	e.wg.Add(2)
	go e.run()
	go e.snapshotLoop()

	e.logger.Info("engine started",
		logger.Field{Key: "symbol", Value: e.cfg.Symbol},
		logger.Field{Key: "resumeOffset", Value: e.orderOffset.Load()},
	)
	return nil
}

// Stop shuts the loops down and waits for them to drain.
func (e *Engine) Stop() {
	e.cancel()
	if err := e.reader.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "operation", Value: "reader close"})
	}
	e.wg.Wait()
}

func (e *Engine) restore(ctx context.Context) error {
	snapshot, err := e.snapshots.LoadStore(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	if err := e.book.Restore(snapshot); err != nil {
		return err
	}
	if err := e.reader.SetOffset(snapshot.OrderOffset + 1); err != nil {
		return err
	}
	e.orderOffset.Store(snapshot.OrderOffset)
	e.snapshotOffset = snapshot.OrderOffset

	e.logger.Info("book restored from snapshot",
		logger.Field{Key: "symbol", Value: snapshot.Symbol},
		logger.Field{Key: "orderOffset", Value: snapshot.OrderOffset},
		logger.Field{Key: "restingOrders", Value: len(snapshot.Orders)},
	)
	return nil
}

func (e *Engine) run() {
	defer e.wg.Done()

	for {
		msg, cmd, err := e.reader.ReadMessage(e.ctx)
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			continue
		}

		if err := e.processCommand(e.ctx, cmd); err != nil {
			// Rejections are expected traffic, not failures.
			e.logger.Warn("command rejected",
				logger.Field{Key: "action", Value: cmd.Action},
				logger.Field{Key: "orderID", Value: cmd.OrderID},
				logger.Field{Key: "reason", Value: err.Error()},
			)
		}

		e.orderOffset.Store(msg.Offset)
		if err := e.reader.CommitMessages(e.ctx, msg); err != nil {
			e.logger.Error(err, logger.Field{Key: "operation", Value: "commit"})
		}
	}
}

// processCommand applies one order stream command to the book and publishes
// any resulting trades.
func (e *Engine) processCommand(ctx context.Context, cmd *orderreaderv1.Command) error {
	var (
		trades []orderbookv1.Trade
		err    error
	)

	switch cmd.Action {
	case orderreaderv1.ActionSubmitLimit:
		var side orderbookv1.Side
		if side, err = orderbookv1.SideFromString(cmd.Side); err == nil {
			trades, err = e.book.SubmitLimit(cmd.OrderID, side, cmd.Price, cmd.Quantity)
		}

	case orderreaderv1.ActionSubmitMarket:
		var side orderbookv1.Side
		if side, err = orderbookv1.SideFromString(cmd.Side); err == nil {
			trades, err = e.book.SubmitMarket(cmd.OrderID, side, cmd.Quantity)
		}

	case orderreaderv1.ActionCancel:
		err = e.book.Cancel(cmd.OrderID)

	case orderreaderv1.ActionModify:
		trades, err = e.book.Modify(cmd.OrderID, cmd.Quantity)

	default:
		err = errors.NewErrorDetails(
			"unrecognized order stream action",
			string(errors.UnknownCommandError),
			string(cmd.Action),
		)
	}

	if err != nil {
		return err
	}

	e.publishTrades(ctx, trades)
	return nil
}

func (e *Engine) publishTrades(ctx context.Context, trades []orderbookv1.Trade) {
	for _, trade := range trades {
		event := &tradepublisherv1.TradeEvent{
			Symbol:      e.book.Symbol(),
			BuyOrderID:  trade.BuyOrderID,
			SellOrderID: trade.SellOrderID,
			Price:       trade.Price,
			Quantity:    trade.Quantity,
			Tick:        trade.Tick,
		}
		if err := e.publisher.PublishTrade(ctx, event); err != nil {
			e.logger.Error(err,
				logger.Field{Key: "operation", Value: "publish trade"},
				logger.Field{Key: "tick", Value: trade.Tick},
			)
		}
	}
}

func (e *Engine) snapshotLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.opts.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.maybeSnapshot()
		}
	}
}

// maybeSnapshot stores a snapshot when enough of the stream has been
// applied since the last one.
func (e *Engine) maybeSnapshot() {
	offset := e.orderOffset.Load()
	if offset-e.snapshotOffset < e.opts.SnapshotOffsetDelta {
		return
	}

	snapshot := e.book.CreateSnapshot()
	snapshot.OrderOffset = offset

	ctx, cancel := context.WithTimeout(e.ctx, 10*time.Second)
	defer cancel()
	if err := e.snapshots.Store(ctx, snapshot); err != nil {
		e.logger.Error(err, logger.Field{Key: "operation", Value: "store snapshot"})
		return
	}
	e.snapshotOffset = offset
}
