package orderbook

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/marketforge/matching-engine/internal/domain/orderbook/v1"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	return NewBook("AAPL")
}

// mustRest places a limit order and requires that it rested without trading.
func mustRest(t *testing.T, b *Book, id uint64, side orderbookv1.Side, price float64, quantity uint64) {
	t.Helper()
	trades, err := b.SubmitLimit(id, side, price, quantity)
	require.NoError(t, err)
	require.Empty(t, trades)
}

func TestNewBook(t *testing.T) {
	b := newTestBook(t)

	assert.Equal(t, "AAPL", b.Symbol())
	assert.Equal(t, 0, b.OrderCount())
	assert.Equal(t, 0, b.TradeCount())

	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
	_, ok = b.Mid()
	assert.False(t, ok)
	_, ok = b.Spread()
	assert.False(t, ok)
}

func TestBook_SubmitLimit_Rejections(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Buy, 100.0, 10)

	tests := []struct {
		name     string
		id       uint64
		side     orderbookv1.Side
		price    float64
		quantity uint64
		wantErr  error
	}{
		{"duplicate id", 1, orderbookv1.Buy, 99.0, 10, orderbookv1.ErrDuplicateOrderID},
		{"zero quantity", 2, orderbookv1.Buy, 99.0, 0, orderbookv1.ErrInvalidQuantity},
		{"zero price", 2, orderbookv1.Buy, 0, 10, orderbookv1.ErrInvalidPrice},
		{"negative price", 2, orderbookv1.Buy, -1.0, 10, orderbookv1.ErrInvalidPrice},
		{"nan price", 2, orderbookv1.Buy, math.NaN(), 10, orderbookv1.ErrInvalidPrice},
		{"infinite price", 2, orderbookv1.Buy, math.Inf(1), 10, orderbookv1.ErrInvalidPrice},
		{"unknown side", 2, orderbookv1.Side(7), 99.0, 10, orderbookv1.ErrUnknownSide},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trades, err := b.SubmitLimit(tc.id, tc.side, tc.price, tc.quantity)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, trades)
		})
	}

	// A rejection leaves the book untouched.
	assert.Equal(t, 1, b.OrderCount())
	assert.Equal(t, 0, b.TradeCount())
	assert.NoError(t, b.Validate())
}

func TestBook_SubmitMarket_Rejections(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Sell, 100.0, 10)

	_, err := b.SubmitMarket(1, orderbookv1.Buy, 10)
	assert.ErrorIs(t, err, orderbookv1.ErrDuplicateOrderID)

	_, err = b.SubmitMarket(2, orderbookv1.Buy, 0)
	assert.ErrorIs(t, err, orderbookv1.ErrInvalidQuantity)

	_, err = b.SubmitMarket(2, orderbookv1.Side(7), 10)
	assert.ErrorIs(t, err, orderbookv1.ErrUnknownSide)

	assert.Equal(t, 1, b.OrderCount())
	assert.NoError(t, b.Validate())
}

// A crossing buy executes at the resting sell's limit price, not its own.
func TestBook_PriceImprovement(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Sell, 100.0, 50)

	trades, err := b.SubmitLimit(2, orderbookv1.Buy, 101.0, 50)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, uint64(50), trades[0].Quantity)
	assert.Equal(t, uint64(2), trades[0].BuyOrderID)
	assert.Equal(t, uint64(1), trades[0].SellOrderID)

	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
	assert.Equal(t, 0, b.OrderCount())
	assert.Equal(t, 1, b.TradeCount())
	assert.NoError(t, b.Validate())
}

func TestBook_PartialFill_ResidualRests(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Sell, 100.0, 50)

	trades, err := b.SubmitLimit(2, orderbookv1.Buy, 100.0, 30)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, uint64(30), trades[0].Quantity)

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, 100.0, ask)
	assert.Equal(t, uint64(20), b.VolumeAt(orderbookv1.Sell, 100.0))

	_, ok = b.BestBid()
	assert.False(t, ok)
	assert.Equal(t, 1, b.OrderCount())
	assert.NoError(t, b.Validate())
}

func TestBook_TimePriorityFIFO(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Buy, 100.0, 10)
	mustRest(t, b, 2, orderbookv1.Buy, 100.0, 20)
	mustRest(t, b, 3, orderbookv1.Buy, 100.0, 30)

	trades, err := b.SubmitMarket(4, orderbookv1.Sell, 25)

	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, uint64(1), trades[0].BuyOrderID)
	assert.Equal(t, uint64(4), trades[0].SellOrderID)
	assert.Equal(t, uint64(10), trades[0].Quantity)
	assert.Equal(t, 100.0, trades[0].Price)

	assert.Equal(t, uint64(2), trades[1].BuyOrderID)
	assert.Equal(t, uint64(15), trades[1].Quantity)
	assert.Equal(t, 100.0, trades[1].Price)

	assert.Equal(t, uint64(35), b.VolumeAt(orderbookv1.Buy, 100.0))
	assert.Equal(t, 2, b.TradeCount())
	assert.Equal(t, 2, b.OrderCount())
	assert.NoError(t, b.Validate())
}

func TestBook_MultiLevelSweep(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Sell, 100.0, 10)
	mustRest(t, b, 2, orderbookv1.Sell, 101.0, 20)
	mustRest(t, b, 3, orderbookv1.Sell, 102.0, 30)

	trades, err := b.SubmitLimit(4, orderbookv1.Buy, 101.5, 35)

	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, uint64(10), trades[0].Quantity)
	assert.Equal(t, 101.0, trades[1].Price)
	assert.Equal(t, uint64(20), trades[1].Quantity)

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, 101.5, bid)
	assert.Equal(t, uint64(5), b.VolumeAt(orderbookv1.Buy, 101.5))

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, 102.0, ask)
	assert.NoError(t, b.Validate())
}

// A market order's unfilled residual is discarded; it never rests.
func TestBook_MarketResidualDiscarded(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Sell, 100.0, 10)

	trades, err := b.SubmitMarket(2, orderbookv1.Buy, 25)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(10), trades[0].Quantity)

	assert.Equal(t, 0, b.OrderCount())
	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
	assert.NoError(t, b.Validate())
}

func TestBook_MarketOnEmptyBook(t *testing.T) {
	b := newTestBook(t)

	trades, err := b.SubmitMarket(1, orderbookv1.Buy, 10)

	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, 0, b.OrderCount())
	assert.Equal(t, 0, b.TradeCount())
}

func TestBook_Cancel(t *testing.T) {
	t.Run("submit then cancel restores the book", func(t *testing.T) {
		b := newTestBook(t)
		mustRest(t, b, 1, orderbookv1.Buy, 99.0, 10)

		before := b.Depth(orderbookv1.Buy, 10)

		mustRest(t, b, 2, orderbookv1.Buy, 99.5, 20)
		require.NoError(t, b.Cancel(2))

		assert.Equal(t, before, b.Depth(orderbookv1.Buy, 10))
		assert.Equal(t, 1, b.OrderCount())
		assert.Equal(t, uint64(10), b.TotalVolume(orderbookv1.Buy))
		assert.NoError(t, b.Validate())
	})

	t.Run("unknown id", func(t *testing.T) {
		b := newTestBook(t)
		assert.ErrorIs(t, b.Cancel(42), orderbookv1.ErrOrderNotFound)
	})

	t.Run("cancelled id is reusable", func(t *testing.T) {
		b := newTestBook(t)
		mustRest(t, b, 1, orderbookv1.Buy, 99.0, 10)
		require.NoError(t, b.Cancel(1))

		mustRest(t, b, 1, orderbookv1.Buy, 98.0, 5)
		assert.Equal(t, 1, b.OrderCount())
	})

	t.Run("drained level leaves the ladder", func(t *testing.T) {
		b := newTestBook(t)
		mustRest(t, b, 1, orderbookv1.Buy, 99.0, 10)
		mustRest(t, b, 2, orderbookv1.Buy, 98.0, 10)

		require.NoError(t, b.Cancel(1))

		bid, ok := b.BestBid()
		require.True(t, ok)
		assert.Equal(t, 98.0, bid)
		assert.Len(t, b.Depth(orderbookv1.Buy, 10), 1)
	})
}

func TestBook_Modify(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		b := newTestBook(t)
		_, err := b.Modify(42, 10)
		assert.ErrorIs(t, err, orderbookv1.ErrOrderNotFound)
	})

	t.Run("to zero cancels", func(t *testing.T) {
		b := newTestBook(t)
		mustRest(t, b, 1, orderbookv1.Buy, 100.0, 10)

		trades, err := b.Modify(1, 0)

		require.NoError(t, err)
		assert.Empty(t, trades)
		assert.Equal(t, 0, b.OrderCount())
		assert.ErrorIs(t, b.Cancel(1), orderbookv1.ErrOrderNotFound)
	})

	t.Run("to current quantity is a no-op", func(t *testing.T) {
		b := newTestBook(t)
		mustRest(t, b, 1, orderbookv1.Buy, 100.0, 10)

		trades, err := b.Modify(1, 10)

		require.NoError(t, err)
		assert.Empty(t, trades)
		assert.Equal(t, uint64(10), b.VolumeAt(orderbookv1.Buy, 100.0))
		assert.NoError(t, b.Validate())
	})

	t.Run("decrease keeps FIFO position", func(t *testing.T) {
		b := newTestBook(t)
		mustRest(t, b, 1, orderbookv1.Buy, 100.0, 50)
		mustRest(t, b, 2, orderbookv1.Buy, 100.0, 50)

		trades, err := b.Modify(1, 20)
		require.NoError(t, err)
		assert.Empty(t, trades)
		assert.Equal(t, uint64(70), b.VolumeAt(orderbookv1.Buy, 100.0))
		require.NoError(t, b.Validate())

		// The shrunken order still fills first.
		fills, err := b.SubmitMarket(3, orderbookv1.Sell, 30)
		require.NoError(t, err)
		require.Len(t, fills, 2)
		assert.Equal(t, uint64(1), fills[0].BuyOrderID)
		assert.Equal(t, uint64(20), fills[0].Quantity)
		assert.Equal(t, uint64(2), fills[1].BuyOrderID)
		assert.Equal(t, uint64(10), fills[1].Quantity)
	})

	t.Run("increase forfeits FIFO position", func(t *testing.T) {
		b := newTestBook(t)
		mustRest(t, b, 1, orderbookv1.Buy, 100.0, 50)
		mustRest(t, b, 2, orderbookv1.Buy, 100.0, 50)
		mustRest(t, b, 3, orderbookv1.Buy, 100.0, 50)

		trades, err := b.Modify(1, 100)
		require.NoError(t, err)
		assert.Empty(t, trades)
		assert.Equal(t, uint64(200), b.VolumeAt(orderbookv1.Buy, 100.0))
		require.NoError(t, b.Validate())

		fills, err := b.SubmitLimit(4, orderbookv1.Sell, 100.0, 50)
		require.NoError(t, err)
		require.Len(t, fills, 1)
		assert.Equal(t, uint64(2), fills[0].BuyOrderID)
		assert.Equal(t, uint64(150), b.VolumeAt(orderbookv1.Buy, 100.0))
	})

	t.Run("increase on a crossed price executes immediately", func(t *testing.T) {
		b := newTestBook(t)
		mustRest(t, b, 1, orderbookv1.Buy, 100.0, 10)
		mustRest(t, b, 2, orderbookv1.Sell, 101.0, 10)

		// Increasing resubmits through the match path; the price still
		// does not cross, so no trade results.
		trades, err := b.Modify(1, 20)
		require.NoError(t, err)
		assert.Empty(t, trades)
		assert.Equal(t, uint64(20), b.VolumeAt(orderbookv1.Buy, 100.0))
		assert.NoError(t, b.Validate())
	})
}

func TestBook_Queries(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Buy, 99.0, 10)
	mustRest(t, b, 2, orderbookv1.Buy, 98.0, 20)
	mustRest(t, b, 3, orderbookv1.Sell, 101.0, 30)

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, 99.0, bid)

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, 101.0, ask)

	mid, ok := b.Mid()
	require.True(t, ok)
	assert.Equal(t, 100.0, mid)

	spread, ok := b.Spread()
	require.True(t, ok)
	assert.Equal(t, 2.0, spread)

	assert.Equal(t, uint64(30), b.TotalVolume(orderbookv1.Buy))
	assert.Equal(t, uint64(30), b.TotalVolume(orderbookv1.Sell))
	assert.Equal(t, uint64(0), b.VolumeAt(orderbookv1.Buy, 97.0))

	depth := b.Depth(orderbookv1.Buy, 1)
	require.Len(t, depth, 1)
	assert.Equal(t, orderbookv1.DepthEntry{Price: 99.0, Volume: 10}, depth[0])
}

// Execution ticks across submissions are strictly increasing, and the trade
// log copy is stable.
func TestBook_TradeLog(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Sell, 100.0, 10)
	mustRest(t, b, 2, orderbookv1.Sell, 101.0, 10)

	_, err := b.SubmitLimit(3, orderbookv1.Buy, 101.0, 20)
	require.NoError(t, err)

	trades := b.Trades()
	require.Len(t, trades, 2)
	assert.Less(t, trades[0].Tick, trades[1].Tick)

	// Mutating the copy does not touch the log.
	trades[0].Quantity = 0
	assert.Equal(t, uint64(10), b.Trades()[0].Quantity)
}

func TestBook_SnapshotRestore(t *testing.T) {
	b := newTestBook(t)
	mustRest(t, b, 1, orderbookv1.Buy, 100.0, 10)
	mustRest(t, b, 2, orderbookv1.Buy, 100.0, 20)
	mustRest(t, b, 3, orderbookv1.Sell, 101.0, 30)

	snapshot := b.CreateSnapshot()
	require.Len(t, snapshot.Orders, 3)
	assert.Equal(t, "AAPL", snapshot.Symbol)

	restored := NewBook("AAPL")
	require.NoError(t, restored.Restore(snapshot))

	assert.Equal(t, 3, restored.OrderCount())
	assert.Equal(t, b.Depth(orderbookv1.Buy, 10), restored.Depth(orderbookv1.Buy, 10))
	assert.Equal(t, b.Depth(orderbookv1.Sell, 10), restored.Depth(orderbookv1.Sell, 10))
	require.NoError(t, restored.Validate())

	// FIFO priority survives the round trip.
	fills, err := restored.SubmitMarket(4, orderbookv1.Sell, 15)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, uint64(1), fills[0].BuyOrderID)
	assert.Equal(t, uint64(2), fills[1].BuyOrderID)

	// New events continue the snapshot's clock, keeping ticks unique.
	assert.Greater(t, restored.Trades()[0].Tick, snapshot.Tick)
}

func TestBook_Restore_Errors(t *testing.T) {
	b := newTestBook(t)
	assert.Error(t, b.Restore(nil))
}

// Drives a mixed workload and validates the book after every step.
func TestBook_InvariantsUnderMixedWorkload(t *testing.T) {
	b := newTestBook(t)

	steps := []func() error{
		func() error { _, err := b.SubmitLimit(1, orderbookv1.Buy, 99.0, 100); return err },
		func() error { _, err := b.SubmitLimit(2, orderbookv1.Sell, 101.0, 80); return err },
		func() error { _, err := b.SubmitLimit(3, orderbookv1.Buy, 100.5, 40); return err },
		func() error { _, err := b.SubmitLimit(4, orderbookv1.Sell, 100.5, 60); return err },
		func() error { _, err := b.Modify(1, 50); return err },
		func() error { _, err := b.SubmitMarket(5, orderbookv1.Buy, 30); return err },
		func() error { return b.Cancel(1) },
		func() error { _, err := b.SubmitLimit(6, orderbookv1.Buy, 100.0, 25); return err },
		func() error { _, err := b.Modify(6, 75); return err },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		require.NoError(t, b.Validate(), "step %d", i)

		bid, okBid := b.BestBid()
		ask, okAsk := b.BestAsk()
		if okBid && okAsk {
			assert.Less(t, bid, ask, "step %d", i)
		}
	}
}
