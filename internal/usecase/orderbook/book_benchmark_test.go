package orderbook

import (
	"testing"

	orderbookv1 "github.com/marketforge/matching-engine/internal/domain/orderbook/v1"
)

func BenchmarkBook_SubmitLimit_Resting(b *testing.B) {
	book := NewBook("BTC-USD")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := orderbookv1.Buy
		price := 50_000.0 - float64(i%100)
		if i%2 == 1 {
			side = orderbookv1.Sell
			price = 51_000.0 + float64(i%100)
		}
		_, _ = book.SubmitLimit(uint64(i+1), side, price, 10)
	}
}

func BenchmarkBook_SubmitLimit_Crossing(b *testing.B) {
	book := NewBook("BTC-USD")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := uint64(2*i + 1)
		_, _ = book.SubmitLimit(id, orderbookv1.Sell, 50_000.0, 10)
		_, _ = book.SubmitLimit(id+1, orderbookv1.Buy, 50_000.0, 10)
	}
}

func BenchmarkBook_CancelAtDepth(b *testing.B) {
	book := NewBook("BTC-USD")
	const depth = 1_000
	for i := 0; i < depth; i++ {
		_, _ = book.SubmitLimit(uint64(i+1), orderbookv1.Buy, 50_000.0-float64(i%50), 10)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := uint64(i%depth + 1)
		_ = book.Cancel(id)
		_, _ = book.SubmitLimit(id, orderbookv1.Buy, 50_000.0-float64(i%50), 10)
	}
}

func BenchmarkBook_Depth(b *testing.B) {
	book := NewBook("BTC-USD")
	for i := 0; i < 500; i++ {
		_, _ = book.SubmitLimit(uint64(i+1), orderbookv1.Sell, 50_000.0+float64(i), 10)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = book.Depth(orderbookv1.Sell, 10)
	}
}
