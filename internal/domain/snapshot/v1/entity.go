package snapshotv1

// BookOrder is one resting order captured in a snapshot. The arrival tick
// is preserved so that FIFO priority survives a restore.
type BookOrder struct {
	OrderID   uint64  `json:"orderID"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Remaining uint64  `json:"remaining"`
	Tick      uint64  `json:"tick"`
}

// Snapshot captures the host-visible state of a book plus the order stream
// position it corresponds to.
type Snapshot struct {
	Symbol string `json:"symbol"`

	// OrderOffset is the last order stream offset applied to the book.
	OrderOffset int64 `json:"orderOffset"`

	// Tick is the book's logical clock at capture time.
	Tick uint64 `json:"tick"`

	TradeCount int `json:"tradeCount"`

	Orders []BookOrder `json:"orders"`
}
