package orderbookv1

// Trade records a single execution. Every trade executes at the passive
// order's limit price; Tick is drawn from the same monotonic counter as
// order arrival ticks, so trades and arrivals share one total order.
type Trade struct {
	BuyOrderID  uint64  `json:"buyOrderID"`
	SellOrderID uint64  `json:"sellOrderID"`
	Price       float64 `json:"price"`
	Quantity    uint64  `json:"quantity"`
	Tick        uint64  `json:"tick"`
}

// DepthEntry is one aggregated (price, volume) rung of a market-depth view.
type DepthEntry struct {
	Price  float64 `json:"price"`
	Volume uint64  `json:"volume"`
}
