package common

import (
	"fmt"
	"time"

	"fenrir/internal/orderbook"
)

// Order is the exchange-facing order a caller constructs and keeps alive
// for as long as any part of it may be resting on a book. It embeds the
// matching core's own Order, which is the value actually threaded through
// orderbook.OrderBook — everything here is identity, routing and audit
// metadata the core itself has no opinion about.
type Order struct {
	orderbook.Order[float64, uint64]

	UUID          string    // Order tracked uuid
	AssetType     AssetType //
	Ticker        string    // Specific asset identifier
	TotalQuantity uint64    // Total volume requested, before any fills
	Timestamp     time.Time // Time of arrival of order
	ExchTimestamp time.Time // Time of arrival of order into the book
	Owner         string    // Who owns this order
}

func (order Order) String() string {
	return fmt.Sprintf(
		`UUID:          %v
AssetType:     %v
OrderType:     %v
Ticker:        %s
Side:          %v
LimitPrice:    %f
Quantity:      %d (Total: %d)
Timestamp:     %v
ExchTimestamp: %v
Owner:         %s`,
		order.UUID,
		order.AssetType,
		order.OrderType,
		order.Ticker,
		order.Side,
		order.Price,
		order.Quantity,
		order.TotalQuantity,
		order.Timestamp.Format(time.RFC3339), // Formatted for readability
		order.ExchTimestamp.Format(time.RFC3339),
		order.Owner,
	)
}
