package orderbook

import "errors"

// ErrNonPositiveQuantity is a precondition violation: PriceLevel.add was
// called with a quantity that is not strictly positive. Per the core's
// error taxonomy this is fatal — callers must not construct orders with
// zero or negative quantity.
var ErrNonPositiveQuantity = errors.New("orderbook: quantity must be positive")
