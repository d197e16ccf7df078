// Package orderbook implements a single-instrument limit order book with
// strict price-time priority matching. It is the core described in the
// matching engine specification: an Order is accepted, crossed against the
// opposite side under an injectable execution policy, and any remainder of
// a limit order rests on its own side.
//
// The book is generic over the numeric types used for price and quantity so
// that a caller can pick fixed-point decimals, plain integers, or floats
// without the matching algorithm changing shape.
package orderbook

// Number is the constraint satisfied by both the Price and Quantity type
// parameters. The engine only ever compares, adds, subtracts and takes the
// min of these values — it never needs anything richer.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Side identifies which side of the book an order belongs to. Buy is the
// bid; Sell is the ask.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OrderType selects how an order interacts with resting liquidity.
type OrderType int

const (
	// Market orders consume the opposite side until filled or the book
	// empties. They never rest.
	Market OrderType = iota
	// Limit orders cross at prices at least as good as their limit; any
	// remainder rests on the order's own side.
	Limit
	// IOC (immediate-or-cancel) orders cross up to their limit price;
	// any remainder is discarded rather than rested.
	IOC
	// FOC (fill-or-kill) orders cross only if their entire requested
	// quantity can be taken at acceptable prices; otherwise nothing
	// happens.
	FOC
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case IOC:
		return "ioc"
	case FOC:
		return "foc"
	default:
		return "unknown"
	}
}

// Order is an immutable descriptor carried by reference through matching.
// The caller owns the Order's storage and must keep it alive for at least
// as long as any resting entry referencing it — the book never copies or
// mutates it.
type Order[P Number, Q Number] struct {
	Side      Side
	OrderType OrderType
	Price     P
	Quantity  Q
}

// OrderQuantity binds a reference to an Order with a current quantity. It
// has dual purpose depending on where it appears:
//   - while resting on a PriceLevel, Quantity is the order's remaining
//     open quantity;
//   - while flowing through the fill stream, Quantity is the quantity
//     executed on that particular fill.
//
// OrderQuantity is a small, freely copyable value type.
type OrderQuantity[P Number, Q Number] struct {
	Order    *Order[P, Q]
	Quantity Q
}

// betterOrEqual reports whether price a is at least as aggressive as price
// b from the point of view of the given side: for a buy, higher is better;
// for a sell, lower is better.
func betterOrEqual[P Number](side Side, a, b P) bool {
	if side == Buy {
		return a >= b
	}
	return a <= b
}

// strictlyBetter reports whether price a is strictly more aggressive than
// price b for the given side.
func strictlyBetter[P Number](side Side, a, b P) bool {
	if side == Buy {
		return a > b
	}
	return a < b
}

func minQ[Q Number](a, b Q) Q {
	if a < b {
		return a
	}
	return b
}
