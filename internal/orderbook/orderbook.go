package orderbook

import "iter"

// OrderBook is a single instrument's two-sided book: a bid BookSide and an
// ask BookSide, matched against each other under strict price-time
// priority. It holds no identity of its own beyond the two sides — a
// caller that needs multi-instrument routing, cancel-by-id, or trade
// reporting builds that on top (see the engine package).
type OrderBook[P Number, Q Number] struct {
	bid *BookSide[P, Q]
	ask *BookSide[P, Q]
}

// New constructs an empty order book.
func New[P Number, Q Number]() *OrderBook[P, Q] {
	return &OrderBook[P, Q]{
		bid: newBookSide[P, Q](Buy),
		ask: newBookSide[P, Q](Sell),
	}
}

// Bid returns the bid (buy) side.
func (b *OrderBook[P, Q]) Bid() *BookSide[P, Q] { return b.bid }

// Ask returns the ask (sell) side.
func (b *OrderBook[P, Q]) Ask() *BookSide[P, Q] { return b.ask }

func (b *OrderBook[P, Q]) sides(side Side) (opposite, own *BookSide[P, Q]) {
	if side == Buy {
		return b.ask, b.bid
	}
	return b.bid, b.ask
}

// Remove splices a specific resting order out of whichever side it is
// sitting on. It is the primitive a caller builds cancel-by-identifier on
// top of; the core itself tracks no order identity.
func (b *OrderBook[P, Q]) Remove(order *Order[P, Q]) (Q, bool) {
	_, own := b.sides(order.Side)
	return own.remove(order)
}

// AcceptOrder submits order to the book and returns a lazy stream of the
// fills it produces. Consuming the stream drives the matching walk one
// fill at a time; stopping early (breaking out of a range loop, or simply
// never finishing it) stops matching at exactly that point — every fill
// already yielded is already committed, and nothing beyond it happens.
//
// order must not be mutated by the caller afterward and, if any quantity
// ends up resting, must be kept alive for as long as that entry rests.
func (b *OrderBook[P, Q]) AcceptOrder(order *Order[P, Q], policy Policy[P, Q]) iter.Seq[OrderQuantity[P, Q]] {
	policy = Func(policy)
	opposite, own := b.sides(order.Side)

	return func(yield func(OrderQuantity[P, Q]) bool) {
		var zero Q
		if order.Quantity <= zero {
			return
		}

		switch order.OrderType {
		case Market:
			opposite.match(order, order.Quantity, true, policy, yield)

		case Limit, IOC:
			filled, cont := opposite.match(order, order.Quantity, false, policy, yield)
			if !cont {
				return
			}
			remaining := order.Quantity - filled
			if order.OrderType == Limit && remaining > zero {
				own.add(order, remaining)
			}

		case FOC:
			if opposite.available(order.Price, order.Quantity) < order.Quantity {
				return
			}
			opposite.match(order, order.Quantity, false, policy, yield)
		}
	}
}
