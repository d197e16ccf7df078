package orderbook

import (
	"iter"

	"github.com/tidwall/btree"
)

// BookSide is one side (bid or ask) of an order book: an ordered sequence
// of PriceLevels, aggressive price first (bids descending, asks ascending).
// Levels are stored in a tidwall/btree.BTreeG so lookup and insertion are
// both O(log N) and iteration in priority order falls out of the tree's
// own ascending scan.
type BookSide[P Number, Q Number] struct {
	side   Side
	levels *btree.BTreeG[*PriceLevel[P, Q]]
}

func newBookSide[P Number, Q Number](side Side) *BookSide[P, Q] {
	return &BookSide[P, Q]{
		side: side,
		levels: btree.NewBTreeG(func(a, b *PriceLevel[P, Q]) bool {
			return strictlyBetter(side, a.price, b.price)
		}),
	}
}

// Side reports which side of the book this is.
func (s *BookSide[P, Q]) Side() Side { return s.side }

// Size returns the number of distinct price levels on this side.
func (s *BookSide[P, Q]) Size() int { return s.levels.Len() }

// Empty reports whether this side currently holds no resting liquidity.
func (s *BookSide[P, Q]) Empty() bool { return s.levels.Len() == 0 }

// Top returns the best (most aggressive) price level, or false if the side
// is empty.
func (s *BookSide[P, Q]) Top() (*PriceLevel[P, Q], bool) {
	return s.levels.Min()
}

// Levels iterates price levels from best to worst.
func (s *BookSide[P, Q]) Levels() iter.Seq[*PriceLevel[P, Q]] {
	return func(yield func(*PriceLevel[P, Q]) bool) {
		s.levels.Scan(func(lvl *PriceLevel[P, Q]) bool {
			return yield(lvl)
		})
	}
}

// add places a resting entry at order's price, creating the level if it
// does not already exist.
func (s *BookSide[P, Q]) add(order *Order[P, Q], q Q) {
	probe := &PriceLevel[P, Q]{price: order.Price}
	lvl, ok := s.levels.GetMut(probe)
	if !ok {
		lvl = newPriceLevel[P, Q](order.Price)
		s.levels.Set(lvl)
	}
	lvl.add(order, q)
}

// remove splices a specific resting order out of this side, wherever it
// is sitting. It is the primitive a surrounding system needs to build
// cancel-by-identifier on top of the core (see OrderBook.Remove); the core
// itself never tracks orders by id.
//
// It returns the quantity that was resting and whether the order was
// found at all.
func (s *BookSide[P, Q]) remove(order *Order[P, Q]) (Q, bool) {
	var zero Q
	probe := &PriceLevel[P, Q]{price: order.Price}
	lvl, ok := s.levels.GetMut(probe)
	if !ok {
		return zero, false
	}

	for i := range lvl.orders {
		if lvl.orders[i].Order != order {
			continue
		}
		q := lvl.orders[i].Quantity
		lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)
		lvl.totalQuantity -= q
		if lvl.Empty() {
			s.levels.Delete(lvl)
		}
		return q, true
	}
	return zero, false
}

// match walks levels from top() downward, filling against each eligible
// level in turn, until the incoming order is fully filled, the next
// level's price is strictly worse than the incoming order's limit (unless
// unbounded is set, for Market orders which accept any price), or the side
// empties. Fills are forwarded to yield as they are committed.
//
// Returns the quantity filled and whether the caller should keep consuming
// (false if yield returned false, meaning the stream was stopped early).
func (s *BookSide[P, Q]) match(
	order *Order[P, Q],
	wanted Q,
	unbounded bool,
	policy Policy[P, Q],
	yield func(OrderQuantity[P, Q]) bool,
) (filled Q, cont bool) {
	var zero Q
	cont = true

	for {
		if wanted <= zero {
			return filled, cont
		}
		lvl, ok := s.levels.Min()
		if !ok {
			return filled, cont
		}
		if !unbounded && !crosses(s.side, lvl.price, order.Price) {
			return filled, cont
		}

		lvlFilled, lvlCont := lvl.match(wanted, policy, yield)
		filled += lvlFilled
		wanted -= lvlFilled

		if lvl.Empty() {
			s.levels.Delete(lvl)
			if !lvlCont {
				return filled, false
			}
			continue
		}
		if !lvlCont {
			return filled, false
		}
		// Level still holds resting quantity: per spec this ends the
		// walk (either demand was met, or a policy capped the fill).
		return filled, cont
	}
}

// available sums resting quantity at prices that would cross limitPrice,
// stopping as soon as the running total reaches want. It performs no
// mutation and never invokes a policy — it is the dry-run half of FOC's
// two-pass algorithm, answering only "is there enough to take" before any
// real match is attempted.
func (s *BookSide[P, Q]) available(limitPrice P, want Q) Q {
	var total Q
	s.levels.Scan(func(lvl *PriceLevel[P, Q]) bool {
		if !crosses(s.side, lvl.price, limitPrice) {
			return false
		}
		total += lvl.totalQuantity
		return total < want
	})
	return total
}

// crosses reports whether a resting level at levelPrice, sitting on
// restingSide, is willing to trade against an incoming order limited at
// incomingPrice. A resting bid crosses when its price is at least the
// incoming limit; a resting ask crosses when its price is at most the
// incoming limit.
func crosses[P Number](restingSide Side, levelPrice, incomingPrice P) bool {
	return betterOrEqual(restingSide, levelPrice, incomingPrice)
}
