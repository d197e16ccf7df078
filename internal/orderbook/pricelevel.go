package orderbook

import "iter"

// PriceLevel is a FIFO queue of resting entries at a single limit price,
// along with their running total quantity. Entries are appended at the
// tail by add and filled from the head by match.
type PriceLevel[P Number, Q Number] struct {
	price         P
	totalQuantity Q
	orders        []OrderQuantity[P, Q]
}

func newPriceLevel[P Number, Q Number](price P) *PriceLevel[P, Q] {
	return &PriceLevel[P, Q]{price: price}
}

// Price returns the level's limit price.
func (lvl *PriceLevel[P, Q]) Price() P { return lvl.price }

// TotalQuantity returns the sum of all resting entries' quantities.
func (lvl *PriceLevel[P, Q]) TotalQuantity() Q { return lvl.totalQuantity }

// Size returns the number of resting entries at this level.
func (lvl *PriceLevel[P, Q]) Size() int { return len(lvl.orders) }

// Empty reports whether the level currently holds no resting entries. A
// level may be empty only transiently inside match; it must never be left
// in the book in that state.
func (lvl *PriceLevel[P, Q]) Empty() bool { return len(lvl.orders) == 0 }

// Entries iterates the level's resting entries in FIFO order (oldest,
// i.e. next to fill, first).
func (lvl *PriceLevel[P, Q]) Entries() iter.Seq[OrderQuantity[P, Q]] {
	return func(yield func(OrderQuantity[P, Q]) bool) {
		for _, oq := range lvl.orders {
			if !yield(oq) {
				return
			}
		}
	}
}

// add appends a new resting entry to the tail of the queue. q must be
// strictly positive; violating that precondition is a fatal, undefined
// usage error, not a recoverable one.
func (lvl *PriceLevel[P, Q]) add(order *Order[P, Q], q Q) {
	var zero Q
	if q <= zero {
		panic(ErrNonPositiveQuantity)
	}
	lvl.orders = append(lvl.orders, OrderQuantity[P, Q]{Order: order, Quantity: q})
	lvl.totalQuantity += q
}

// match fills against the head of the queue until wanted drops to zero or
// the queue empties, yielding one committed OrderQuantity per fill. It
// returns the quantity actually filled and whether the caller should keep
// consuming (false means the consumer stopped the stream early).
//
// This is the heart of the specification's per-execution policy contract:
// for every head entry a tentative fill is constructed, the policy may
// shrink it, the shrunk amount is what gets committed (queue + total
// decremented) before the fill is yielded. A policy veto — committing less
// than the tentative amount — both advances past the entry (its leftover
// is no longer this level's concern; see Policy on vetoes) and ends this
// call immediately, even if the incoming order
// still wants more: a veto is the book's one emergency brake, and the
// caller (BookSide) decides whether to keep walking based on whether this
// level emptied out as a result.
func (lvl *PriceLevel[P, Q]) match(
	wanted Q,
	policy Policy[P, Q],
	yield func(OrderQuantity[P, Q]) bool,
) (filled Q, cont bool) {
	var zero Q
	consumed := 0
	cont = true

	for i := range lvl.orders {
		if wanted <= zero {
			break
		}
		entry := &lvl.orders[i]

		tentative := minQ(wanted, entry.Quantity)
		fill := OrderQuantity[P, Q]{Order: entry.Order, Quantity: tentative}

		policy(&fill)
		if fill.Quantity > tentative {
			// Policy misbehavior: it must only ever decrease a fill.
			// Clamp silently to the tentative value rather than let the
			// book over-commit.
			fill.Quantity = tentative
		}
		veto := fill.Quantity != tentative

		entry.Quantity -= fill.Quantity
		lvl.totalQuantity -= fill.Quantity
		wanted -= fill.Quantity
		filled += fill.Quantity

		if !yield(fill) {
			// Consumer destroyed the stream; the fill above is already
			// committed (commit precedes yield), nothing further
			// happens.
			if entry.Quantity == zero || veto {
				consumed = i + 1
			} else {
				consumed = i
			}
			cont = false
			break
		}

		if wanted <= zero {
			// Demand met. Leave the entry at the head if it still has
			// residual the caller simply didn't need; otherwise advance
			// past it (veto is impossible here: a vetoed fill is smaller
			// than tentative, which is at most wanted, so wanted stays > 0).
			if entry.Quantity == zero {
				consumed = i + 1
			} else {
				consumed = i
			}
			break
		}

		if veto {
			// Demand not met, but the policy capped this fill: stop the
			// walk right here rather than press on into the next entry.
			consumed = i + 1
			break
		}

		// wanted > 0 and no veto: tentative must have equaled the
		// entry's quantity, so the entry is fully drained. Move on.
		consumed = i + 1
	}

	if consumed > 0 {
		// A spliced-away entry may still carry residual quantity when a
		// policy veto forced the advance-past (its committed portion was
		// already subtracted above); that leftover is discarded along
		// with the entry so totalQuantity keeps matching exactly what
		// survives in the queue.
		var leftover Q
		for _, e := range lvl.orders[:consumed] {
			leftover += e.Quantity
		}
		lvl.totalQuantity -= leftover
		lvl.orders = lvl.orders[consumed:]
	}

	return filled, cont
}
