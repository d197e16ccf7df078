package engine

import (
	"sync"
	"time"

	"fenrir/internal/common"
	"fenrir/internal/orderbook"
)

// Book pairs a single-instrument matching core with the bookkeeping an
// exchange process needs around it: indices so callers can cancel by
// identifier and so a fill's resting counterpart can be reported back to
// its owner (the core itself has no notion of order identity, only
// pointer identity — see orderbook.OrderBook.Remove), and a mutex
// serializing access, since the core is not safe for concurrent mutation
// but independent books (independent instruments) may be driven from
// different goroutines at once.
//
// The core never mutates an Order's Quantity field once constructed (it
// is the caller's object — see package orderbook's ownership contract),
// so remaining open quantity for any resting order is tracked here
// instead, keyed by its UUID.
type Book struct {
	mu        sync.Mutex
	core      *orderbook.OrderBook[float64, uint64]
	policy    orderbook.Policy[float64, uint64]
	byUUID    map[string]*common.Order
	byCoreRef map[*orderbook.Order[float64, uint64]]*common.Order
	remaining map[string]uint64
}

func newBook(policy orderbook.Policy[float64, uint64]) *Book {
	return &Book{
		core:      orderbook.New[float64, uint64](),
		policy:    orderbook.Func(policy),
		byUUID:    make(map[string]*common.Order),
		byCoreRef: make(map[*orderbook.Order[float64, uint64]]*common.Order),
		remaining: make(map[string]uint64),
	}
}

// accept stamps the order's exchange arrival time, submits it to the core
// and fully drains the resulting fill stream, turning each fill into a
// Trade. The engine always fully drains: partial-drain semantics are part
// of the core's own API contract, not the engine's synchronous
// request/response model.
func (b *Book) accept(order *common.Order) []common.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	order.ExchTimestamp = time.Now()

	var trades []common.Trade
	var takerFilled uint64
	for fill := range b.core.AcceptOrder(&order.Order, b.policy) {
		maker := b.byCoreRef[fill.Order]
		takerFilled += fill.Quantity

		var makerRemaining uint64
		if maker != nil {
			makerRemaining = b.remaining[maker.UUID] - fill.Quantity
			b.remaining[maker.UUID] = makerRemaining
			if makerRemaining == 0 {
				delete(b.byUUID, maker.UUID)
				delete(b.byCoreRef, fill.Order)
				delete(b.remaining, maker.UUID)
			}
		}

		trades = append(trades, common.Trade{
			Party:                 order,
			CounterParty:          maker,
			Timestamp:             time.Now(),
			MatchQty:              fill.Quantity,
			Price:                 fill.Order.Price,
			PartyRemaining:        order.Quantity - takerFilled,
			CounterPartyRemaining: makerRemaining,
		})
	}

	takerRemaining := order.Quantity - takerFilled
	if order.OrderType == common.LimitOrder && takerRemaining > 0 {
		b.byUUID[order.UUID] = order
		b.byCoreRef[&order.Order] = order
		b.remaining[order.UUID] = takerRemaining
	}

	return trades
}

// topOfBook reports the best bid and ask currently resting, if any.
func (b *Book) topOfBook() (bidPrice float64, bidQty uint64, hasBid bool, askPrice float64, askQty uint64, hasAsk bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bidTop, ok := b.core.Bid().Top(); ok {
		bidPrice, bidQty, hasBid = bidTop.Price(), bidTop.TotalQuantity(), true
	}
	if askTop, ok := b.core.Ask().Top(); ok {
		askPrice, askQty, hasAsk = askTop.Price(), askTop.TotalQuantity(), true
	}
	return
}

// cancel removes a resting order by UUID.
func (b *Book) cancel(uuid string) (*common.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.byUUID[uuid]
	if !ok {
		return nil, false
	}
	b.core.Remove(&order.Order)
	delete(b.byUUID, uuid)
	delete(b.byCoreRef, &order.Order)
	delete(b.remaining, uuid)
	return order, true
}
