package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertInvariants checks spec invariants 1-4 hold for the book as a whole.
func assertInvariants[P Number, Q Number](t *testing.T, book *OrderBook[P, Q]) {
	t.Helper()
	for _, side := range []*BookSide[P, Q]{book.bid, book.ask} {
		var prev *PriceLevel[P, Q]
		for lvl := range side.Levels() {
			assert.False(t, lvl.Empty(), "no empty levels")
			var sum Q
			for oq := range lvl.Entries() {
				sum += oq.Quantity
			}
			assert.Equal(t, lvl.TotalQuantity(), sum, "totals consistent")
			if prev != nil {
				assert.True(t, strictlyBetter(side.Side(), prev.price, lvl.price), "sorted levels")
			}
			prev = lvl
		}
	}
	bidTop, bidOK := book.bid.Top()
	askTop, askOK := book.ask.Top()
	if bidOK && askOK {
		assert.True(t, strictlyBetter[P](Buy, bidTop.price, askTop.price), "uncrossed book")
	}
}

func TestScenario1_EmptyBookSingleLimitBid(t *testing.T) {
	book := New[int, int]()
	order := &Order[int, int]{Side: Buy, OrderType: Limit, Price: 100, Quantity: 5}

	var fills []OrderQuantity[int, int]
	for oq := range book.AcceptOrder(order, nil) {
		fills = append(fills, oq)
	}

	assert.Empty(t, fills)
	require.Equal(t, 1, book.Bid().Size())
	lvl, ok := book.Bid().Top()
	require.True(t, ok)
	assert.Equal(t, 100, lvl.Price())
	assert.Equal(t, 1, lvl.Size())
	assert.Equal(t, 5, lvl.TotalQuantity())
	assert.True(t, book.Ask().Empty())
	assertInvariants(t, book)
}

func TestScenario2_SamePriceQueue(t *testing.T) {
	book := New[int, int]()
	first := &Order[int, int]{Side: Buy, OrderType: Limit, Price: 100, Quantity: 5}
	second := &Order[int, int]{Side: Buy, OrderType: Limit, Price: 100, Quantity: 10}

	for range book.AcceptOrder(first, nil) {
		t.Fatal("expected no fills")
	}
	for range book.AcceptOrder(second, nil) {
		t.Fatal("expected no fills")
	}

	require.Equal(t, 1, book.Bid().Size())
	lvl, _ := book.Bid().Top()
	require.Equal(t, 2, lvl.Size())

	var quantities []int
	for oq := range lvl.Entries() {
		quantities = append(quantities, oq.Quantity)
	}
	assert.Equal(t, []int{5, 10}, quantities)
	assertInvariants(t, book)
}

func TestScenario3_PriceOrdering(t *testing.T) {
	book := New[int, int]()
	orders := []*Order[int, int]{
		{Side: Buy, OrderType: Limit, Price: 100, Quantity: 5},
		{Side: Buy, OrderType: Limit, Price: 100, Quantity: 10},
		{Side: Buy, OrderType: Limit, Price: 90, Quantity: 5},
		{Side: Buy, OrderType: Limit, Price: 95, Quantity: 10},
		{Side: Buy, OrderType: Limit, Price: 105, Quantity: 2},
	}
	for _, o := range orders {
		for range book.AcceptOrder(o, nil) {
			t.Fatal("expected no fills")
		}
	}

	var prices []int
	var sizes [][]int
	for lvl := range book.Bid().Levels() {
		prices = append(prices, lvl.Price())
		var q []int
		for oq := range lvl.Entries() {
			q = append(q, oq.Quantity)
		}
		sizes = append(sizes, q)
	}

	assert.Equal(t, []int{105, 100, 95, 90}, prices)
	assert.Equal(t, [][]int{{2}, {5, 10}, {10}, {5}}, sizes)
	assertInvariants(t, book)
}

func seedScenario4Book(t *testing.T) *OrderBook[int, int] {
	t.Helper()
	book := New[int, int]()
	seed := []*Order[int, int]{
		{Side: Buy, OrderType: Limit, Price: 105, Quantity: 2},
		{Side: Buy, OrderType: Limit, Price: 100, Quantity: 5},
		{Side: Buy, OrderType: Limit, Price: 100, Quantity: 10},
		{Side: Buy, OrderType: Limit, Price: 95, Quantity: 10},
		{Side: Buy, OrderType: Limit, Price: 90, Quantity: 5},
	}
	for _, o := range seed {
		for range book.AcceptOrder(o, nil) {
		}
	}
	return book
}

func TestScenario4_SweepAcrossLevelsViaIOC(t *testing.T) {
	book := seedScenario4Book(t)
	incoming := &Order[int, int]{Side: Sell, OrderType: IOC, Price: 100, Quantity: 8}

	var fills []OrderQuantity[int, int]
	for oq := range book.AcceptOrder(incoming, nil) {
		fills = append(fills, oq)
	}

	require.Len(t, fills, 3)
	assert.Equal(t, 2, fills[0].Quantity)
	assert.Equal(t, 5, fills[1].Quantity)
	assert.Equal(t, 1, fills[2].Quantity)

	var prices []int
	var totals []int
	for lvl := range book.Bid().Levels() {
		prices = append(prices, lvl.Price())
		totals = append(totals, lvl.TotalQuantity())
	}
	assert.Equal(t, []int{100, 95, 90}, prices)
	assert.Equal(t, []int{9, 10, 5}, totals)
	assert.True(t, book.Ask().Empty())
	assertInvariants(t, book)
}

func TestScenario5_IOCBeyondTop(t *testing.T) {
	book := seedScenario4Book(t)
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: IOC, Price: 100, Quantity: 8}, nil) {
	}

	incoming := &Order[int, int]{Side: Sell, OrderType: IOC, Price: 95, Quantity: 19}
	var fills []OrderQuantity[int, int]
	for oq := range book.AcceptOrder(incoming, nil) {
		fills = append(fills, oq)
	}

	require.Len(t, fills, 2)
	assert.Equal(t, 9, fills[0].Quantity)
	assert.Equal(t, 10, fills[1].Quantity)

	require.Equal(t, 1, book.Bid().Size())
	lvl, _ := book.Bid().Top()
	assert.Equal(t, 90, lvl.Price())
	assert.Equal(t, 5, lvl.TotalQuantity())
	assertInvariants(t, book)
}

func TestScenario6_PolicyCap(t *testing.T) {
	book := seedScenario4Book(t)
	incoming := &Order[int, int]{Side: Sell, OrderType: IOC, Price: 100, Quantity: 8}
	cap3 := Cap[int, int](3)

	var fills []OrderQuantity[int, int]
	for oq := range book.AcceptOrder(incoming, cap3) {
		fills = append(fills, oq)
	}

	require.Len(t, fills, 2)
	assert.Equal(t, 2, fills[0].Quantity)
	assert.Equal(t, 3, fills[1].Quantity)

	var prices []int
	var totals []int
	for lvl := range book.Bid().Levels() {
		prices = append(prices, lvl.Price())
		totals = append(totals, lvl.TotalQuantity())
	}
	assert.Equal(t, []int{100, 95, 90}, prices)
	assert.Equal(t, []int{10, 10, 5}, totals)
	assertInvariants(t, book)
}

func TestMarketOrderAgainstEmptyBookIsNoop(t *testing.T) {
	book := New[int, int]()
	incoming := &Order[int, int]{Side: Buy, OrderType: Market, Quantity: 10}

	count := 0
	for range book.AcceptOrder(incoming, nil) {
		count++
	}
	assert.Zero(t, count)
	assertInvariants(t, book)
}

func TestMarketOrderSweepsIgnoringPrice(t *testing.T) {
	book := New[int, int]()
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 50, Quantity: 3}, nil) {
	}
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 200, Quantity: 4}, nil) {
	}

	incoming := &Order[int, int]{Side: Buy, OrderType: Market, Quantity: 10}
	var total int
	for oq := range book.AcceptOrder(incoming, nil) {
		total += oq.Quantity
	}
	assert.Equal(t, 7, total)
	assert.True(t, book.Ask().Empty())
	assertInvariants(t, book)
}

func TestFOCFailsWhenInsufficientLiquidity(t *testing.T) {
	book := New[int, int]()
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 100, Quantity: 5}, nil) {
	}

	incoming := &Order[int, int]{Side: Buy, OrderType: FOC, Price: 100, Quantity: 10}
	count := 0
	for range book.AcceptOrder(incoming, nil) {
		count++
	}
	assert.Zero(t, count, "FOC that cannot be fully filled emits nothing")

	lvl, ok := book.Ask().Top()
	require.True(t, ok)
	assert.Equal(t, 5, lvl.TotalQuantity(), "no state change on a failed FOC")
	assertInvariants(t, book)
}

func TestFOCFillsWhenSufficientLiquidity(t *testing.T) {
	book := New[int, int]()
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 100, Quantity: 5}, nil) {
	}
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 101, Quantity: 10}, nil) {
	}

	incoming := &Order[int, int]{Side: Buy, OrderType: FOC, Price: 101, Quantity: 10}
	var total int
	for oq := range book.AcceptOrder(incoming, nil) {
		total += oq.Quantity
	}
	assert.Equal(t, 10, total)
	assertInvariants(t, book)
}

func TestLimitOrderCrossesThenRests(t *testing.T) {
	book := New[int, int]()
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 100, Quantity: 5}, nil) {
	}

	incoming := &Order[int, int]{Side: Buy, OrderType: Limit, Price: 100, Quantity: 8}
	var total int
	for oq := range book.AcceptOrder(incoming, nil) {
		total += oq.Quantity
	}
	assert.Equal(t, 5, total)

	lvl, ok := book.Bid().Top()
	require.True(t, ok)
	assert.Equal(t, 3, lvl.TotalQuantity())
	assert.True(t, book.Ask().Empty())
	assertInvariants(t, book)
}

func TestEarlyStopLeavesResidualResting(t *testing.T) {
	book := New[int, int]()
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 100, Quantity: 3}, nil) {
	}
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 100, Quantity: 3}, nil) {
	}

	incoming := &Order[int, int]{Side: Buy, OrderType: IOC, Price: 100, Quantity: 6}
	seen := 0
	for range book.AcceptOrder(incoming, nil) {
		seen++
		if seen == 1 {
			break
		}
	}

	lvl, ok := book.Ask().Top()
	require.True(t, ok)
	assert.Equal(t, 3, lvl.TotalQuantity(), "only the first fill committed")
	assertInvariants(t, book)
}

// TestEarlyStopOnExactDepletion covers the case where the single fill that
// stops the stream early also happens to drain the level completely: the
// level must still be spliced out of the side, not left resting empty.
func TestEarlyStopOnExactDepletion(t *testing.T) {
	book := New[int, int]()
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 100, Quantity: 5}, nil) {
	}

	incoming := &Order[int, int]{Side: Buy, OrderType: IOC, Price: 100, Quantity: 5}
	seen := 0
	for range book.AcceptOrder(incoming, nil) {
		seen++
		if seen == 1 {
			break
		}
	}

	assert.True(t, book.Ask().Empty(), "fully drained level must not linger")
	assertInvariants(t, book)
}

func TestRemoveSplicesRestingOrder(t *testing.T) {
	book := New[int, int]()
	order := &Order[int, int]{Side: Buy, OrderType: Limit, Price: 100, Quantity: 5}
	for range book.AcceptOrder(order, nil) {
	}

	q, ok := book.Remove(order)
	assert.True(t, ok)
	assert.Equal(t, 5, q)
	assert.True(t, book.Bid().Empty())
}

func TestAddingNonCrossingLimitsOrderIndependent(t *testing.T) {
	prices := []int{100, 90, 105, 95, 102}
	reordered := []int{90, 95, 100, 102, 105}

	a := New[int, int]()
	for _, p := range prices {
		for range a.AcceptOrder(&Order[int, int]{Side: Buy, OrderType: Limit, Price: p, Quantity: 1}, nil) {
		}
	}
	b := New[int, int]()
	for _, p := range reordered {
		for range b.AcceptOrder(&Order[int, int]{Side: Buy, OrderType: Limit, Price: p, Quantity: 1}, nil) {
		}
	}

	var aPrices, bPrices []int
	for lvl := range a.Bid().Levels() {
		aPrices = append(aPrices, lvl.Price())
	}
	for lvl := range b.Bid().Levels() {
		bPrices = append(bPrices, lvl.Price())
	}
	assert.Equal(t, aPrices, bPrices)
}

func TestMarketThenFullyConsumedReturnsBookToEmpty(t *testing.T) {
	book := New[int, int]()
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 100, Quantity: 5}, nil) {
	}
	for range book.AcceptOrder(&Order[int, int]{Side: Sell, OrderType: Limit, Price: 101, Quantity: 5}, nil) {
	}

	for range book.AcceptOrder(&Order[int, int]{Side: Buy, OrderType: Market, Quantity: 10}, nil) {
	}
	assert.True(t, book.Ask().Empty())
	assert.True(t, book.Bid().Empty())
}
