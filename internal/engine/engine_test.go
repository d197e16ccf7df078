package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/common"
	"fenrir/internal/orderbook"
)

func newOrder(uuid string, side common.Side, orderType common.OrderType, price float64, qty uint64, owner string) *common.Order {
	o := &common.Order{
		UUID:          uuid,
		AssetType:     common.Equities,
		Ticker:        "AAPL",
		TotalQuantity: qty,
		Owner:         owner,
	}
	o.Side = side
	o.OrderType = orderType
	o.Price = price
	o.Quantity = qty
	return o
}

func TestPlaceOrderRejectsUnknownAsset(t *testing.T) {
	eng := New(nil, common.Equities)
	order := newOrder("o1", common.Buy, common.LimitOrder, 100, 5, "alice")
	order.AssetType = common.Futures

	err := eng.PlaceOrder(order)
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestPlaceOrderRestsThenCrosses(t *testing.T) {
	eng := New(nil, common.Equities)

	resting := newOrder("maker", common.Sell, common.LimitOrder, 100, 10, "bob")
	require.NoError(t, eng.PlaceOrder(resting))

	taker := newOrder("taker", common.Buy, common.LimitOrder, 100, 4, "alice")
	require.NoError(t, eng.PlaceOrder(taker))

	select {
	case trade := <-eng.Trades():
		assert.Equal(t, uint64(4), trade.MatchQty)
		assert.Equal(t, "alice", trade.Party.Owner)
		assert.Equal(t, "bob", trade.CounterParty.Owner)
		assert.Equal(t, uint64(0), trade.PartyRemaining)
		assert.Equal(t, uint64(6), trade.CounterPartyRemaining)
	default:
		t.Fatal("expected a trade on the feed")
	}
}

func TestCancelOrderRemovesRestingOrder(t *testing.T) {
	eng := New(nil, common.Equities)
	order := newOrder("o1", common.Buy, common.LimitOrder, 100, 5, "alice")
	require.NoError(t, eng.PlaceOrder(order))

	require.NoError(t, eng.CancelOrder(common.Equities, "o1"))
	assert.ErrorIs(t, eng.CancelOrder(common.Equities, "o1"), ErrUnknownOrder)
}

func TestCancelUnknownOrderFails(t *testing.T) {
	eng := New(nil, common.Equities)
	err := eng.CancelOrder(common.Equities, "missing")
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestExecutionPolicyCapsFills(t *testing.T) {
	eng := New(orderbook.Cap[float64, uint64](3), common.Equities)

	resting := newOrder("maker", common.Sell, common.LimitOrder, 100, 10, "bob")
	require.NoError(t, eng.PlaceOrder(resting))

	taker := newOrder("taker", common.Buy, common.IOCOrder, 100, 8, "alice")
	require.NoError(t, eng.PlaceOrder(taker))

	trade := <-eng.Trades()
	assert.Equal(t, uint64(3), trade.MatchQty)
}

func TestSnapshotReportsTopOfBook(t *testing.T) {
	eng := New(nil, common.Equities)

	empty, err := eng.Snapshot(common.Equities)
	require.NoError(t, err)
	assert.False(t, empty.HasBid)
	assert.False(t, empty.HasAsk)

	require.NoError(t, eng.PlaceOrder(newOrder("bid1", common.Buy, common.LimitOrder, 99, 5, "bob")))
	require.NoError(t, eng.PlaceOrder(newOrder("ask1", common.Sell, common.LimitOrder, 101, 7, "alice")))

	snap, err := eng.Snapshot(common.Equities)
	require.NoError(t, err)
	assert.True(t, snap.HasBid)
	assert.Equal(t, 99.0, snap.BidPrice)
	assert.Equal(t, uint64(5), snap.BidQty)
	assert.True(t, snap.HasAsk)
	assert.Equal(t, 101.0, snap.AskPrice)
	assert.Equal(t, uint64(7), snap.AskQty)
}

func TestSnapshotRejectsUnknownAsset(t *testing.T) {
	eng := New(nil, common.Equities)
	_, err := eng.Snapshot(common.Futures)
	assert.ErrorIs(t, err, ErrUnknownAsset)
}
