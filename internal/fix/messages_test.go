package fix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/common"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	var buf []byte
	buf = EncodeHeader(buf, Header{
		FixVersion:   "FIX.4.2",
		MsgType:      MsgTypeNewOrderSingle,
		SenderCompID: "CLIENT1",
		TargetCompID: "EXCHANGE",
	})

	h, err := DecodeHeader(NewParser(buf))
	require.NoError(t, err)
	assert.Equal(t, "FIX.4.2", h.FixVersion)
	assert.Equal(t, MsgTypeNewOrderSingle, h.MsgType)
	assert.Equal(t, "CLIENT1", h.SenderCompID)
	assert.Equal(t, "EXCHANGE", h.TargetCompID)
}

func TestEncodeDecodeNewOrderSingleRoundTrip(t *testing.T) {
	cases := []NewOrderSingle{
		{ClOrdID: "abc-1", Symbol: "AAPL", Side: common.Buy, Price: 100.5, OrderQty: 10, Type: common.LimitOrder},
		{ClOrdID: "abc-2", Symbol: "AAPL", Side: common.Sell, Price: 0, OrderQty: 5, Type: common.MarketOrder},
		{ClOrdID: "abc-3", Symbol: "MSFT", Side: common.Buy, Price: 50, OrderQty: 7, Type: common.IOCOrder},
		{ClOrdID: "abc-4", Symbol: "MSFT", Side: common.Sell, Price: 51, OrderQty: 9, Type: common.FOCOrder},
	}

	for _, want := range cases {
		var buf []byte
		buf = EncodeNewOrderSingle(buf, want)

		got, err := DecodeNewOrderSingle(NewParser(buf))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeNewOrderSingleMissingFieldRejects(t *testing.T) {
	var buf []byte
	buf = EncodeField(buf, TagClOrdID, "only-one-field")

	_, err := DecodeNewOrderSingle(NewParser(buf))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodeNewOrderSingleInvalidEnumRejects(t *testing.T) {
	var buf []byte
	buf = EncodeField(buf, TagClOrdID, "c1")
	buf = EncodeField(buf, TagSymbol, "AAPL")
	buf = EncodeField(buf, TagSide, "9") // not 1 or 2
	buf = EncodeField(buf, TagOrdType, "2")
	buf = EncodeField(buf, TagPrice, "10")
	buf = EncodeField(buf, TagOrderQty, "1")

	_, err := DecodeNewOrderSingle(NewParser(buf))
	assert.ErrorIs(t, err, ErrInvalidEnum)
}

func TestEncodeDecodeOrderCancelRequestRoundTrip(t *testing.T) {
	want := OrderCancelRequest{
		ClOrdID:     "cancel-1",
		OrigClOrdID: "orig-1",
		Side:        common.Sell,
		Symbol:      "AAPL",
	}
	var buf []byte
	buf = EncodeOrderCancelRequest(buf, want)

	got, err := DecodeOrderCancelRequest(NewParser(buf))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeDecodeMarketDataRequestRoundTrip(t *testing.T) {
	want := MarketDataRequest{MDReqID: "req-1", Symbol: "AAPL"}
	var buf []byte
	buf = EncodeMarketDataRequest(buf, want)

	got, err := DecodeMarketDataRequest(NewParser(buf))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeDecodeMarketDataSnapshotRoundTrip(t *testing.T) {
	want := MarketDataSnapshot{
		MDReqID:  "req-1",
		Symbol:   "AAPL",
		HasBid:   true,
		BidPx:    99.5,
		BidSize:  10,
		HasOffer: true,
		OfferPx:  100.5,
		OfferQty: 7,
	}
	var buf []byte
	buf = EncodeMarketDataSnapshot(buf, "EXCHANGE", "CLIENT1", want)

	p := NewParser(buf)
	_, err := DecodeHeader(p)
	require.NoError(t, err)

	got, err := DecodeMarketDataSnapshot(p)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeDecodeMarketDataSnapshotOmitsMissingSide(t *testing.T) {
	want := MarketDataSnapshot{MDReqID: "req-2", Symbol: "AAPL", HasBid: true, BidPx: 50, BidSize: 3}
	var buf []byte
	buf = EncodeMarketDataSnapshot(buf, "EXCHANGE", "CLIENT1", want)

	p := NewParser(buf)
	_, err := DecodeHeader(p)
	require.NoError(t, err)

	got, err := DecodeMarketDataSnapshot(p)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, got.HasOffer)
}

func TestParserAcceptsFinalFieldWithoutTrailingSOH(t *testing.T) {
	p := NewParser([]byte("11=abc"))
	f, err := p.NextField()
	require.NoError(t, err)
	assert.Equal(t, TagClOrdID, f.Tag)
	assert.Equal(t, "abc", f.Value)
	assert.True(t, p.Done())
}

func TestParserRejectsMalformedTag(t *testing.T) {
	p := NewParser([]byte("notanumber=abc\x01"))
	_, err := p.NextField()
	assert.ErrorIs(t, err, ErrUnknownTag)
}
