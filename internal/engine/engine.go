// Package engine wires the generic matching core in internal/orderbook
// into a multi-instrument exchange: one book per asset type, UUID-based
// order identity and cancellation, and a trade feed a server front end
// can drain to produce execution reports.
package engine

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"fenrir/internal/common"
	"fenrir/internal/orderbook"
)

const tradeFeedSize = 256

var (
	// ErrUnknownAsset is returned when an order names an AssetType the
	// engine was not constructed with a book for.
	ErrUnknownAsset = errors.New("engine: unknown asset type")
	// ErrUnknownOrder is returned by CancelOrder when no resting order
	// with the given UUID exists on the named book.
	ErrUnknownOrder = errors.New("engine: unknown order")
)

// Engine routes orders to the per-asset book, stamps identity/arrival
// metadata and republishes every emitted fill as a Trade.
type Engine struct {
	books  map[common.AssetType]*Book
	trades chan common.Trade
}

// New constructs an Engine with one empty book per supported asset. Every
// book shares the same execution policy; pass orderbook.Noop for no
// per-execution size limiting.
func New(policy orderbook.Policy[float64, uint64], supportedAssets ...common.AssetType) *Engine {
	engine := &Engine{
		books:  make(map[common.AssetType]*Book, len(supportedAssets)),
		trades: make(chan common.Trade, tradeFeedSize),
	}
	for _, asset := range supportedAssets {
		engine.books[asset] = newBook(policy)
	}
	return engine
}

// Trades returns the channel of emitted trades. A server front end
// range-reads this to produce execution reports; it is never closed by
// the engine.
func (e *Engine) Trades() <-chan common.Trade { return e.trades }

// PlaceOrder stamps the order's arrival timestamp, submits it to the
// asset's book and publishes every resulting trade onto the trade feed.
// It returns an error only if the asset is not one the engine was
// constructed with.
func (e *Engine) PlaceOrder(order *common.Order) error {
	book, ok := e.books[order.AssetType]
	if !ok {
		return ErrUnknownAsset
	}
	if order.Timestamp.IsZero() {
		order.Timestamp = time.Now()
	}

	trades := book.accept(order)
	for _, trade := range trades {
		select {
		case e.trades <- trade:
		default:
			log.Error().
				Str("uuid", order.UUID).
				Msg("trade feed full, dropping trade report")
		}
	}
	return nil
}

// CancelOrder removes a resting order by UUID from the named asset's
// book.
func (e *Engine) CancelOrder(assetType common.AssetType, uuid string) error {
	book, ok := e.books[assetType]
	if !ok {
		return ErrUnknownAsset
	}
	if _, ok := book.cancel(uuid); !ok {
		return ErrUnknownOrder
	}
	return nil
}

// BookSnapshot is the top-of-book state for one asset's book, returned by
// Snapshot and carried over the wire by the server's market-data-request
// handler.
type BookSnapshot struct {
	Asset    common.AssetType
	BidPrice float64
	BidQty   uint64
	HasBid   bool
	AskPrice float64
	AskQty   uint64
	HasAsk   bool
}

// Snapshot reports the top of book for a single asset's book.
func (e *Engine) Snapshot(assetType common.AssetType) (BookSnapshot, error) {
	book, ok := e.books[assetType]
	if !ok {
		return BookSnapshot{}, ErrUnknownAsset
	}
	bidPrice, bidQty, hasBid, askPrice, askQty, hasAsk := book.topOfBook()
	return BookSnapshot{
		Asset:    assetType,
		BidPrice: bidPrice,
		BidQty:   bidQty,
		HasBid:   hasBid,
		AskPrice: askPrice,
		AskQty:   askQty,
		HasAsk:   hasAsk,
	}, nil
}

// LogBook writes a debug-level snapshot of every book's top of book to
// the log, grounded on the teacher's LogBook debugging hook. cmd/exchange
// calls this on a timer so operators get periodic visibility without
// waiting on a client to ask for one.
func (e *Engine) LogBook() {
	for asset := range e.books {
		snap, err := e.Snapshot(asset)
		if err != nil {
			continue
		}
		event := log.Debug().Stringer("asset", asset)
		if snap.HasBid {
			event = event.Float64("bidPrice", snap.BidPrice).Uint64("bidQty", snap.BidQty)
		}
		if snap.HasAsk {
			event = event.Float64("askPrice", snap.AskPrice).Uint64("askQty", snap.AskQty)
		}
		event.Msg("book snapshot")
	}
}
