package fix

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"fenrir/internal/common"
)

// Tag constants, named after the FIX fields they mirror.
const (
	TagFixVersion   = 8
	TagBodyLength   = 9
	TagMsgType      = 35
	TagSenderCompID = 49
	TagTargetCompID = 56
	TagClOrdID      = 11
	TagOrigClOrdID  = 41
	TagOrderID      = 37
	TagHandlInst    = 21
	TagOrdType      = 40
	TagPrice        = 44
	TagOrderQty     = 38
	TagSide         = 54
	TagTransactTime = 60
	TagSymbol       = 55
	TagTimeInForce  = 59
	TagOrdStatus    = 39
	TagExecType     = 150
	TagLastPx       = 31
	TagLastQty      = 32
	TagExecID       = 17
	TagRefMsgType   = 372
	TagText         = 58
	TagMDReqID      = 262
	TagBidPx        = 132
	TagOfferPx      = 133
	TagBidSize      = 134
	TagOfferSize    = 135
)

// MsgType values identify which shape follows the session Header.
const (
	MsgTypeNewOrderSingle     = "D"
	MsgTypeOrderCancelReq     = "F"
	MsgTypeExecutionReport    = "8"
	MsgTypeBusinessReject     = "j"
	MsgTypeMarketDataRequest  = "V"
	MsgTypeMarketDataSnapshot = "W"
)

// Header is the minimal session header every message carries.
type Header struct {
	FixVersion   string
	SenderCompID string
	TargetCompID string
	MsgType      string
}

// DecodeHeader reads the five leading header fields, in order, exactly as
// the reference parser requires ("these fields must be in this exact
// order").
func DecodeHeader(p *Parser) (Header, error) {
	var h Header
	fix, err := p.NextField()
	if err != nil || fix.Tag != TagFixVersion {
		return Header{}, ErrMissingField
	}
	h.FixVersion = fix.Value

	if _, err := p.NextField(); err != nil { // BodyLength, unused beyond framing
		return Header{}, ErrMissingField
	}

	msgType, err := p.NextField()
	if err != nil || msgType.Tag != TagMsgType {
		return Header{}, ErrMissingField
	}
	h.MsgType = msgType.Value

	sender, err := p.NextField()
	if err != nil || sender.Tag != TagSenderCompID {
		return Header{}, ErrMissingField
	}
	h.SenderCompID = sender.Value

	target, err := p.NextField()
	if err != nil || target.Tag != TagTargetCompID {
		return Header{}, ErrMissingField
	}
	h.TargetCompID = target.Value

	return h, nil
}

// EncodeHeader appends the header fields to buf.
func EncodeHeader(buf []byte, h Header) []byte {
	buf = EncodeField(buf, TagFixVersion, h.FixVersion)
	buf = EncodeField(buf, TagBodyLength, "0")
	buf = EncodeField(buf, TagMsgType, h.MsgType)
	buf = EncodeField(buf, TagSenderCompID, h.SenderCompID)
	buf = EncodeField(buf, TagTargetCompID, h.TargetCompID)
	return buf
}

// NewOrderSingle is the inbound order-placement message.
type NewOrderSingle struct {
	ClOrdID  string
	Symbol   string
	Side     common.Side
	Price    float64
	OrderQty uint64
	Type     common.OrderType
}

// DecodeNewOrderSingle consumes fields until the buffer is exhausted,
// accepting them in any order (same as the reference parser's switch
// loop), and requires every field used to determine order semantics to
// have been seen.
func DecodeNewOrderSingle(p *Parser) (NewOrderSingle, error) {
	var (
		msg                               NewOrderSingle
		haveClOrdID, haveSymbol, haveSide bool
		haveOrdType, havePrice, haveQty   bool
		ordTypeRaw, timeInForceRaw        string
	)

	for !p.Done() {
		f, err := p.NextField()
		if err != nil {
			return NewOrderSingle{}, err
		}
		switch f.Tag {
		case TagClOrdID:
			msg.ClOrdID = f.Value
			haveClOrdID = true
		case TagSymbol:
			msg.Symbol = f.Value
			haveSymbol = true
		case TagSide:
			switch f.Value {
			case "1":
				msg.Side = common.Buy
			case "2":
				msg.Side = common.Sell
			default:
				return NewOrderSingle{}, ErrInvalidEnum
			}
			haveSide = true
		case TagOrdType:
			ordTypeRaw = f.Value
			haveOrdType = true
		case TagPrice:
			price, err := strconv.ParseFloat(f.Value, 64)
			if err != nil {
				return NewOrderSingle{}, ErrInvalidEnum
			}
			msg.Price = price
			havePrice = true
		case TagOrderQty:
			qty, err := strconv.ParseUint(f.Value, 10, 64)
			if err != nil {
				return NewOrderSingle{}, ErrInvalidEnum
			}
			msg.OrderQty = qty
			haveQty = true
		case TagTimeInForce:
			timeInForceRaw = f.Value
		case TagTransactTime, TagHandlInst:
			// Carried for wire compatibility; not needed to build the
			// order itself.
		}
	}

	if !haveClOrdID || !haveSymbol || !haveSide || !haveOrdType || !havePrice || !haveQty {
		return NewOrderSingle{}, ErrMissingField
	}

	orderType, err := resolveOrderType(ordTypeRaw, timeInForceRaw)
	if err != nil {
		return NewOrderSingle{}, err
	}
	msg.Type = orderType

	return msg, nil
}

// resolveOrderType maps the original source's OrdType (1 Market, 2 Limit)
// combined with TimeInForce (1 GTC, 3 IOC, 4 FOC) onto the core's four
// order types.
func resolveOrderType(ordType, timeInForce string) (common.OrderType, error) {
	switch ordType {
	case "1":
		return common.MarketOrder, nil
	case "2":
		switch timeInForce {
		case "", "1":
			return common.LimitOrder, nil
		case "3":
			return common.IOCOrder, nil
		case "4":
			return common.FOCOrder, nil
		default:
			return 0, ErrInvalidEnum
		}
	default:
		return 0, ErrInvalidEnum
	}
}

// EncodeNewOrderSingle appends a NewOrderSingle body (no header) to buf.
func EncodeNewOrderSingle(buf []byte, msg NewOrderSingle) []byte {
	buf = EncodeField(buf, TagClOrdID, msg.ClOrdID)
	buf = EncodeField(buf, TagSymbol, msg.Symbol)
	side := "1"
	if msg.Side == common.Sell {
		side = "2"
	}
	buf = EncodeField(buf, TagSide, side)

	ordType, tif := "2", "1"
	switch msg.Type {
	case common.MarketOrder:
		ordType = "1"
	case common.IOCOrder:
		tif = "3"
	case common.FOCOrder:
		tif = "4"
	}
	buf = EncodeField(buf, TagOrdType, ordType)
	buf = EncodeField(buf, TagTimeInForce, tif)
	buf = EncodeField(buf, TagPrice, strconv.FormatFloat(msg.Price, 'f', -1, 64))
	buf = EncodeField(buf, TagOrderQty, strconv.FormatUint(msg.OrderQty, 10))
	buf = EncodeField(buf, TagTransactTime, time.Now().UTC().Format(time.RFC3339))
	return buf
}

// OrderCancelRequest is the inbound cancel-by-id message.
type OrderCancelRequest struct {
	ClOrdID     string
	OrigClOrdID string
	Side        common.Side
	Symbol      string
}

// DecodeOrderCancelRequest decodes an OrderCancelRequest body.
func DecodeOrderCancelRequest(p *Parser) (OrderCancelRequest, error) {
	var (
		req                                         OrderCancelRequest
		haveClOrdID, haveOrig, haveSide, haveSymbol bool
	)
	for !p.Done() {
		f, err := p.NextField()
		if err != nil {
			return OrderCancelRequest{}, err
		}
		switch f.Tag {
		case TagClOrdID:
			req.ClOrdID = f.Value
			haveClOrdID = true
		case TagOrigClOrdID:
			req.OrigClOrdID = f.Value
			haveOrig = true
		case TagSide:
			switch f.Value {
			case "1":
				req.Side = common.Buy
			case "2":
				req.Side = common.Sell
			default:
				return OrderCancelRequest{}, ErrInvalidEnum
			}
			haveSide = true
		case TagSymbol:
			req.Symbol = f.Value
			haveSymbol = true
		case TagOrderID, TagTransactTime:
			// Carried for wire compatibility only.
		}
	}
	if !haveClOrdID || !haveOrig || !haveSide || !haveSymbol {
		return OrderCancelRequest{}, ErrMissingField
	}
	return req, nil
}

// EncodeOrderCancelRequest appends an OrderCancelRequest body to buf.
func EncodeOrderCancelRequest(buf []byte, req OrderCancelRequest) []byte {
	buf = EncodeField(buf, TagClOrdID, req.ClOrdID)
	buf = EncodeField(buf, TagOrigClOrdID, req.OrigClOrdID)
	buf = EncodeField(buf, TagOrderID, req.OrigClOrdID)
	side := "1"
	if req.Side == common.Sell {
		side = "2"
	}
	buf = EncodeField(buf, TagSide, side)
	buf = EncodeField(buf, TagSymbol, req.Symbol)
	buf = EncodeField(buf, TagTransactTime, time.Now().UTC().Format(time.RFC3339))
	return buf
}

// ExecutionReport is the outbound per-fill report.
type ExecutionReport struct {
	ExecID    string
	OrderID   string
	OrdStatus string
	ExecType  string
	LastPx    float64
	LastQty   uint64
}

// NewExecutionReport builds a report with a freshly generated ExecID.
func NewExecutionReport(orderID string, lastPx float64, lastQty uint64, filled bool) ExecutionReport {
	status := "1" // partially filled
	if filled {
		status = "2" // filled
	}
	return ExecutionReport{
		ExecID:    uuid.NewString(),
		OrderID:   orderID,
		OrdStatus: status,
		ExecType:  "F", // trade
		LastPx:    lastPx,
		LastQty:   lastQty,
	}
}

// EncodeExecutionReport appends an ExecutionReport body (with header) to
// buf.
func EncodeExecutionReport(buf []byte, senderCompID, targetCompID string, report ExecutionReport) []byte {
	buf = EncodeHeader(buf, Header{
		FixVersion:   "FIX.4.2",
		MsgType:      MsgTypeExecutionReport,
		SenderCompID: senderCompID,
		TargetCompID: targetCompID,
	})
	buf = EncodeField(buf, TagOrderID, report.OrderID)
	buf = EncodeField(buf, TagExecID, report.ExecID)
	buf = EncodeField(buf, TagOrdStatus, report.OrdStatus)
	buf = EncodeField(buf, TagExecType, report.ExecType)
	buf = EncodeField(buf, TagLastPx, strconv.FormatFloat(report.LastPx, 'f', -1, 64))
	buf = EncodeField(buf, TagLastQty, strconv.FormatUint(report.LastQty, 10))
	return buf
}

// BusinessMessageReject is the outbound reject for a malformed or
// otherwise unprocessable inbound message.
type BusinessMessageReject struct {
	RefMsgType string
	Text       string
}

// EncodeBusinessMessageReject appends a BusinessMessageReject (with
// header) to buf.
func EncodeBusinessMessageReject(buf []byte, senderCompID, targetCompID string, reject BusinessMessageReject) []byte {
	buf = EncodeHeader(buf, Header{
		FixVersion:   "FIX.4.2",
		MsgType:      MsgTypeBusinessReject,
		SenderCompID: senderCompID,
		TargetCompID: targetCompID,
	})
	buf = EncodeField(buf, TagRefMsgType, reject.RefMsgType)
	buf = EncodeField(buf, TagText, reject.Text)
	return buf
}

// MarketDataRequest is the inbound top-of-book snapshot request driving
// cmd/feed's "log" action.
type MarketDataRequest struct {
	MDReqID string
	Symbol  string
}

// DecodeMarketDataRequest decodes a MarketDataRequest body.
func DecodeMarketDataRequest(p *Parser) (MarketDataRequest, error) {
	var req MarketDataRequest
	var haveReqID, haveSymbol bool
	for !p.Done() {
		f, err := p.NextField()
		if err != nil {
			return MarketDataRequest{}, err
		}
		switch f.Tag {
		case TagMDReqID:
			req.MDReqID = f.Value
			haveReqID = true
		case TagSymbol:
			req.Symbol = f.Value
			haveSymbol = true
		}
	}
	if !haveReqID || !haveSymbol {
		return MarketDataRequest{}, ErrMissingField
	}
	return req, nil
}

// EncodeMarketDataRequest appends a MarketDataRequest body (no header) to
// buf.
func EncodeMarketDataRequest(buf []byte, req MarketDataRequest) []byte {
	buf = EncodeField(buf, TagMDReqID, req.MDReqID)
	buf = EncodeField(buf, TagSymbol, req.Symbol)
	return buf
}

// MarketDataSnapshot is the outbound top-of-book report answering a
// MarketDataRequest.
type MarketDataSnapshot struct {
	MDReqID  string
	Symbol   string
	HasBid   bool
	BidPx    float64
	BidSize  uint64
	HasOffer bool
	OfferPx  float64
	OfferQty uint64
}

// EncodeMarketDataSnapshot appends a MarketDataSnapshot (with header) to
// buf. A missing side is simply omitted rather than encoded as zero, since
// zero is a legitimate (if unusual) resting price.
func EncodeMarketDataSnapshot(buf []byte, senderCompID, targetCompID string, snap MarketDataSnapshot) []byte {
	buf = EncodeHeader(buf, Header{
		FixVersion:   "FIX.4.2",
		MsgType:      MsgTypeMarketDataSnapshot,
		SenderCompID: senderCompID,
		TargetCompID: targetCompID,
	})
	buf = EncodeField(buf, TagMDReqID, snap.MDReqID)
	buf = EncodeField(buf, TagSymbol, snap.Symbol)
	if snap.HasBid {
		buf = EncodeField(buf, TagBidPx, strconv.FormatFloat(snap.BidPx, 'f', -1, 64))
		buf = EncodeField(buf, TagBidSize, strconv.FormatUint(snap.BidSize, 10))
	}
	if snap.HasOffer {
		buf = EncodeField(buf, TagOfferPx, strconv.FormatFloat(snap.OfferPx, 'f', -1, 64))
		buf = EncodeField(buf, TagOfferSize, strconv.FormatUint(snap.OfferQty, 10))
	}
	return buf
}

// DecodeMarketDataSnapshot decodes a MarketDataSnapshot body (header
// already consumed by the caller).
func DecodeMarketDataSnapshot(p *Parser) (MarketDataSnapshot, error) {
	var snap MarketDataSnapshot
	var haveReqID, haveSymbol bool
	for !p.Done() {
		f, err := p.NextField()
		if err != nil {
			return MarketDataSnapshot{}, err
		}
		switch f.Tag {
		case TagMDReqID:
			snap.MDReqID = f.Value
			haveReqID = true
		case TagSymbol:
			snap.Symbol = f.Value
			haveSymbol = true
		case TagBidPx:
			px, err := strconv.ParseFloat(f.Value, 64)
			if err != nil {
				return MarketDataSnapshot{}, ErrInvalidEnum
			}
			snap.BidPx, snap.HasBid = px, true
		case TagBidSize:
			qty, err := strconv.ParseUint(f.Value, 10, 64)
			if err != nil {
				return MarketDataSnapshot{}, ErrInvalidEnum
			}
			snap.BidSize = qty
		case TagOfferPx:
			px, err := strconv.ParseFloat(f.Value, 64)
			if err != nil {
				return MarketDataSnapshot{}, ErrInvalidEnum
			}
			snap.OfferPx, snap.HasOffer = px, true
		case TagOfferSize:
			qty, err := strconv.ParseUint(f.Value, 10, 64)
			if err != nil {
				return MarketDataSnapshot{}, ErrInvalidEnum
			}
			snap.OfferQty = qty
		}
	}
	if !haveReqID || !haveSymbol {
		return MarketDataSnapshot{}, ErrMissingField
	}
	return snap, nil
}
