// Command feed is a CLI client for exercising a running exchange's wire
// protocol: it places or cancels an order and prints back any reports the
// exchange sends.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"fenrir/internal/common"
	"fenrir/internal/fix"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the exchange server")
	owner := flag.String("owner", "", "owner username (compulsory)")
	action := flag.String("action", "place", "action to perform: place, cancel, log")

	ticker := flag.String("ticker", "AAPL", "ticker symbol")
	sideStr := flag.String("side", "buy", "order side: buy or sell")
	typeStr := flag.String("type", "limit", "order type: market, limit, ioc or foc")
	price := flag.Float64("price", 100.0, "limit price")
	qty := flag.Uint64("qty", 10, "order quantity")
	clOrdID := flag.String("clordid", "", "client order id (generated if empty)")
	origClOrdID := flag.String("origclordid", "", "client order id to cancel")

	flag.Parse()

	if *owner == "" {
		fmt.Println("error: -owner is required")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)
	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		id := *clOrdID
		if id == "" {
			id = uuid.NewString()
		}
		if err := sendNewOrderSingle(conn, *owner, id, *ticker, *sideStr, *typeStr, *price, *qty); err != nil {
			log.Fatalf("failed to place order: %v", err)
		}
		fmt.Printf("-> sent %s %s order: %s %d @ %.2f (clOrdID=%s)\n", *typeStr, strings.ToUpper(*sideStr), *ticker, *qty, *price, id)

	case "cancel":
		if *origClOrdID == "" {
			log.Fatal("error: -origclordid is required for cancel")
		}
		if err := sendOrderCancelRequest(conn, *owner, *origClOrdID, *sideStr, *ticker); err != nil {
			log.Fatalf("failed to cancel order: %v", err)
		}
		fmt.Printf("-> sent cancel for %s\n", *origClOrdID)

	case "log":
		if err := sendMarketDataRequest(conn, *owner, *ticker); err != nil {
			log.Fatalf("failed to request book snapshot: %v", err)
		}
		fmt.Printf("-> requested book snapshot for %s\n", *ticker)

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl-c to exit)")
	select {}
}

func parseSide(s string) common.Side {
	if strings.ToLower(s) == "sell" {
		return common.Sell
	}
	return common.Buy
}

func parseOrderType(s string) common.OrderType {
	switch strings.ToLower(s) {
	case "market":
		return common.MarketOrder
	case "ioc":
		return common.IOCOrder
	case "foc":
		return common.FOCOrder
	default:
		return common.LimitOrder
	}
}

func sendNewOrderSingle(conn net.Conn, owner, clOrdID, ticker, sideStr, typeStr string, price float64, qty uint64) error {
	var buf []byte
	buf = fix.EncodeHeader(buf, fix.Header{
		FixVersion:   "FIX.4.2",
		MsgType:      fix.MsgTypeNewOrderSingle,
		SenderCompID: owner,
		TargetCompID: "FENRIR",
	})
	buf = fix.EncodeNewOrderSingle(buf, fix.NewOrderSingle{
		ClOrdID:  clOrdID,
		Symbol:   ticker,
		Side:     parseSide(sideStr),
		Price:    price,
		OrderQty: qty,
		Type:     parseOrderType(typeStr),
	})
	_, err := conn.Write(buf)
	return err
}

func sendOrderCancelRequest(conn net.Conn, owner, origClOrdID, sideStr, ticker string) error {
	var buf []byte
	buf = fix.EncodeHeader(buf, fix.Header{
		FixVersion:   "FIX.4.2",
		MsgType:      fix.MsgTypeOrderCancelReq,
		SenderCompID: owner,
		TargetCompID: "FENRIR",
	})
	buf = fix.EncodeOrderCancelRequest(buf, fix.OrderCancelRequest{
		ClOrdID:     uuid.NewString(),
		OrigClOrdID: origClOrdID,
		Side:        parseSide(sideStr),
		Symbol:      ticker,
	})
	_, err := conn.Write(buf)
	return err
}

func sendMarketDataRequest(conn net.Conn, owner, ticker string) error {
	var buf []byte
	buf = fix.EncodeHeader(buf, fix.Header{
		FixVersion:   "FIX.4.2",
		MsgType:      fix.MsgTypeMarketDataRequest,
		SenderCompID: owner,
		TargetCompID: "FENRIR",
	})
	buf = fix.EncodeMarketDataRequest(buf, fix.MarketDataRequest{
		MDReqID: uuid.NewString(),
		Symbol:  ticker,
	})
	_, err := conn.Write(buf)
	return err
}

// readReports continuously reads and prints whatever the server writes
// back: execution reports, business message rejects or book snapshots.
func readReports(conn net.Conn) {
	buf := make([]byte, 4*1024)
	for {
		conn.SetReadDeadline(time.Time{})
		n, err := conn.Read(buf)
		if err != nil {
			fmt.Printf("\nconnection closed: %v\n", err)
			return
		}

		p := fix.NewParser(buf[:n])
		header, err := fix.DecodeHeader(p)
		if err != nil {
			fmt.Printf("\n[unparseable report] %v\n", err)
			continue
		}
		printReport(header, p)
	}
}

func printReport(header fix.Header, p *fix.Parser) {
	switch header.MsgType {
	case fix.MsgTypeExecutionReport:
		fields, err := p.Fields()
		if err != nil {
			fmt.Printf("\n[malformed execution report] %v\n", err)
			return
		}
		fmt.Printf("\n[execution report] %v\n", fields)
	case fix.MsgTypeBusinessReject:
		fields, err := p.Fields()
		if err != nil {
			fmt.Printf("\n[malformed reject] %v\n", err)
			return
		}
		fmt.Printf("\n[reject] %v\n", fields)
	case fix.MsgTypeMarketDataSnapshot:
		snap, err := fix.DecodeMarketDataSnapshot(p)
		if err != nil {
			fmt.Printf("\n[malformed book snapshot] %v\n", err)
			return
		}
		fmt.Printf("\n[book snapshot] %s", snap.Symbol)
		if snap.HasBid {
			fmt.Printf(" bid=%.2f x %d", snap.BidPx, snap.BidSize)
		}
		if snap.HasOffer {
			fmt.Printf(" ask=%.2f x %d", snap.OfferPx, snap.OfferQty)
		}
		fmt.Println()
	default:
		fmt.Printf("\n[unknown report type %s]\n", header.MsgType)
	}
}
