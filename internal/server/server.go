// Package server is the TCP front door: it accepts connections, decodes
// FIX tag=value messages off them through a tomb-supervised worker pool,
// drives the matching engine, and writes execution/reject reports back.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/common"
	"fenrir/internal/engine"
	"fenrir/internal/fix"
)

const (
	maxRecvSize      = 4 * 1024
	defaultWorkers   = 10
	defaultConnDelay = time.Second
	compID           = "FENRIR"
)

var (
	ErrImproperConversion = errors.New("server: improper type conversion")
	ErrClientDoesNotExist = errors.New("server: client does not exist")
)

// clientSession tracks a single connected client we may need to write
// reports back to.
type clientSession struct {
	conn  net.Conn
	owner string
}

// clientMessage links a raw inbound buffer to the session that sent it.
type clientMessage struct {
	address string
	body    []byte
}

// Server owns the listener, the worker pool draining connections, the
// session table and the bridge from engine trades to execution reports.
type Server struct {
	address string
	port    int
	engine  *engine.Engine
	pool    WorkerPool

	cancel context.CancelFunc

	sessionsLock sync.Mutex
	sessions     map[string]*clientSession
	byOwner      map[string]*clientSession

	inbox chan clientMessage
}

// New constructs a Server bound to address:port, driving eng with workers
// connection-handling goroutines. workers <= 0 selects defaultWorkers.
func New(address string, port int, eng *engine.Engine, workers int) *Server {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Server{
		address:  address,
		port:     port,
		engine:   eng,
		pool:     NewWorkerPool(workers),
		sessions: make(map[string]*clientSession),
		byOwner:  make(map[string]*clientSession),
		inbox:    make(chan clientMessage, 1),
	}
}

// Shutdown requests the server stop; it does not block until stopped.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections until ctx is cancelled. It blocks.
func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})
	t.Go(func() error {
		return s.tradeReporter(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// handleConnection reads exactly one message off conn and forwards the raw
// body to the session handler, which decodes and dispatches it. After a
// successful read the connection is handed back to the pool for its next
// message; on any read error the session is torn down and the connection
// closed. This is a fatal-per-worker error only if the underlying task
// type is wrong.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	closeConn := func() {
		if err := conn.Close(); err != nil {
			log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("error closing connection")
		}
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnDelay)); err != nil {
		log.Error().Err(err).Msg("failed setting connection deadline")
		closeConn()
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		closeConn()
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error reading from connection")
			s.removeSession(conn.RemoteAddr().String())
			closeConn()
			return nil
		}

		body := make([]byte, n)
		copy(body, buffer[:n])
		s.inbox <- clientMessage{address: conn.RemoteAddr().String(), body: body}

		s.pool.AddTask(conn)
	}
	return nil
}

// sessionHandler drains decoded messages and dispatches them into the
// engine.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.inbox:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("address", msg.address).Msg("error handling message")
				s.reportReject(msg.address, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	p := fix.NewParser(msg.body)
	header, err := fix.DecodeHeader(p)
	if err != nil {
		return err
	}

	switch header.MsgType {
	case fix.MsgTypeNewOrderSingle:
		order, err := fix.DecodeNewOrderSingle(p)
		if err != nil {
			return err
		}
		return s.placeOrder(msg.address, header.SenderCompID, order)

	case fix.MsgTypeOrderCancelReq:
		req, err := fix.DecodeOrderCancelRequest(p)
		if err != nil {
			return err
		}
		return s.engine.CancelOrder(common.Equities, req.OrigClOrdID)

	case fix.MsgTypeMarketDataRequest:
		req, err := fix.DecodeMarketDataRequest(p)
		if err != nil {
			return err
		}
		return s.reportSnapshot(msg.address, header.SenderCompID, req)

	default:
		return fix.ErrUnknownTag
	}
}

func (s *Server) placeOrder(address, owner string, msg fix.NewOrderSingle) error {
	s.bindOwner(address, owner)

	order := &common.Order{
		UUID:          uuid.NewString(),
		AssetType:     common.Equities,
		Ticker:        msg.Symbol,
		TotalQuantity: msg.OrderQty,
		Timestamp:     time.Now(),
		Owner:         owner,
	}
	order.Side = msg.Side
	order.OrderType = msg.Type
	order.Price = msg.Price
	order.Quantity = msg.OrderQty

	return s.engine.PlaceOrder(order)
}

// reportSnapshot answers a MarketDataRequest with the requesting asset's
// current top of book, driving cmd/feed's "log" action.
func (s *Server) reportSnapshot(address, owner string, req fix.MarketDataRequest) error {
	s.bindOwner(address, owner)

	snap, err := s.engine.Snapshot(common.Equities)
	if err != nil {
		return err
	}

	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	session, ok := s.byOwner[owner]
	if !ok {
		return ErrClientDoesNotExist
	}

	var buf []byte
	buf = fix.EncodeMarketDataSnapshot(buf, compID, owner, fix.MarketDataSnapshot{
		MDReqID:  req.MDReqID,
		Symbol:   req.Symbol,
		HasBid:   snap.HasBid,
		BidPx:    snap.BidPrice,
		BidSize:  snap.BidQty,
		HasOffer: snap.HasAsk,
		OfferPx:  snap.AskPrice,
		OfferQty: snap.AskQty,
	})
	_, err = session.conn.Write(buf)
	return err
}

// tradeReporter drains the engine's trade feed and writes execution
// reports back to both counterparties.
func (s *Server) tradeReporter(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case trade := <-s.engine.Trades():
			s.reportTrade(trade)
		}
	}
}

func (s *Server) reportTrade(trade common.Trade) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	s.writeReport(trade.Party, trade.Price, trade.MatchQty, trade.PartyRemaining == 0)
	if trade.CounterParty != nil {
		s.writeReport(trade.CounterParty, trade.Price, trade.MatchQty, trade.CounterPartyRemaining == 0)
	}
}

// writeReport sends an execution report to order's owner, if still
// connected. Caller must hold s.sessionsLock.
func (s *Server) writeReport(order *common.Order, price float64, qty uint64, filled bool) {
	session, ok := s.byOwner[order.Owner]
	if !ok {
		log.Error().Str("owner", order.Owner).Err(ErrClientDoesNotExist).Msg("cannot report trade")
		return
	}

	report := fix.NewExecutionReport(order.UUID, price, qty, filled)
	var buf []byte
	buf = fix.EncodeExecutionReport(buf, compID, session.owner, report)
	if _, err := session.conn.Write(buf); err != nil {
		log.Error().Err(err).Msg("unable to write execution report")
	}
}

func (s *Server) reportReject(address string, cause error) {
	s.sessionsLock.Lock()
	session, ok := s.sessions[address]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}

	var buf []byte
	buf = fix.EncodeBusinessMessageReject(buf, compID, session.owner, fix.BusinessMessageReject{
		RefMsgType: fix.MsgTypeNewOrderSingle,
		Text:       cause.Error(),
	})
	if _, err := session.conn.Write(buf); err != nil {
		log.Error().Err(err).Msg("unable to write reject report")
	}
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = &clientSession{conn: conn}
}

func (s *Server) removeSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if session, ok := s.sessions[address]; ok {
		delete(s.byOwner, session.owner)
	}
	delete(s.sessions, address)
}

func (s *Server) bindOwner(address, owner string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if session, ok := s.sessions[address]; ok {
		session.owner = owner
		s.byOwner[owner] = session
	}
}
