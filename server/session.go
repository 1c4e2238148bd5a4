package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"

	"github.com/shopspring/decimal"

	"bourse/domain/market"
	"bourse/feed"
	"bourse/service"
)

/*
Session is the per-connection protocol state machine. A connection is
Connected on accept, Active once its participant identity and
sequence counters exist, and Disconnected, terminally, when the
read loop ends, at which point every active order of the participant
is deactivated and the session leaves the registry.

Both counters start at zero. incomingSeq advances on every inbound
message, valid or not; when a message carries an explicit seqId it
must equal the advanced counter. outgoingSeq stamps every message
written to this connection.
*/
type Session struct {
	srv  *Server
	conn net.Conn
	enc  *json.Encoder

	participant *market.Participant

	incomingSeq int64
	outgoingSeq int64
}

func newSession(srv *Server, conn net.Conn) *Session {
	return &Session{
		srv:         srv,
		conn:        conn,
		enc:         json.NewEncoder(conn),
		participant: srv.ex.Connect(),
	}
}

func (s *Session) serve() {
	defer s.close()

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		s.handleLine(line)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[session] %s read: %v", s.participant.ID, err)
	}
}

func (s *Session) close() {
	s.srv.removeSession(s)
	s.srv.ex.Disconnect(s.participant)
	_ = s.conn.Close()
}

// handleLine processes one message to full completion: validation,
// store mutation, reply, and the entire matching drain loop, all
// inside the exchange lock.
func (s *Session) handleLine(line []byte) {
	s.srv.ex.Lock()
	defer s.srv.ex.Unlock()

	s.incomingSeq++

	var req Request
	switch err := json.Unmarshal(line, &req); {
	case err != nil:
		log.Printf("[session] %s bad input: %v", s.participant.ID, err)
		s.sendError(service.ErrInsufficientData.Error())

	case req.SeqID != nil && *req.SeqID != s.incomingSeq:
		s.sendError(fmt.Sprintf("Bad seq id, expected %d", s.incomingSeq))

	default:
		s.dispatch(req)
	}

	// fill cascade; runs after every message, errors included
	for _, t := range s.srv.ex.Drain() {
		s.srv.notifyFill(t)
		s.srv.publishFeed(feed.TradePrint(t))
	}
}

func (s *Session) dispatch(req Request) {
	switch req.Message {
	case "createOrder":
		s.createOrder(req)
	case "cancelOrder":
		s.cancelOrder(req)
	default:
		log.Printf("[session] %s unknown action: %q", s.participant.ID, req.Message)
		s.sendError(service.ErrUnknownAction.Error())
	}
}

func (s *Session) createOrder(req Request) {
	if req.OrderID == nil || req.Quantity == nil || *req.Quantity <= 0 {
		s.sendError(service.ErrInsufficientData.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	var price decimal.Decimal
	if side.IsLimit() {
		if req.Price == nil {
			s.sendError(service.ErrInsufficientData.Error())
			return
		}
		price = *req.Price
	}

	o, err := s.srv.ex.CreateOrder(s.participant, *req.OrderID, side, price, *req.Quantity)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	s.sendReport(ReportNew, o.Code, nil, 0)
	if o.Side.IsLimit() {
		s.srv.publishFeed(feed.BookDelta(o))
	}
}

func (s *Session) cancelOrder(req Request) {
	if req.OrderID == nil {
		s.sendError(service.ErrInsufficientData.Error())
		return
	}
	o, err := s.srv.ex.CancelOrder(s.participant, *req.OrderID)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.sendReport(ReportCanceled, o.Code, nil, 0)
}

// ──────────────────────────────────────────────────────────
// Outbound
// ──────────────────────────────────────────────────────────

func (s *Session) sendReport(report string, code int64, price *decimal.Decimal, quantity int64) {
	s.outgoingSeq++
	s.write(ExecutionReport{
		Message:  "executionReport",
		OrderID:  code,
		Report:   report,
		Price:    price,
		Quantity: quantity,
		SeqID:    s.outgoingSeq,
	})
}

func (s *Session) sendError(msg string) {
	s.outgoingSeq++
	s.write(ErrorReply{Error: msg, SeqID: s.outgoingSeq})
}

func (s *Session) write(v interface{}) {
	if err := s.enc.Encode(v); err != nil {
		log.Printf("[session] %s write: %v", s.participant.ID, err)
	}
}
