package server

import (
	"io"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"

	"bourse/domain/market"
	"bourse/feed"
	"bourse/service"
)

// FeedSink receives every published feed event, encoded, for
// out-of-process delivery. Satisfied by *journal.DB.
type FeedSink interface {
	OutboxAdd(payload []byte) (uint64, error)
}

// Server owns the two listener roles and the registries around the
// exchange: participant sessions by identity, public observers, and
// the websocket hub.
type Server struct {
	ex *service.Exchange
	ds *Datastream
	ws *hub

	sink FeedSink // optional

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func New(ex *service.Exchange) *Server {
	return &Server{
		ex:       ex,
		ds:       NewDatastream(),
		ws:       newHub(),
		sessions: make(map[uuid.UUID]*Session),
	}
}

// SetFeedSink attaches the outbox. Call before serving.
func (srv *Server) SetFeedSink(sink FeedSink) {
	srv.sink = sink
}

func (srv *Server) Datastream() *Datastream {
	return srv.ds
}

// ──────────────────────────────────────────────────────────
// Listener loops
// ──────────────────────────────────────────────────────────

func (srv *Server) ServeParticipants(l net.Listener) error {
	log.Printf("[server] participants on %s", l.Addr())
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}

		sess := newSession(srv, conn)
		srv.addSession(sess)
		go sess.serve()
	}
}

// ServeDatastream accepts public observers. The feed is one-way;
// anything an observer writes is discarded, and EOF removes it.
func (srv *Server) ServeDatastream(l net.Listener) error {
	log.Printf("[server] datastream on %s", l.Addr())
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}

		o := srv.ds.Join(conn)
		go func() {
			_, _ = io.Copy(io.Discard, conn)
			srv.ds.Leave(o)
		}()
	}
}

// ──────────────────────────────────────────────────────────
// Session registry
// ──────────────────────────────────────────────────────────

func (srv *Server) addSession(s *Session) {
	srv.mu.Lock()
	srv.sessions[s.participant.ID] = s
	srv.mu.Unlock()
}

func (srv *Server) removeSession(s *Session) {
	srv.mu.Lock()
	delete(srv.sessions, s.participant.ID)
	srv.mu.Unlock()
}

func (srv *Server) lookup(id uuid.UUID) *Session {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.sessions[id]
}

// ──────────────────────────────────────────────────────────
// Fan-out
// ──────────────────────────────────────────────────────────

// notifyFill reports one trade to both owning sessions. An owner that
// already disconnected is skipped, never an error.
func (srv *Server) notifyFill(t *market.Trade) {
	srv.fillTo(t.Buyer(), t.Buy, t)
	srv.fillTo(t.Seller(), t.Sell, t)
}

func (srv *Server) fillTo(p *market.Participant, o *market.Order, t *market.Trade) {
	if p == nil {
		return
	}
	sess := srv.lookup(p.ID)
	if sess == nil {
		log.Printf("[server] fill skipped, %s is gone", p.ID)
		return
	}
	price := t.Price
	sess.sendReport(ReportFill, o.Code, &price, t.Quantity)
}

// publishFeed pushes one anonymized event to every observer surface.
// Called inside the exchange lock, so observers see events in engine
// order.
func (srv *Server) publishFeed(e feed.Event) {
	srv.ds.Publish(e)
	srv.ws.Broadcast(e)

	if srv.sink == nil {
		return
	}
	payload, err := feed.Marshal(e)
	if err != nil {
		log.Printf("[server] feed encode: %v", err)
		return
	}
	if _, err := srv.sink.OutboxAdd(payload); err != nil {
		log.Printf("[server] feed outbox: %v", err)
	}
}
