package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS exposes the public feed as a websocket mirror of the
// datastream. Each connection gets its own seqId counter; a slow
// consumer drops events instead of stalling the exchange.
func (srv *Server) ServeWS(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/feed", srv.handleFeedWS)
	log.Printf("[server] websocket feed on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (srv *Server) handleFeedWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := srv.ws.Subscribe(32)
	defer srv.ws.Unsubscribe(sub)

	var seq int64
	for e := range sub.ch {
		seq++
		if err := conn.WriteJSON(feedMessage(e, seq)); err != nil {
			return
		}
	}
}
