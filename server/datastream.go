package server

import (
	"encoding/json"
	"log"
	"net"
	"sync"

	"bourse/feed"
)

// Datastream is the registry of public observer connections. Each
// member sees every event exactly once, stamped with that
// connection's own ascending seqId. Joins and leaves take effect
// immediately and never disturb an in-flight publish.
type Datastream struct {
	mu    sync.Mutex
	conns map[*observer]struct{}
}

type observer struct {
	conn net.Conn
	enc  *json.Encoder
	seq  int64
}

func NewDatastream() *Datastream {
	return &Datastream{conns: make(map[*observer]struct{})}
}

func (d *Datastream) Join(conn net.Conn) *observer {
	o := &observer{conn: conn, enc: json.NewEncoder(conn)}
	d.mu.Lock()
	d.conns[o] = struct{}{}
	d.mu.Unlock()
	log.Printf("[datastream] observer joined: %s", conn.RemoteAddr())
	return o
}

func (d *Datastream) Leave(o *observer) {
	d.mu.Lock()
	delete(d.conns, o)
	d.mu.Unlock()
	_ = o.conn.Close()
}

func (d *Datastream) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// Publish fans the event out to the current membership. A write
// failure drops only that observer.
func (d *Datastream) Publish(e feed.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for o := range d.conns {
		o.seq++
		if err := o.enc.Encode(feedMessage(e, o.seq)); err != nil {
			log.Printf("[datastream] dropping observer %s: %v", o.conn.RemoteAddr(), err)
			delete(d.conns, o)
			_ = o.conn.Close()
		}
	}
}
