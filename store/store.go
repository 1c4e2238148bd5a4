package store

import (
	"log"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"bourse/domain/market"
)

// SortKey selects the primary order of a query; registration time
// ascending is always the tie break.
type SortKey int

const (
	ByTime SortKey = iota
	ByPriceAsc
	ByPriceDesc
)

// Query describes the single access pattern the matching engine
// needs: first active order of a side, optionally price-bounded,
// under one sort key.
type Query struct {
	Side     market.Side
	MaxPrice *decimal.Decimal
	Sort     SortKey
}

// Journal mirrors committed mutations into durable storage.
// Best-effort: the store is the source of truth for matching.
type Journal interface {
	LogOrder(event string, o *market.Order) error
	LogTrade(t *market.Trade) error
}

/*
Store holds every order ever inserted, active or not. It is owned by
the single processing flow (one inbound message runs to completion
before the next), so reads need no locking; the only atomicity it
provides is the Batch commit used to apply a whole trade at once.

Lookups are linear scans with explicit comparators. The active set is
small and scanned front to back; an order that went inactive stays in
the slice as history.
*/
type Store struct {
	orders []*market.Order

	seq    atomic.Uint64
	active int
	trades uint64

	journal Journal
}

func New() *Store {
	return &Store{}
}

// Attach wires a journal. Call before traffic; mutations committed
// earlier are not replayed into it.
func (s *Store) Attach(j Journal) {
	s.journal = j
}

// ──────────────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────────────

// Insert registers a new order and links it to its owner.
func (s *Store) Insert(o *market.Order) {
	s.insert(o)
	s.logOrder("create", o)
}

// Deactivate retires an order outside of a trade (cancel, owner
// disconnect). No-op when already inactive.
func (s *Store) Deactivate(o *market.Order) {
	if !o.Active {
		return
	}
	o.Active = false
	s.active--
	s.logOrder("deactivate", o)
}

func (s *Store) insert(o *market.Order) {
	o.Seq = s.seq.Add(1)
	s.orders = append(s.orders, o)
	if o.Active {
		s.active++
	}
	if o.Participant != nil {
		o.Participant.Attach(o)
	}
}

// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────

// First returns the best active order for q, or nil.
func (s *Store) First(q Query) *market.Order {
	var best *market.Order
	for _, o := range s.orders {
		if !o.Active || o.Side != q.Side {
			continue
		}
		if q.MaxPrice != nil && o.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		if best == nil || better(q.Sort, o, best) {
			best = o
		}
	}
	return best
}

// better reports whether a beats b under the sort key. Ties fall to
// earliest registration, then insertion order; forks keep their
// original RegisteredAt, so a remainder never loses its place.
func better(k SortKey, a, b *market.Order) bool {
	if k != ByTime {
		switch c := a.Price.Cmp(b.Price); {
		case c < 0:
			return k == ByPriceAsc
		case c > 0:
			return k == ByPriceDesc
		}
	}
	if !a.RegisteredAt.Equal(b.RegisteredAt) {
		return a.RegisteredAt.Before(b.RegisteredAt)
	}
	return a.Seq < b.Seq
}

// ActiveByCode finds the active order carrying a code, regardless of
// owner. At most one exists; codes are only released by deactivation.
func (s *Store) ActiveByCode(code int64) *market.Order {
	for _, o := range s.orders {
		if o.Active && o.Code == code {
			return o
		}
	}
	return nil
}

// WalkActive visits every active order in insertion order.
func (s *Store) WalkActive(fn func(*market.Order)) {
	for _, o := range s.orders {
		if o.Active {
			fn(o)
		}
	}
}

type Stats struct {
	Orders uint64
	Active uint64
	Trades uint64
}

func (s *Store) Stats() Stats {
	return Stats{
		Orders: uint64(len(s.orders)),
		Active: uint64(s.active),
		Trades: s.trades,
	}
}

// ──────────────────────────────────────────────────────────
// Batch
// ──────────────────────────────────────────────────────────

// Batch collects the mutations of one trade so a lookup never
// observes a half-applied result. With the store single-flow this is
// a grouping of journal writes plus a single point of application.
type Batch struct {
	s *Store

	deactivate []*market.Order
	insert     []*market.Order
	trade      *market.Trade
}

func (s *Store) Batch() *Batch {
	return &Batch{s: s}
}

func (b *Batch) Deactivate(o *market.Order) {
	b.deactivate = append(b.deactivate, o)
}

// Insert schedules a fork remainder.
func (b *Batch) Insert(o *market.Order) {
	b.insert = append(b.insert, o)
}

// Link cross-references the two consumed orders.
func (b *Batch) Link(buy, sell *market.Order) {
	buy.TradedTo = sell
	sell.TradedTo = buy
}

func (b *Batch) Trade(t *market.Trade) {
	b.trade = t
}

// Commit applies every scheduled mutation, then mirrors the batch to
// the journal.
func (b *Batch) Commit() {
	for _, o := range b.deactivate {
		if o.Active {
			o.Active = false
			b.s.active--
		}
	}
	for _, o := range b.insert {
		b.s.insert(o)
	}
	if b.trade != nil {
		b.s.trades++
	}

	for _, o := range b.deactivate {
		b.s.logOrder("deactivate", o)
	}
	for _, o := range b.insert {
		b.s.logOrder("fork", o)
	}
	if b.trade != nil && b.s.journal != nil {
		if err := b.s.journal.LogTrade(b.trade); err != nil {
			log.Printf("[store] journal trade: %v", err)
		}
	}
}

func (s *Store) logOrder(event string, o *market.Order) {
	if s.journal == nil {
		return
	}
	if err := s.journal.LogOrder(event, o); err != nil {
		log.Printf("[store] journal %s: %v", event, err)
	}
}
