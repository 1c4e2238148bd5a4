package service

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bourse/domain/market"
	"bourse/engine"
	"bourse/store"
)

// Protocol-visible failures. The wording is part of the wire contract;
// sessions surface these verbatim as {"error": ...} replies.
var (
	ErrInsufficientData = errors.New("Insufficient data.")
	ErrDuplicateOrder   = errors.New("Order already exists.")
	ErrUnknownOrder     = errors.New("Order does not exist.")
	ErrUnknownAction    = errors.New("Unknown action.")
)

/*
Exchange is the single write entry point into the market. All
coordination between the store, the matching engine and the journal
happens here; transports (TCP sessions, gRPC) stay thin.

Concurrency contract: one logical inbound message must run to
completion (validation, mutation and the whole drain loop) before
the next. Sessions take Lock for the span of one message and call the
caller-locked operations below inside it. Connect, Disconnect and the
read-side queries lock for themselves.
*/
type Exchange struct {
	mu sync.Mutex

	store  *store.Store
	engine *engine.Engine
}

func NewExchange(s *store.Store) *Exchange {
	return &Exchange{
		store:  s,
		engine: engine.New(s),
	}
}

// Lock serializes one whole inbound message.
func (x *Exchange) Lock() { x.mu.Lock() }

func (x *Exchange) Unlock() { x.mu.Unlock() }

// ──────────────────────────────────────────────────────────
// Connection lifecycle (self-locking)
// ──────────────────────────────────────────────────────────

func (x *Exchange) Connect() *market.Participant {
	x.mu.Lock()
	defer x.mu.Unlock()

	p := market.NewParticipant()
	log.Printf("[exchange] connected: %s", p)
	return p
}

// Disconnect deactivates every active order of p in one commit.
// Orders stay in the store as history; fills discovered later simply
// find no session to notify.
func (x *Exchange) Disconnect(p *market.Participant) {
	x.mu.Lock()
	defer x.mu.Unlock()

	b := x.store.Batch()
	p.Deactivate(b)
	b.Commit()
	log.Printf("[exchange] disconnected: %s", p)
}

// ──────────────────────────────────────────────────────────
// Commands (caller holds Lock)
// ──────────────────────────────────────────────────────────

// CreateOrder validates the code against every currently active order
// (the code space is global, not per participant) and inserts.
func (x *Exchange) CreateOrder(p *market.Participant, code int64, side market.Side, price decimal.Decimal, quantity int64) (*market.Order, error) {
	if x.store.ActiveByCode(code) != nil {
		return nil, ErrDuplicateOrder
	}

	o := &market.Order{
		Code:         code,
		Side:         side,
		Price:        price,
		Quantity:     quantity,
		Active:       true,
		RegisteredAt: time.Now(),
		Participant:  p,
	}
	x.store.Insert(o)
	log.Printf("[exchange] order created: %s", o)
	return o, nil
}

// CancelOrder deactivates the active order carrying code, provided it
// belongs to p. A foreign code fails exactly like a missing one.
func (x *Exchange) CancelOrder(p *market.Participant, code int64) (*market.Order, error) {
	o := x.store.ActiveByCode(code)
	if o == nil || o.Participant != p {
		return nil, ErrUnknownOrder
	}
	x.store.Deactivate(o)
	log.Printf("[exchange] order canceled: code=%d", code)
	return o, nil
}

// Drain runs the engine until it finds no match, returning the trades
// in discovery order.
func (x *Exchange) Drain() []*market.Trade {
	var trades []*market.Trade
	for {
		t, ok := x.engine.AttemptTrade()
		if !ok {
			return trades
		}
		log.Printf("[exchange] trade: %s", t)
		trades = append(trades, t)
	}
}

// ──────────────────────────────────────────────────────────
// Queries (self-locking; for the ops API)
// ──────────────────────────────────────────────────────────

// OrderSummary is the read-only view served over gRPC.
type OrderSummary struct {
	Code         int64           `json:"code"`
	Side         string          `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int64           `json:"quantity"`
	RegisteredAt int64           `json:"registeredAt"`
}

func (x *Exchange) SnapshotActive() []OrderSummary {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]OrderSummary, 0, 64)
	x.store.WalkActive(func(o *market.Order) {
		out = append(out, OrderSummary{
			Code:         o.Code,
			Side:         o.Side.String(),
			Price:        o.Price,
			Quantity:     o.Quantity,
			RegisteredAt: o.RegisteredAt.Unix(),
		})
	})
	return out
}

func (x *Exchange) Stats() store.Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.store.Stats()
}
