// Package journal persists the full order and trade history plus the
// feed outbox in a single pebble database. It is a storage
// collaborator, not a durability guarantee: matching reads nothing
// back from it.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/shopspring/decimal"

	"bourse/domain/market"
)

const (
	prefixOrder  = "order/"
	prefixTrade  = "trade/"
	prefixOutbox = "outbox/"
)

type DB struct {
	db *pebble.DB

	orderSeq  atomic.Uint64
	tradeSeq  atomic.Uint64
	outboxSeq atomic.Uint64
}

// Create initializes the database directory and closes it again.
// Backs the --create-db flag.
func Create(dir string) error {
	d, err := Open(dir)
	if err != nil {
		return err
	}
	log.Printf("[journal] initialized %s", dir)
	return d.Close()
}

func Open(dir string) (*DB, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}

	d := &DB{db: db}
	for _, r := range []struct {
		prefix string
		seq    *atomic.Uint64
	}{
		{prefixOrder, &d.orderSeq},
		{prefixTrade, &d.tradeSeq},
		{prefixOutbox, &d.outboxSeq},
	} {
		last, err := lastSeq(db, r.prefix)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		r.seq.Store(last)
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// ──────────────────────────────────────────────────────────
// History
// ──────────────────────────────────────────────────────────

type orderRecord struct {
	Event        string          `json:"event"`
	Seq          uint64          `json:"seq"`
	Code         int64           `json:"code"`
	Side         string          `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int64           `json:"quantity"`
	RegisteredAt int64           `json:"registeredAt"`
	Participant  string          `json:"participant,omitempty"`
}

type tradeRecord struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Time     int64           `json:"time"`
	BuySeq   uint64          `json:"buySeq"`
	SellSeq  uint64          `json:"sellSeq"`
}

// LogOrder appends one life-cycle event (create, fork, deactivate).
func (d *DB) LogOrder(event string, o *market.Order) error {
	rec := orderRecord{
		Event:        event,
		Seq:          o.Seq,
		Code:         o.Code,
		Side:         o.Side.String(),
		Price:        o.Price,
		Quantity:     o.Quantity,
		RegisteredAt: o.RegisteredAt.UnixNano(),
	}
	if o.Participant != nil {
		rec.Participant = o.Participant.ID.String()
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.db.Set(keyFor(prefixOrder, d.orderSeq.Add(1)), val, pebble.Sync)
}

func (d *DB) LogTrade(t *market.Trade) error {
	val, err := json.Marshal(tradeRecord{
		Price:    t.Price,
		Quantity: t.Quantity,
		Time:     t.Time.Unix(),
		BuySeq:   t.Buy.Seq,
		SellSeq:  t.Sell.Seq,
	})
	if err != nil {
		return err
	}
	return d.db.Set(keyFor(prefixTrade, d.tradeSeq.Add(1)), val, pebble.Sync)
}

// ──────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────

func keyFor(prefix string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, seq))
}

func parseKey(prefix string, key []byte) (uint64, error) {
	var seq uint64
	if _, err := fmt.Sscanf(string(key[len(prefix):]), "%d", &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func lastSeq(db *pebble.DB, prefix string) (uint64, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "~"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(prefix, iter.Key())
}

var errShortRecord = errors.New("journal: truncated outbox record")
