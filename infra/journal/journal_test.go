package journal

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bourse/domain/market"
)

func open(t *testing.T, dir string) *DB {
	t.Helper()
	d, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return d
}

func TestLogOrderAndTrade(t *testing.T) {
	d := open(t, t.TempDir())
	defer d.Close()

	buy := &market.Order{
		Seq: 1, Code: 100, Side: market.Buy,
		Price: decimal.NewFromInt(145), Quantity: 10,
		Active: true, RegisteredAt: time.Unix(1700000000, 0),
		Participant: market.NewParticipant(),
	}
	sell := &market.Order{
		Seq: 2, Code: 200, Side: market.Sell,
		Price: decimal.NewFromInt(145), Quantity: 10,
		Active: true, RegisteredAt: time.Unix(1700000001, 0),
	}

	if err := d.LogOrder("create", buy); err != nil {
		t.Fatalf("log order: %v", err)
	}
	if err := d.LogOrder("deactivate", buy); err != nil {
		t.Fatalf("log order: %v", err)
	}
	err := d.LogTrade(&market.Trade{
		Price: buy.Price, Quantity: 10,
		Time: time.Unix(1700000002, 0),
		Buy:  buy, Sell: sell,
	})
	if err != nil {
		t.Fatalf("log trade: %v", err)
	}

	if got := d.orderSeq.Load(); got != 2 {
		t.Fatalf("order seq: want 2, got %d", got)
	}
	if got := d.tradeSeq.Load(); got != 1 {
		t.Fatalf("trade seq: want 1, got %d", got)
	}
}

func TestSequencesSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	d := open(t, dir)
	o := &market.Order{Seq: 1, Code: 100, Side: market.Buy, Price: decimal.NewFromInt(1)}
	for i := 0; i < 3; i++ {
		if err := d.LogOrder("create", o); err != nil {
			t.Fatalf("log order: %v", err)
		}
	}
	if _, err := d.OutboxAdd([]byte("payload")); err != nil {
		t.Fatalf("outbox add: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	d = open(t, dir)
	defer d.Close()
	if got := d.orderSeq.Load(); got != 3 {
		t.Fatalf("order seq after reopen: want 3, got %d", got)
	}
	seq, err := d.OutboxAdd([]byte("next"))
	if err != nil {
		t.Fatalf("outbox add: %v", err)
	}
	if seq != 2 {
		t.Fatalf("outbox seq after reopen: want 2, got %d", seq)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	d := open(t, t.TempDir())
	defer d.Close()

	var seqs []uint64
	for i := 0; i < 3; i++ {
		seq, err := d.OutboxAdd([]byte(fmt.Sprintf("event-%d", i)))
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		seqs = append(seqs, seq)
	}

	var pending []OutboxRecord
	err := d.OutboxScan(StateNew, func(rec OutboxRecord) error {
		pending = append(pending, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("want 3 pending, got %d", len(pending))
	}
	for i, rec := range pending {
		if rec.Seq != seqs[i] {
			t.Fatalf("scan order: want seq %d, got %d", seqs[i], rec.Seq)
		}
		if want := []byte(fmt.Sprintf("event-%d", i)); !bytes.Equal(rec.Payload, want) {
			t.Fatalf("payload: want %q, got %q", want, rec.Payload)
		}
	}

	if err := d.OutboxMark(seqs[0], StateAcked, 0); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := d.OutboxMark(seqs[1], StateFailed, 1); err != nil {
		t.Fatalf("mark: %v", err)
	}

	count := func(state State) int {
		n := 0
		if err := d.OutboxScan(state, func(OutboxRecord) error { n++; return nil }); err != nil {
			t.Fatalf("scan %s: %v", state, err)
		}
		return n
	}
	if got := count(StateNew); got != 1 {
		t.Fatalf("NEW: want 1, got %d", got)
	}
	if got := count(StateAcked); got != 1 {
		t.Fatalf("ACKED: want 1, got %d", got)
	}
	if got := count(StateFailed); got != 1 {
		t.Fatalf("FAILED: want 1, got %d", got)
	}

	// marking keeps the payload and bumps the attempt metadata
	var failed OutboxRecord
	if err := d.OutboxScan(StateFailed, func(rec OutboxRecord) error {
		failed = rec
		return nil
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !bytes.Equal(failed.Payload, []byte("event-1")) {
		t.Fatalf("payload lost on mark: %q", failed.Payload)
	}
	if failed.Retries != 1 || failed.LastAttempt == 0 {
		t.Fatalf("attempt metadata: %+v", failed)
	}
}

func TestDecodeOutboxShort(t *testing.T) {
	if _, err := decodeOutbox([]byte{1, 2, 3}); err != errShortRecord {
		t.Fatalf("want errShortRecord, got %v", err)
	}
}
