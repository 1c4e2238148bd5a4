package journal

import (
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"
)

// The outbox decouples feed publication from message processing: the
// server appends the encoded event here inside the processing flow,
// and the broadcaster job drains it towards Kafka on its own clock.

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

type OutboxRecord struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeOutbox(r OutboxRecord) []byte {
	buf := make([]byte, 1+4+8+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeOutbox(b []byte) (OutboxRecord, error) {
	if len(b) < 13 {
		return OutboxRecord{}, errShortRecord
	}
	return OutboxRecord{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     b[13:],
	}, nil
}

// OutboxAdd appends a new pending feed event.
func (d *DB) OutboxAdd(payload []byte) (uint64, error) {
	seq := d.outboxSeq.Add(1)
	rec := OutboxRecord{State: StateNew, Payload: payload}
	if err := d.db.Set(keyFor(prefixOutbox, seq), encodeOutbox(rec), pebble.Sync); err != nil {
		return 0, err
	}
	return seq, nil
}

// OutboxMark transitions a record and stamps the attempt time.
func (d *DB) OutboxMark(seq uint64, state State, retries uint32) error {
	key := keyFor(prefixOutbox, seq)
	val, closer, err := d.db.Get(key)
	if err != nil {
		return err
	}
	rec, err := decodeOutbox(val)
	if err == nil {
		// the decoded payload aliases pebble memory, copy before Close
		rec.Payload = append([]byte(nil), rec.Payload...)
	}
	_ = closer.Close()
	if err != nil {
		return err
	}

	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return d.db.Set(key, encodeOutbox(rec), pebble.Sync)
}

// OutboxScan visits every record in the given state, in sequence
// order.
func (d *DB) OutboxScan(state State, fn func(rec OutboxRecord) error) error {
	iter, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixOutbox),
		UpperBound: []byte(prefixOutbox + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeOutbox(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}
		if rec.Seq, err = parseKey(prefixOutbox, iter.Key()); err != nil {
			return err
		}
		// the payload aliases iterator memory, copy before yielding
		rec.Payload = append([]byte(nil), rec.Payload...)
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}
