// Package broadcaster implements the background job that drains the
// feed outbox towards Kafka. It scans for unpublished records on a
// fixed interval, so a broker outage never blocks message processing.
package broadcaster

import (
	"context"
	"log"
	"time"

	"github.com/IBM/sarama"

	"bourse/infra/journal"
)

// staleSentAfter is how long a record may sit in SENT without
// reaching a terminal state before the job assumes the process died
// mid-send and retries it.
const staleSentAfter = time.Minute

type Broadcaster struct {
	db         *journal.DB
	producer   sarama.SyncProducer
	topic      string
	interval   time.Duration
	staleAfter time.Duration
}

func New(db *journal.DB, brokers []string, topic string, interval time.Duration) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		db:         db,
		producer:   producer,
		topic:      topic,
		interval:   interval,
		staleAfter: staleSentAfter,
	}, nil
}

func (b *Broadcaster) Run(ctx context.Context) {
	log.Printf("[broadcaster] started, topic=%s interval=%s", b.topic, b.interval)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

// flush publishes pending records, retries earlier failures, and
// re-sweeps records stranded in SENT by a crash between the mark and
// the send.
func (b *Broadcaster) flush() {
	for _, state := range []journal.State{journal.StateNew, journal.StateFailed} {
		err := b.db.OutboxScan(state, func(rec journal.OutboxRecord) error {
			b.publish(rec)
			return nil
		})
		if err != nil {
			log.Printf("[broadcaster] scan %s: %v", state, err)
		}
	}

	err := b.db.OutboxScan(journal.StateSent, func(rec journal.OutboxRecord) error {
		if time.Since(time.Unix(0, rec.LastAttempt)) >= b.staleAfter {
			log.Printf("[broadcaster] retrying stale SENT seq=%d", rec.Seq)
			b.publish(rec)
		}
		return nil
	})
	if err != nil {
		log.Printf("[broadcaster] scan %s: %v", journal.StateSent, err)
	}
}

func (b *Broadcaster) publish(rec journal.OutboxRecord) {
	_ = b.db.OutboxMark(rec.Seq, journal.StateSent, rec.Retries)

	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Value: sarama.ByteEncoder(rec.Payload),
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		log.Printf("[broadcaster] send seq=%d: %v", rec.Seq, err)
		_ = b.db.OutboxMark(rec.Seq, journal.StateFailed, rec.Retries+1)
		return
	}

	_ = b.db.OutboxMark(rec.Seq, journal.StateAcked, rec.Retries)
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
