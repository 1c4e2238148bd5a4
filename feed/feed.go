// Package feed defines the anonymized public event stream: order-book
// deltas for resting limit orders and trade prints. The same events
// fan out to datastream connections, websocket observers and the
// Kafka outbox.
package feed

import (
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"bourse/domain/market"
)

type Kind string

const (
	KindOrderbook Kind = "orderbook"
	KindTrade     Kind = "trade"
)

// Event carries no participant identity.
type Event struct {
	Kind Kind

	// Side is set for orderbook deltas only ("bid" / "ask").
	Side string

	// Time is set for trades only, epoch seconds.
	Time int64

	Price    decimal.Decimal
	Quantity int64
}

func BookDelta(o *market.Order) Event {
	return Event{
		Kind:     KindOrderbook,
		Side:     o.Side.Datastream(),
		Price:    o.Price,
		Quantity: o.Quantity,
	}
}

func TradePrint(t *market.Trade) Event {
	return Event{
		Kind:     KindTrade,
		Time:     t.Time.Unix(),
		Price:    t.Price,
		Quantity: t.Quantity,
	}
}

// ──────────────────────────────────────────────────────────
// Outbox encoding
// ──────────────────────────────────────────────────────────

// Marshal encodes an event as a protobuf Struct for the outbox and
// the Kafka feed. The schema-free well-known type keeps consumers
// decoupled from this module.
func Marshal(e Event) ([]byte, error) {
	// the price travels as its decimal string so the outbox stays as
	// exact as the NDJSON surfaces
	fields := map[string]interface{}{
		"type":     string(e.Kind),
		"price":    e.Price.String(),
		"quantity": e.Quantity,
	}
	switch e.Kind {
	case KindOrderbook:
		fields["side"] = e.Side
	case KindTrade:
		fields["time"] = e.Time
	default:
		return nil, fmt.Errorf("feed: unknown event kind %q", e.Kind)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func Unmarshal(data []byte) (Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Event{}, err
	}
	m := s.AsMap()

	e := Event{Kind: Kind(str(m["type"]))}
	price, err := decimal.NewFromString(str(m["price"]))
	if err != nil {
		return Event{}, fmt.Errorf("feed: bad price: %w", err)
	}
	e.Price = price
	e.Quantity = int64(num(m["quantity"]))
	switch e.Kind {
	case KindOrderbook:
		e.Side = str(m["side"])
	case KindTrade:
		e.Time = int64(num(m["time"]))
	default:
		return Event{}, fmt.Errorf("feed: unknown event kind %q", e.Kind)
	}
	return e, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func num(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}
