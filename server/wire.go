package server

import (
	"github.com/shopspring/decimal"

	"bourse/domain/market"
	"bourse/feed"
	"bourse/service"
)

func init() {
	// feed and report prices go out as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Request is one inbound participant message, one JSON object per
// line. Pointer fields distinguish absent from zero.
type Request struct {
	Message  string           `json:"message"`
	OrderID  *int64           `json:"orderId"`
	Side     string           `json:"side"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int64           `json:"quantity"`
	SeqID    *int64           `json:"seqId"`
}

// parseSide maps the wire spelling. Anything unrecognized counts as
// missing data, same as an absent field.
func parseSide(s string) (market.Side, error) {
	switch s {
	case "BUY":
		return market.Buy, nil
	case "SELL":
		return market.Sell, nil
	case "MARKET_BUY":
		return market.MarketBuy, nil
	case "MARKET_SELL":
		return market.MarketSell, nil
	default:
		return 0, service.ErrInsufficientData
	}
}

const (
	ReportNew      = "NEW"
	ReportCanceled = "CANCELED"
	ReportFill     = "FILL"
)

type ExecutionReport struct {
	Message  string           `json:"message"`
	OrderID  int64            `json:"orderId"`
	Report   string           `json:"report"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity int64            `json:"quantity,omitempty"`
	SeqID    int64            `json:"seqId"`
}

type ErrorReply struct {
	Error string `json:"error"`
	SeqID int64  `json:"seqId"`
}

type BookEvent struct {
	Type     string          `json:"type"`
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	SeqID    int64           `json:"seqId"`
}

type TradeEvent struct {
	Type     string          `json:"type"`
	Time     int64           `json:"time"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	SeqID    int64           `json:"seqId"`
}

// feedMessage renders a feed event for one observer connection,
// stamping that connection's own sequence number.
func feedMessage(e feed.Event, seq int64) interface{} {
	switch e.Kind {
	case feed.KindTrade:
		return TradeEvent{
			Type:     string(e.Kind),
			Time:     e.Time,
			Price:    e.Price,
			Quantity: e.Quantity,
			SeqID:    seq,
		}
	default:
		return BookEvent{
			Type:     string(e.Kind),
			Side:     e.Side,
			Price:    e.Price,
			Quantity: e.Quantity,
			SeqID:    seq,
		}
	}
}
