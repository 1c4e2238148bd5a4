package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side int

const (
	Buy Side = iota
	Sell
	MarketBuy
	MarketSell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case MarketBuy:
		return "market_buy"
	case MarketSell:
		return "market_sell"
	default:
		return "unknown"
	}
}

// IsLimit reports whether orders on this side carry a price.
func (s Side) IsLimit() bool {
	return s == Buy || s == Sell
}

func (s Side) IsBuy() bool {
	return s == Buy || s == MarketBuy
}

// Datastream translates a limit side into its public feed name
// (buy -> "bid", sell -> "ask"). Market sides never appear on the feed.
func (s Side) Datastream() string {
	switch s {
	case Buy:
		return "bid"
	case Sell:
		return "ask"
	default:
		return ""
	}
}

/*
Order is the unit of the book.

An order is never deleted: trading and cancellation both flip Active
to false, permanently. A partial fill is represented by a NEW order
(the fork) carrying the same Code, Side, Price, Participant and,
critically, the original RegisteredAt, so that time priority survives
the split. The consumed order is linked to its counter order via
TradedTo, exactly once.
*/
type Order struct {
	// Seq is the store-assigned monotonic identity, used as the
	// journal key. Code is the externally supplied identifier and is
	// unique only among currently active orders.
	Seq  uint64
	Code int64

	Side Side

	// Price is meaningful only when Side.IsLimit().
	Price    decimal.Decimal
	Quantity int64

	Active       bool
	RegisteredAt time.Time

	// Participant is nil-able history once the owner disconnects.
	Participant *Participant

	// TradedTo points at the counter order once this order has been
	// consumed by a trade. Never reassigned.
	TradedTo *Order
}

// Fork returns the active remainder of a partially filled order.
// Everything identifying the order is preserved, including
// RegisteredAt; only the quantity changes.
func (o *Order) Fork(surplus int64) *Order {
	return &Order{
		Code:         o.Code,
		Side:         o.Side,
		Price:        o.Price,
		Quantity:     surplus,
		Active:       true,
		RegisteredAt: o.RegisteredAt,
		Participant:  o.Participant,
	}
}

func (o *Order) String() string {
	if o.Side.IsLimit() {
		return fmt.Sprintf("<Order %s/$%s/%d pcs>", o.Side, o.Price, o.Quantity)
	}
	return fmt.Sprintf("<Order %s/%d pcs>", o.Side, o.Quantity)
}
