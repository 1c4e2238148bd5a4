package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one execution pairing a buy against a sell.
type Trade struct {
	Price    decimal.Decimal
	Quantity int64
	Time     time.Time

	Buy  *Order
	Sell *Order
}

// Buyer returns the owner of the buy side, nil when disconnected
// history.
func (t *Trade) Buyer() *Participant {
	return t.Buy.Participant
}

func (t *Trade) Seller() *Participant {
	return t.Sell.Participant
}

func (t *Trade) String() string {
	return fmt.Sprintf("<Trade $%s/%d pcs>", t.Price, t.Quantity)
}
