package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bourse/domain/market"
	"bourse/store"
)

var base = time.Unix(1700000000, 0)

type env struct {
	st   *store.Store
	eng  *Engine
	tick int
}

func newEnv() *env {
	st := store.New()
	return &env{st: st, eng: New(st)}
}

func (e *env) add(code int64, side market.Side, price int64, qty int64) *market.Order {
	e.tick++
	o := &market.Order{
		Code:         code,
		Side:         side,
		Price:        decimal.NewFromInt(price),
		Quantity:     qty,
		Active:       true,
		RegisteredAt: base.Add(time.Duration(e.tick) * time.Second),
	}
	e.st.Insert(o)
	return o
}

// seedBook loads the reference book used by several scenarios.
func (e *env) seedBook() {
	e.add(1, market.Buy, 145, 100)
	e.add(2, market.Buy, 145, 200)
	e.add(3, market.Buy, 144, 300)
	e.add(4, market.Buy, 142, 4500)

	e.add(5, market.Sell, 149, 500)
	e.add(6, market.Sell, 151, 1000)
	e.add(7, market.Sell, 151, 300)
	e.add(8, market.Sell, 151, 1200)
	e.add(9, market.Sell, 156, 150)
}

func (e *env) drain(t *testing.T, max int) []*market.Trade {
	t.Helper()
	var out []*market.Trade
	for {
		tr, ok := e.eng.AttemptTrade()
		if !ok {
			return out
		}
		out = append(out, tr)
		require.LessOrEqual(t, len(out), max, "drain loop did not terminate")
	}
}

func assertTrade(t *testing.T, tr *market.Trade, price int64, qty int64) {
	t.Helper()
	assert.True(t, tr.Price.Equal(decimal.NewFromInt(price)),
		"price: want %d, got %s", price, tr.Price)
	assert.Equal(t, qty, tr.Quantity)
}

func TestEmptyBookNoTrade(t *testing.T) {
	e := newEnv()
	_, ok := e.eng.AttemptTrade()
	assert.False(t, ok)
}

func TestSeededBookScenario(t *testing.T) {
	e := newEnv()
	e.seedBook()
	e.add(10, market.Sell, 144, 350)

	trades := e.drain(t, 10)
	require.Len(t, trades, 3)
	assertTrade(t, trades[0], 145, 100)
	assertTrade(t, trades[1], 145, 200)
	assertTrade(t, trades[2], 144, 50)

	// the 350 sell is fully consumed, no active remainder
	assert.Nil(t, e.st.ActiveByCode(10))
}

func TestMarketSellScenario(t *testing.T) {
	e := newEnv()
	e.seedBook()
	e.add(10, market.MarketSell, 0, 170)

	trades := e.drain(t, 10)
	require.Len(t, trades, 2)
	assertTrade(t, trades[0], 145, 100)
	assertTrade(t, trades[1], 145, 70)
}

func TestPriceTimePriority(t *testing.T) {
	// the 120-priced buy matches first regardless of registration order
	for name, reversed := range map[string]bool{"highFirst": false, "lowFirst": true} {
		t.Run(name, func(t *testing.T) {
			e := newEnv()
			if reversed {
				e.add(1, market.Buy, 100, 10)
				e.add(2, market.Buy, 120, 10)
			} else {
				e.add(2, market.Buy, 120, 10)
				e.add(1, market.Buy, 100, 10)
			}
			e.add(3, market.Sell, 100, 10)

			trades := e.drain(t, 2)
			require.Len(t, trades, 1)
			assert.Equal(t, int64(2), trades[0].Buy.Code)
			assertTrade(t, trades[0], 120, 10)
		})
	}
}

func TestEqualPriceEarliestFirst(t *testing.T) {
	e := newEnv()
	first := e.add(1, market.Buy, 145, 100)
	e.add(2, market.Buy, 145, 200)
	e.add(3, market.Sell, 145, 50)

	trades := e.drain(t, 2)
	require.Len(t, trades, 1)
	assert.Same(t, first, trades[0].Buy)
}

func TestMarketPrecedence(t *testing.T) {
	e := newEnv()
	e.add(1, market.Buy, 150, 10)
	e.add(2, market.Sell, 140, 10)
	e.add(3, market.MarketBuy, 0, 10)

	tr, ok := e.eng.AttemptTrade()
	require.True(t, ok)
	// the pending market buy beats the crossed limit pair and takes
	// the sell at its quoted price
	assert.Equal(t, int64(3), tr.Buy.Code)
	assertTrade(t, tr, 140, 10)
}

func TestMarketOrderRestsOnEmptyOppositeSide(t *testing.T) {
	e := newEnv()
	e.add(1, market.MarketBuy, 0, 10)

	_, ok := e.eng.AttemptTrade()
	assert.False(t, ok)
	assert.NotNil(t, e.st.ActiveByCode(1), "unmatched market order stays pending")
}

func TestPartialFillForkContinuity(t *testing.T) {
	e := newEnv()
	a := e.add(42, market.Sell, 149, 500)
	e.add(7, market.Buy, 149, 100)

	trades := e.drain(t, 2)
	require.Len(t, trades, 1)
	assertTrade(t, trades[0], 149, 100)

	fork := e.st.ActiveByCode(42)
	require.NotNil(t, fork)
	assert.NotSame(t, a, fork)
	assert.Equal(t, int64(400), fork.Quantity)
	assert.True(t, fork.RegisteredAt.Equal(a.RegisteredAt),
		"fork must keep the original registration time")
	assert.Equal(t, a.Side, fork.Side)
	assert.True(t, fork.Price.Equal(a.Price))

	// consumed orders are cross-linked and retired
	assert.False(t, a.Active)
	assert.Same(t, trades[0].Buy, a.TradedTo)
	assert.Same(t, a, trades[0].Buy.TradedTo)
}

func TestQuantityConservation(t *testing.T) {
	e := newEnv()
	e.add(1, market.Sell, 100, 500)
	e.add(2, market.Buy, 100, 120)
	e.add(3, market.Buy, 101, 50)
	e.add(4, market.Buy, 100, 200)

	trades := e.drain(t, 10)

	var traded int64
	for _, tr := range trades {
		require.Equal(t, int64(1), tr.Sell.Code)
		traded += tr.Quantity
	}
	var remaining int64
	if o := e.st.ActiveByCode(1); o != nil {
		remaining = o.Quantity
	}
	assert.Equal(t, int64(500), traded+remaining)
}

func TestStandardTradeUsesBuyPrice(t *testing.T) {
	e := newEnv()
	e.add(1, market.Buy, 150, 10)
	e.add(2, market.Sell, 140, 10)

	tr, ok := e.eng.AttemptTrade()
	require.True(t, ok)
	assertTrade(t, tr, 150, 10)
}
