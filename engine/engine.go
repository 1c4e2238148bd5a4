package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"bourse/domain/market"
	"bourse/store"
)

/*
Engine is the matching core. One call to AttemptTrade finds at most
one executable pair among active orders, applies it to the store as a
single commit, and returns the trade. Callers drain it in a loop
until it reports no match.

Categories are tried in fixed priority:

 1. pending market buy vs cheapest limit sell
 2. pending market sell vs dearest limit buy
 3. best limit buy vs best limit sell at or under the buy's price

Market orders inside a category are taken earliest first. The
standard trade executes at the BUY order's price even when the sell
quotes lower; that convention is carried over deliberately.
*/
type Engine struct {
	store *store.Store
}

func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// AttemptTrade performs at most one match. The second return is false
// when no category yields a pair, which stops the drain loop.
func (e *Engine) AttemptTrade() (*market.Trade, bool) {
	if t := e.marketBuy(); t != nil {
		return t, true
	}
	if t := e.marketSell(); t != nil {
		return t, true
	}
	if t := e.standard(); t != nil {
		return t, true
	}
	return nil, false
}

func (e *Engine) marketBuy() *market.Trade {
	buy := e.store.First(store.Query{Side: market.MarketBuy, Sort: store.ByTime})
	if buy == nil {
		return nil
	}
	sell := e.store.First(store.Query{Side: market.Sell, Sort: store.ByPriceAsc})
	if sell == nil {
		return nil
	}
	return e.execute(buy, sell, sell.Price)
}

func (e *Engine) marketSell() *market.Trade {
	sell := e.store.First(store.Query{Side: market.MarketSell, Sort: store.ByTime})
	if sell == nil {
		return nil
	}
	buy := e.store.First(store.Query{Side: market.Buy, Sort: store.ByPriceDesc})
	if buy == nil {
		return nil
	}
	return e.execute(buy, sell, buy.Price)
}

func (e *Engine) standard() *market.Trade {
	buy := e.store.First(store.Query{Side: market.Buy, Sort: store.ByPriceDesc})
	if buy == nil {
		return nil
	}
	sell := e.store.First(store.Query{
		Side:     market.Sell,
		MaxPrice: &buy.Price,
		Sort:     store.ByPriceAsc,
	})
	if sell == nil {
		return nil
	}
	return e.execute(buy, sell, buy.Price)
}

// execute consumes both orders, forks the surplus side and commits
// the whole mutation at once.
func (e *Engine) execute(buy, sell *market.Order, price decimal.Decimal) *market.Trade {
	qty := min(buy.Quantity, sell.Quantity)

	t := &market.Trade{
		Price:    price,
		Quantity: qty,
		Time:     time.Now(),
		Buy:      buy,
		Sell:     sell,
	}

	b := e.store.Batch()
	b.Deactivate(buy)
	b.Deactivate(sell)
	b.Link(buy, sell)
	if surplus := buy.Quantity - qty; surplus > 0 {
		b.Insert(buy.Fork(surplus))
	} else if surplus := sell.Quantity - qty; surplus > 0 {
		b.Insert(sell.Fork(surplus))
	}
	b.Trade(t)
	b.Commit()

	return t
}
