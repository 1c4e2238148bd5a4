package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bourse/domain/market"
	"bourse/service"
	"bourse/store"
)

func startAdmin(t *testing.T, ex *service.Exchange) *Client {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	g := NewGRPCServer(New(ex))
	go g.Serve(lis)
	t.Cleanup(g.Stop)

	client, err := Dial(lis.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSnapshotAndStats(t *testing.T) {
	ex := service.NewExchange(store.New())
	p := ex.Connect()

	ex.Lock()
	if _, err := ex.CreateOrder(p, 100, market.Buy, decimal.NewFromInt(145), 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ex.CreateOrder(p, 200, market.Sell, decimal.NewFromInt(145), 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	ex.Drain()
	ex.Unlock()

	client := startAdmin(t, ex)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := client.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Orders) != 0 {
		t.Fatalf("book should be empty after the cross, got %+v", snap.Orders)
	}

	stats, err := client.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Orders != 2 || stats.Active != 0 || stats.Trades != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSnapshotRendersOrders(t *testing.T) {
	ex := service.NewExchange(store.New())
	p := ex.Connect()

	ex.Lock()
	if _, err := ex.CreateOrder(p, 100, market.Buy, decimal.NewFromInt(145), 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	ex.Unlock()

	client := startAdmin(t, ex)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := client.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Orders) != 1 {
		t.Fatalf("want 1 order, got %d", len(snap.Orders))
	}
	o := snap.Orders[0]
	if o.Code != 100 || o.Side != "buy" || o.Quantity != 10 {
		t.Fatalf("unexpected order: %+v", o)
	}
	if !o.Price.Equal(decimal.NewFromInt(145)) {
		t.Fatalf("price: %s", o.Price)
	}
}
