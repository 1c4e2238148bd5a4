// Package grpcserver adapts the exchange's read-only ops surface to
// gRPC for marketctl. Service descriptor and messages are written by
// hand against a JSON codec; the matching path never goes through
// here.
package grpcserver

import (
	"context"
	"log"

	"google.golang.org/grpc"

	"bourse/service"
)

// -------------------- Messages --------------------

type SnapshotRequest struct{}

type SnapshotResponse struct {
	Orders []service.OrderSummary `json:"orders"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Orders uint64 `json:"orders"`
	Active uint64 `json:"active"`
	Trades uint64 `json:"trades"`
}

// -------------------- Service --------------------

type AdminServer interface {
	Snapshot(context.Context, *SnapshotRequest) (*SnapshotResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
}

// Server adapts the Exchange to AdminServer.
type Server struct {
	ex *service.Exchange
}

func New(ex *service.Exchange) *Server {
	return &Server{ex: ex}
}

func (s *Server) Snapshot(ctx context.Context, req *SnapshotRequest) (*SnapshotResponse, error) {
	orders := s.ex.SnapshotActive()
	log.Printf("[grpc] Snapshot, %d active orders", len(orders))
	return &SnapshotResponse{Orders: orders}, nil
}

func (s *Server) Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	st := s.ex.Stats()
	return &StatsResponse{Orders: st.Orders, Active: st.Active, Trades: st.Trades}, nil
}

// NewGRPCServer returns a grpc.Server speaking the JSON codec with
// the admin service registered.
func NewGRPCServer(s *Server) *grpc.Server {
	g := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	g.RegisterService(&adminServiceDesc, s)
	return g
}

// -------------------- Descriptor --------------------

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: "bourse.Admin",
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Snapshot", Handler: snapshotHandler},
		{MethodName: "Stats", Handler: statsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bourse/admin",
}

func snapshotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bourse.Admin/Snapshot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServer).Snapshot(ctx, req.(*SnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func statsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/bourse.Admin/Stats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdminServer).Stats(ctx, req.(*StatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}
