package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is the marketctl side of the admin service.
type Client struct {
	conn *grpc.ClientConn
}

func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Snapshot(ctx context.Context) (*SnapshotResponse, error) {
	out := new(SnapshotResponse)
	if err := c.conn.Invoke(ctx, "/bourse.Admin/Snapshot", &SnapshotRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	out := new(StatsResponse)
	if err := c.conn.Invoke(ctx, "/bourse.Admin/Stats", &StatsRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}
