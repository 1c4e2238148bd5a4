// marketctl queries a running server's admin gRPC surface.
//
//	marketctl -addr localhost:7003 snapshot
//	marketctl -addr localhost:7003 stats
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"bourse/api/grpcserver"
)

func main() {
	addr := flag.String("addr", "localhost:7003", "admin gRPC address")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		fmt.Fprintln(os.Stderr, "usage: marketctl [-addr host:port] snapshot|stats")
		os.Exit(2)
	}

	client, err := grpcserver.Dial(*addr)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out interface{}
	switch cmd {
	case "snapshot":
		out, err = client.Snapshot(ctx)
	case "stats":
		out, err = client.Stats(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encode failed: %v", err)
	}
	fmt.Println(string(data))
}
