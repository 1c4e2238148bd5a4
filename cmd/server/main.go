package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"bourse/api/grpcserver"
	"bourse/infra/journal"
	"bourse/jobs/broadcaster"
	"bourse/server"
	"bourse/service"
	"bourse/store"
)

func main() {
	var (
		createDB = flag.Bool("create-db", false, "initialize the journal database and continue")
		host     = flag.String("host", "localhost", "listen address")
		port     = flag.Int("port", 7001, "participant port")
		dsPort   = flag.Int("datastream-port", 7002, "public datastream port")
		wsAddr   = flag.String("ws-addr", "", "websocket feed address (empty = disabled)")
		grpcAddr = flag.String("grpc-addr", "", "admin gRPC address (empty = disabled)")
		dataDir  = flag.String("data-dir", "./market_db", "journal database directory")
		brokers  = flag.String("kafka-brokers", "", "comma separated Kafka brokers (empty = disabled)")
		topic    = flag.String("kafka-topic", "market.feed", "Kafka feed topic")
		interval = flag.Duration("broadcast-interval", 250*time.Millisecond, "outbox flush interval")
	)
	flag.Parse()

	// ---------------- Journal ----------------

	if *createDB {
		if err := journal.Create(*dataDir); err != nil {
			log.Fatalf("create-db failed: %v", err)
		}
	}

	db, err := journal.Open(*dataDir)
	if err != nil {
		log.Fatalf("journal open failed: %v", err)
	}
	defer db.Close()

	// ---------------- Core ----------------

	st := store.New()
	st.Attach(db)
	ex := service.NewExchange(st)

	srv := server.New(ex)
	srv.SetFeedSink(db)

	// ---------------- Background jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *brokers != "" {
		bc, err := broadcaster.New(db, strings.Split(*brokers, ","), *topic, *interval)
		if err != nil {
			log.Fatalf("broadcaster init failed: %v", err)
		}
		defer bc.Close()
		go bc.Run(ctx)
	}

	// ---------------- Side surfaces ----------------

	if *grpcAddr != "" {
		lis, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen failed: %v", err)
		}
		g := grpcserver.NewGRPCServer(grpcserver.New(ex))
		go func() {
			if err := g.Serve(lis); err != nil {
				log.Fatalf("grpc server exited: %v", err)
			}
		}()
	}

	if *wsAddr != "" {
		go func() {
			if err := srv.ServeWS(*wsAddr); err != nil {
				log.Fatalf("websocket server exited: %v", err)
			}
		}()
	}

	// ---------------- Listeners ----------------

	dsLis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", *host, *dsPort))
	if err != nil {
		log.Fatalf("datastream listen failed: %v", err)
	}
	go func() {
		if err := srv.ServeDatastream(dsLis); err != nil {
			log.Fatalf("datastream exited: %v", err)
		}
	}()

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", *host, *port))
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}
	if err := srv.ServeParticipants(lis); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
