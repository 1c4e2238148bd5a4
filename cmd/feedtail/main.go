// feedtail follows the public feed topic on Kafka and prints each
// event as one JSON object per line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/segmentio/kafka-go"

	"bourse/feed"
)

func main() {
	var (
		brokers = flag.String("brokers", "localhost:9092", "comma separated Kafka brokers")
		topic   = flag.String("topic", "market.feed", "feed topic")
		group   = flag.String("group", "", "consumer group (empty = read from start)")
	)
	flag.Parse()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(*brokers, ","),
		Topic:    *topic,
		GroupID:  *group,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	defer reader.Close()

	ctx := context.Background()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Fatalf("read failed: %v", err)
		}

		e, err := feed.Unmarshal(msg.Value)
		if err != nil {
			log.Printf("skipping offset %d: %v", msg.Offset, err)
			continue
		}

		out, err := json.Marshal(e)
		if err != nil {
			log.Fatalf("encode failed: %v", err)
		}
		fmt.Println(string(out))
	}
}
