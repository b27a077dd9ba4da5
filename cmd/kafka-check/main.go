package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/kafka-go"

	"leadhound/common"
)

// pipelineTopics are the topics every service of the pipeline depends on.
var pipelineTopics = []string{
	"leadhound.scrape.jobs",
	"leadhound.phone.jobs",
	"leadhound.companies",
	"leadhound.leads",
	"leadhound.scrape.dlq",
}

func main() {
	broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to Kafka at %s: %v\n", broker, err)
		os.Exit(1)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read metadata: %v\n", err)
		os.Exit(1)
	}

	present := make(map[string]int)
	for _, p := range partitions {
		present[p.Topic]++
	}

	missing := 0
	for _, topic := range pipelineTopics {
		n, ok := present[topic]
		if !ok {
			fmt.Fprintf(os.Stderr, "topic %s missing\n", topic)
			missing++
			continue
		}
		fmt.Printf("topic %s ok (%d partitions)\n", topic, n)
	}
	if missing > 0 {
		os.Exit(1)
	}
	fmt.Printf("connected to Kafka at %s; all %d pipeline topics present\n", broker, len(pipelineTopics))
}
