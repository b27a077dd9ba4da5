package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"leadhound/internal/models"
	"leadhound/internal/pipeline"
)

// ScrapeJobProducer publishes ScrapeJob messages to the scraper frontier.
type ScrapeJobProducer interface {
	WriteScrapeJob(ctx context.Context, job models.ScrapeJob) error
}

// PhoneJobProducer publishes PhoneJob messages to the enrichment topic.
type PhoneJobProducer interface {
	WritePhoneJob(ctx context.Context, job models.PhoneJob) error
}

// Producer wraps a Kafka writer bound to one topic. Create one producer per
// topic; the Write methods key messages so all jobs of a run or lead land on
// the same partition.
type Producer struct {
	writer pipeline.MessageWriter
}

// NewProducer creates a Kafka producer for the given broker and topic.
func NewProducer(broker, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: false,
		},
	}
}

// NewProducerWithWriter builds a producer using a custom writer (tests).
func NewProducerWithWriter(writer pipeline.MessageWriter) *Producer {
	return &Producer{writer: writer}
}

// Close shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// WriteScrapeJob publishes a ScrapeJob keyed by its ICP so all runs of one
// search stay ordered.
func (p *Producer) WriteScrapeJob(ctx context.Context, job models.ScrapeJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return p.write(ctx, []byte(job.ICPID), payload)
}

// WritePhoneJob publishes a PhoneJob keyed by its lead.
func (p *Producer) WritePhoneJob(ctx context.Context, job models.PhoneJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return p.write(ctx, []byte(job.LeadID), payload)
}

func (p *Producer) write(ctx context.Context, key, payload []byte) error {
	msg := kafka.Message{
		Key:   key,
		Value: payload,
		Time:  time.Now().UTC(),
	}
	return p.writer.WriteMessages(ctx, msg)
}
