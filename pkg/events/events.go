package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventPlanComputed is the type header of PlanComputed messages
const EventPlanComputed = "plan.computed"

// PlanComputed announces a newly computed plan
type PlanComputed struct {
	RunID           string  `json:"runId"`
	PeriodStart     string  `json:"periodStart"`
	PeriodEnd       string  `json:"periodEnd"`
	Mode            string  `json:"mode"`
	Assignments     int     `json:"assignments"`
	Shortages       int     `json:"shortages"`
	AverageCoverage float64 `json:"averageCoverage"`
	CreatedAt       string  `json:"createdAt"`
}

// MessageWriter is the subset of kafka.Writer used by the publisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes planning events to a Kafka topic
type Publisher struct {
	writer MessageWriter
	topic  string
}

// NewPublisher creates a publisher writing to topic on the given brokers
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(writer, topic), nil
}

// NewPublisherWithWriter creates a publisher on an existing writer
func NewPublisherWithWriter(writer MessageWriter, topic string) *Publisher {
	return &Publisher{writer: writer, topic: topic}
}

// Topic returns the topic events are published to
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishPlanComputed publishes the event keyed by run id, so events of one run stay ordered
func (p *Publisher) PublishPlanComputed(ctx context.Context, event PlanComputed) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", EventPlanComputed, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.RunID),
		Value:   payload,
		Headers: []kafka.Header{{Key: "type", Value: []byte(EventPlanComputed)}},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event for run %s: %w", EventPlanComputed, event.RunID, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
