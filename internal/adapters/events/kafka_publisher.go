package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/viralforge/sala-escrow/internal/contracts"
)

type KafkaTopics struct {
	// ByEvent overrides the topic per event type. Unmapped domain events go
	// to a topic named after the event type.
	ByEvent   map[string]string
	Analytics string
	DLQ       string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	topics KafkaTopics
}

func NewKafkaPublisher(brokers []string, topics KafkaTopics) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: false,
	}, topics), nil
}

func newKafkaPublisher(writer messageWriter, topics KafkaTopics) *KafkaPublisher {
	if topics.Analytics == "" {
		topics.Analytics = "sala.analytics"
	}
	if topics.DLQ == "" {
		topics.DLQ = "sala.dlq"
	}
	return &KafkaPublisher{writer: writer, topics: topics}
}

func (p *KafkaPublisher) PublishDomain(ctx context.Context, event contracts.EventEnvelope) error {
	return p.write(ctx, p.topicFor(event.EventType), event.PartitionKey, event)
}

func (p *KafkaPublisher) PublishAnalytics(ctx context.Context, event contracts.EventEnvelope) error {
	return p.write(ctx, p.topics.Analytics, event.PartitionKey, event)
}

func (p *KafkaPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	record.DLQTopic = p.topics.DLQ
	if record.SourceTopic == "" {
		record.SourceTopic = p.topicFor(record.OriginalEvent.EventType)
	}
	return p.write(ctx, p.topics.DLQ, record.OriginalEvent.PartitionKey, record)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) topicFor(eventType string) string {
	if mapped, ok := p.topics.ByEvent[eventType]; ok && mapped != "" {
		return mapped
	}
	return eventType
}

func (p *KafkaPublisher) write(ctx context.Context, topic, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode kafka message: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: raw,
		Time:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}
	return nil
}
