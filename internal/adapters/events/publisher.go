package events

import (
	"context"
	"log/slog"

	"github.com/viralforge/sala-escrow/internal/contracts"
)

// LoggingPublisher stands in for the broker in local runs.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) PublishDomain(ctx context.Context, event contracts.EventEnvelope) error {
	p.log(ctx, "publish_domain", event)
	return nil
}

func (p *LoggingPublisher) PublishAnalytics(ctx context.Context, event contracts.EventEnvelope) error {
	p.log(ctx, "publish_analytics", event)
	return nil
}

func (p *LoggingPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	p.logger.WarnContext(ctx, "event dead-lettered",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish_dlq",
		"outcome", "success",
		"event_id", record.OriginalEvent.EventID,
		"event_type", record.OriginalEvent.EventType,
		"retry_count", record.RetryCount,
		"error", record.ErrorSummary,
	)
	return nil
}

func (p *LoggingPublisher) log(ctx context.Context, operation string, event contracts.EventEnvelope) {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", operation,
		"outcome", "success",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"payload_bytes", len(event.Data),
	)
}
