package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/CST438P3G6/slotbook/libs/kafkax"
)

// Invalidator drops cached slot windows for one business.
type Invalidator interface {
	Invalidate(businessID string)
}

// Consumer turns change-feed events for appointment and business-hours rows
// into per-business cache invalidations. Events are invalidation signals
// only; nothing is refetched until the next slot request. Processing is
// idempotent, so duplicate deliveries need no inbox dedupe.
type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
	cache  Invalidator
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
}

// event mirrors the change feed envelope: eventType INSERT|UPDATE|DELETE
// plus old/new row images. Only the business scope matters here.
type event struct {
	EventType  string          `json:"event_type"`
	BusinessID string          `json:"business_id"`
	Old        json.RawMessage `json:"old,omitempty"`
	New        json.RawMessage `json:"new,omitempty"`
}

func New(logger *slog.Logger, cache Invalidator, cfg Config) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Consumer{reader: reader, logger: logger, cache: cache}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("change feed read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		meta := kafkax.ExtractEventMeta(msg)
		msgCtx := kafkax.ExtractTraceContext(ctx, msg)
		_, span := otel.Tracer("feed").Start(msgCtx, "feed.invalidate",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", msg.Topic),
				attribute.String("messaging.message_id", meta.EventID),
			),
		)

		var evt event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			c.logger.Error("invalid change feed payload", "err", err, "topic", msg.Topic)
			span.RecordError(err)
			span.End()
			continue
		}
		if evt.BusinessID == "" {
			c.logger.Warn("change feed event without business_id", "topic", msg.Topic)
			span.End()
			continue
		}

		c.cache.Invalidate(evt.BusinessID)
		c.logger.Debug("slot cache invalidated",
			"business_id", evt.BusinessID,
			"topic", msg.Topic,
			"event_id", meta.EventID,
			"event_type", evt.EventType,
		)
		span.End()
	}
}
