package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/honeynil/spriteshop/internal/infrastructure/redis"
	"github.com/segmentio/kafka-go"
)

// Consumer drops cached sprite details when listing events arrive, so other
// replicas sharing the Redis instance never serve deleted listings.
type Consumer struct {
	reader *kafka.Reader
	cache  redis.RedisClient
}

func NewConsumer(brokers []string, topic, groupID string, cache redis.RedisClient) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		cache: cache,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key), "value", string(msg.Value))

		var event struct {
			EventType string `json:"event_type"`
			SpriteID  int64  `json:"sprite_id"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal sprite event", "error", err)
			continue
		}

		switch event.EventType {
		case "sprite_created", "sprite_deleted":
			if event.SpriteID == 0 {
				slog.Error("invalid sprite event: missing sprite_id", "event_type", event.EventType)
				continue
			}
			cacheKey := fmt.Sprintf("sprite:%d:detail", event.SpriteID)
			if err := c.cache.Del(ctx, cacheKey); err != nil {
				slog.Error("failed to invalidate sprite cache", "sprite_id", event.SpriteID, "error", err)
				continue
			}
			slog.Info("sprite cache invalidated", "sprite_id", event.SpriteID, "event_type", event.EventType)

		case "user_registered":
			// Nothing cached per user yet.

		default:
			slog.Error("unknown event type", "event_type", event.EventType)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
