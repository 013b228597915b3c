package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/camden-git/identitybackend/models"
)

// EventPublisher fans identity events out to a Redis pub/sub channel.
type EventPublisher struct {
	client  *Client
	channel string
}

func NewEventPublisher(client *Client, channel string) *EventPublisher {
	return &EventPublisher{client: client, channel: channel}
}

func (p *EventPublisher) Name() string {
	return "redis"
}

// Deliver publishes the JSON-encoded event to the configured channel.
func (p *EventPublisher) Deliver(ctx context.Context, event models.IdentityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal identity event: %w", err)
	}

	receivers, err := p.client.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}

	p.client.logger.Debug("published identity event",
		zap.String("channel", p.channel),
		zap.String("type", string(event.Type)),
		zap.Int64("receivers", receivers),
	)
	return nil
}
