package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisPublisher publishes events to per-company Redis pub/sub channels.
// Socket gateways subscribe to `company:<id>:events` and forward to clients.
type RedisPublisher struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisPublisher creates a publisher against the given Redis instance
func NewRedisPublisher(addr, password string, db int, logger *logrus.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPublisher{client: client, logger: logger}, nil
}

// Publish sends the event to the company channel, or the global channel when
// the event carries no company
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := "backoffice:events"
	if event.CompanyID != nil {
		channel = fmt.Sprintf("company:%s:events", *event.CompanyID)
	}

	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"channel": channel,
		"type":    event.Type,
	}).Debug("Event published")

	return nil
}

// Close releases the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
