package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/logger"
)

// Subscriber feeds lifecycle messages from Redis into a Manager.
type Subscriber struct {
	client  *redis.Client
	channel string
	manager *Manager
	logger  *logger.Logger
}

// NewSubscriber connects to Redis and verifies the connection.
func NewSubscriber(cfg config.LifecycleConfig, manager *Manager, log *logger.Logger) (*Subscriber, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Lifecycle subscriber initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.String("channel", cfg.Channel))

	return &Subscriber{
		client:  client,
		channel: cfg.Channel,
		manager: manager,
		logger:  log,
	}, nil
}

// Run consumes the channel until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.manager.HandlePayload(ctx, []byte(msg.Payload))
		}
	}
}

// Publish sends a lifecycle event on the subscriber's channel.
func (s *Subscriber) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

// Close closes the Redis connection.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

// maskRedisURL masks the password in a Redis URL for logging
func maskRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "redis://***"
	}
	return u.Redacted()
}
