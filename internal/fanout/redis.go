package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rohitgami11/MayaCode/internal/config"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

// RedisPubSub implements PubSub on a Redis broker reachable by all
// gateway instances.
type RedisPubSub struct {
	client        *redis.Client
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
}

func NewRedisPubSub(ctx context.Context, cfg config.RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
	}, nil
}

func (r *RedisPubSub) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscriptions[channel]; ok {
		return fmt.Errorf("already subscribed to channel %s", channel)
	}

	pubsub := r.client.Subscribe(ctx, channel)

	// Confirm the subscription before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	r.subscriptions[channel] = pubsub

	go r.processMessages(ctx, channel, pubsub, handler)

	l := log.L()
	l.Info().Str(log.FieldChannel, channel).Msg("subscribed to fan-out channel")
	return nil
}

func (r *RedisPubSub) processMessages(ctx context.Context, channel string, pubsub *redis.PubSub, handler Handler) {
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			handler([]byte(msg.Payload))
		}
	}
}

// Client exposes the underlying Redis client so other concerns (the
// history cache) can share the connection.
func (r *RedisPubSub) Client() *redis.Client {
	return r.client
}

func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pubsub := range r.subscriptions {
		pubsub.Close()
	}
	r.subscriptions = make(map[string]*redis.PubSub)

	return r.client.Close()
}
