package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisKeyPrefix = "placar:session:"
	redisChannel   = "placar:session:changed"
	redisTimeout   = 3 * time.Second
)

// RedisStorage shares the session between machines through Redis. Each
// write publishes the writer's origin ID; subscribers skip their own
// origin, so a context is never woken by its own writes.
type RedisStorage struct {
	client    redis.UniversalClient
	namespace string
	origin    string
	log       zerolog.Logger
}

// NewRedisStorage namespaces keys by account, usually the server URL
func NewRedisStorage(client redis.UniversalClient, account string, log zerolog.Logger) *RedisStorage {
	return &RedisStorage{
		client:    client,
		namespace: account,
		origin:    uuid.NewString(),
		log:       log.With().Str("component", "redis_storage").Logger(),
	}
}

func (r *RedisStorage) key(key string) string {
	return redisKeyPrefix + r.namespace + ":" + key
}

func (r *RedisStorage) channel() string {
	return redisChannel + ":" + r.namespace
}

func (r *RedisStorage) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	value, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisStorage) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(key), value, 0)
		pipe.Publish(ctx, r.channel(), r.origin)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(key))
		pipe.Publish(ctx, r.channel(), r.origin)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Subscribe(fn func()) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())

	pubsub := r.client.Subscribe(ctx, r.channel())
	// Wait for the subscription to be confirmed so no write is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for msg := range pubsub.Channel() {
			if msg.Payload == r.origin {
				continue
			}
			r.log.Debug().Str("channel", msg.Channel).Msg("Storage changed")
			fn()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				r.log.Warn().Err(err).Msg("Failed to close subscription")
			}
			<-stopped
		})
	}, nil
}
