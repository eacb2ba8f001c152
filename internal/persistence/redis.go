package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// RedisSessionStore keeps the record under a single key. The key expires with ttl.
type RedisSessionStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisSessionStore returns a Redis-backed store. ttl <= 0 disables expiry.
func NewRedisSessionStore(client redis.Cmdable, key string, ttl time.Duration) *RedisSessionStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisSessionStore{client: client, key: key, ttl: ttl}
}

func (s *RedisSessionStore) Load(ctx context.Context) (*domain.PersistedSession, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	// Redis enforces the TTL itself.
	return decodeRecord(raw, 0, time.Now())
}

func (s *RedisSessionStore) Save(ctx context.Context, session domain.PersistedSession) error {
	raw, err := encodeRecord(session, time.Now())
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
