package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// RedisStore stores sessions in Redis for horizontal scaling.
// Each session is a JSON value with a TTL matching its expiry; a per-user set
// indexes session IDs for revocation.
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg *config.RedisConfig, defaultTTL time.Duration, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "sess:"
	}
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}

	return &RedisStore{
		client:     client,
		keyPrefix:  prefix,
		defaultTTL: defaultTTL,
		logger:     logger.Named("redis_store"),
	}, nil
}

func (r *RedisStore) sessionKey(id string) string {
	return r.keyPrefix + id
}

func (r *RedisStore) userKey(userID string) string {
	return r.keyPrefix + "user:" + userID
}

func (r *RedisStore) ttl(data *Data) time.Duration {
	ttl := time.Until(data.ExpiresAt)
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return ttl
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Data, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	if data.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return &data, nil
}

func (r *RedisStore) Put(ctx context.Context, data *Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	ttl := r.ttl(data)
	ok, err := r.client.SetNX(ctx, r.sessionKey(data.ID), raw, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionExists
	}

	if data.UserID != "" {
		pipe := r.client.TxPipeline()
		pipe.SAdd(ctx, r.userKey(data.UserID), data.ID)
		pipe.Expire(ctx, r.userKey(data.UserID), ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisStore) Update(ctx context.Context, data *Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	existing, err := r.Get(ctx, data.ID)
	if err != nil {
		return err
	}

	ttl := r.ttl(data)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(data.ID), raw, ttl)
	if existing.UserID != "" && existing.UserID != data.UserID {
		pipe.SRem(ctx, r.userKey(existing.UserID), data.ID)
	}
	if data.UserID != "" {
		pipe.SAdd(ctx, r.userKey(data.UserID), data.ID)
		pipe.Expire(ctx, r.userKey(data.UserID), ttl)
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	data, err := r.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return r.client.Del(ctx, r.sessionKey(id)).Err()
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	if data.UserID != "" {
		pipe.SRem(ctx, r.userKey(data.UserID), id)
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}

	pipe := r.client.TxPipeline()
	deleted := pipe.Del(ctx, keys...)
	pipe.Del(ctx, r.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return deleted.Val(), nil
}

func (r *RedisStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}

	var count int64
	var stale []any
	for _, id := range ids {
		n, err := r.client.Exists(ctx, r.sessionKey(id)).Result()
		if err != nil {
			return 0, err
		}
		if n > 0 {
			count++
		} else {
			stale = append(stale, id)
		}
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.userKey(userID), stale...).Err(); err != nil {
			r.logger.Warn("Failed to prune stale session index entries",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	return count, nil
}

// Cleanup is a no-op: Redis expires session keys on its own.
func (r *RedisStore) Cleanup(ctx context.Context) (int64, error) {
	return 0, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
