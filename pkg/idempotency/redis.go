package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinic-controlplane/pkg/rediskey"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: namespace}
}

func (s *RedisStore) key(k string) string {
	return rediskey.BuildIdempotencyKey(s.namespace, k)
}

func (s *RedisStore) Reserve(ctx context.Context, rec Record, ttl time.Duration) (*Record, bool, error) {
	rec.State = StatePending
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, false, err
	}

	ok, err := s.rdb.SetNX(ctx, s.key(rec.Key), raw, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	existing, err := s.get(ctx, rec.Key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// expired between SETNX and GET
		return s.Reserve(ctx, rec, ttl)
	}
	return existing, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, rec Record, ttl time.Duration) error {
	rec.State = StateCompleted
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(rec.Key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}
