package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const lastAccessField = "last_access"

// RedisStore keeps one hash per user and refreshes its expiry on every access.
type RedisStore struct {
	client *redisv9.Client
	ttl    time.Duration
	prefix string
}

func NewRedisStore(client *redisv9.Client, ttl time.Duration, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ai-teacher:user:"
	}
	return &RedisStore{client: client, ttl: ttl, prefix: prefix}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) touch(pipe redisv9.Pipeliner, ctx context.Context, key string) {
	pipe.HSet(ctx, key, lastAccessField, time.Now().UTC().Format(time.RFC3339Nano))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

func (s *RedisStore) GetOrCreate(ctx context.Context, userID string) (Record, error) {
	key := s.key(userID)
	var all *redisv9.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.HSetNX(ctx, key, "user_id", userID)
		s.touch(pipe, ctx, key)
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("redis get or create session failed: %w", err)
	}
	return recordFromHash(userID, all.Val()), nil
}

func (s *RedisStore) Get(ctx context.Context, userID string, field Field) (string, error) {
	if !field.valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	key := s.key(userID)
	if err := s.ensureExists(ctx, key, userID); err != nil {
		return "", err
	}
	var val *redisv9.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		val = pipe.HGet(ctx, key, string(field))
		s.touch(pipe, ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redisv9.Nil) {
		return "", fmt.Errorf("redis get session field failed: %w", err)
	}
	v, err := val.Result()
	if errors.Is(err, redisv9.Nil) {
		return Record{}.get(field), nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get session field failed: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, userID string, field Field, value string) error {
	return s.Update(ctx, userID, map[Field]string{field: value})
}

func (s *RedisStore) Update(ctx context.Context, userID string, values map[Field]string) error {
	args := make(map[string]any, len(values))
	for f, v := range values {
		if !f.valid() {
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
		args[string(f)] = v
	}
	key := s.key(userID)
	if err := s.ensureExists(ctx, key, userID); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.HSet(ctx, key, args)
		s.touch(pipe, ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis update session failed: %w", err)
	}
	return nil
}

func (s *RedisStore) ensureExists(ctx context.Context, key, userID string) error {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis check session failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	return nil
}

func recordFromHash(userID string, h map[string]string) Record {
	rec := Record{UserID: userID}
	for _, f := range fields {
		if v, ok := h[string(f)]; ok {
			rec.set(f, v)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, h[lastAccessField]); err == nil {
		rec.LastAccess = ts
	}
	return rec
}
