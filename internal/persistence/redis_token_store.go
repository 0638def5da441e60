package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps tokens in Redis string keys.
type RedisTokenStore struct {
	redis  *Redis
	prefix string
}

// NewRedisTokenStore stores tokens under prefix+key.
func NewRedisTokenStore(r *Redis, prefix string) *RedisTokenStore {
	return &RedisTokenStore{redis: r, prefix: prefix}
}

func (s *RedisTokenStore) Load(ctx context.Context, key string) (string, error) {
	token, err := s.redis.Client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (s *RedisTokenStore) Save(ctx context.Context, key, token string) error {
	return s.redis.Client.Set(ctx, s.prefix+key, token, 0).Err()
}

func (s *RedisTokenStore) Delete(ctx context.Context, key string) error {
	return s.redis.Client.Del(ctx, s.prefix+key).Err()
}

func (s *RedisTokenStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx)
}
