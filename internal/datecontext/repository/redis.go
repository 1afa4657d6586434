package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for desk preferences, followed by operator and key
	preferenceKeyPrefix = "sicakap:prefs:"
)

type redisPreferenceStore struct {
	client   *redis.Client
	operator string
	timeout  time.Duration
}

func NewRedisPreferenceStore(client *redis.Client, operator string, timeout time.Duration) PreferenceStore {
	return &redisPreferenceStore{
		client:   client,
		operator: operator,
		timeout:  timeout,
	}
}

func (s *redisPreferenceStore) redisKey(key string) string {
	return preferenceKeyPrefix + s.operator + ":" + key
}

func (s *redisPreferenceStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

// Set stores without expiry; markers are superseded, never deleted.
func (s *redisPreferenceStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}
