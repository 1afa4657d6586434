package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRedis answers GET and SET from a map before the client ever dials.
type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func (m *memoryRedis) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (m *memoryRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memoryRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.err != nil {
			return m.err
		}

		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.StringCmd:
			value, ok := m.data[fmt.Sprint(args[1])]
			if !ok {
				return redis.Nil
			}
			c.SetVal(value)
			return nil
		case *redis.StatusCmd:
			m.data[fmt.Sprint(args[1])] = fmt.Sprint(args[2])
			c.SetVal("OK")
			return nil
		}
		return fmt.Errorf("unexpected command %s", cmd.Name())
	}
}

func newRedisStore(t *testing.T, operator string) (PreferenceStore, *memoryRedis) {
	t.Helper()

	backend := &memoryRedis{data: map[string]string{}}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(backend)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisPreferenceStore(client, operator, time.Second), backend
}

func TestRedisPreferenceStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, backend := newRedisStore(t, "desk-1")

	_, err := store.Get(ctx, KeyCurrentDate)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyCurrentDate, "2025-08-10"))
	require.NoError(t, store.Set(ctx, KeyCurrentDate, "2025-08-11"))

	got, err := store.Get(ctx, KeyCurrentDate)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-11", got)
	assert.Equal(t, map[string]string{"sicakap:prefs:desk-1:current_date": "2025-08-11"}, backend.data)
}

func TestRedisPreferenceStore_OperatorsDoNotShareKeys(t *testing.T) {
	ctx := context.Background()
	store, backend := newRedisStore(t, "desk-1")
	other := NewRedisPreferenceStore(nil, "desk-2", time.Second).(*redisPreferenceStore)

	require.NoError(t, store.Set(ctx, KeyLastAccessDate, "2025-08-10"))

	_, taken := backend.data[other.redisKey(KeyLastAccessDate)]
	assert.False(t, taken)
}

func TestRedisPreferenceStore_BackendFailure(t *testing.T) {
	ctx := context.Background()
	store, backend := newRedisStore(t, "desk-1")
	backend.err = errors.New("connection refused")

	_, err := store.Get(ctx, KeyCurrentDate)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = store.Set(ctx, KeyCurrentDate, "2025-08-10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current_date")
}
