package repository

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	KeyLastAccessDate = "last_access_date"
	KeyCurrentDate    = "current_date"
	KeyLastFormDate   = "last_form_date"
)

// ErrNotFound is returned when no value is stored under the key
var ErrNotFound = errors.New("preference not found")

// PreferenceStore keeps the desk's advisory date markers for one operator.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type memoryPreferenceStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryPreferenceStore() PreferenceStore {
	return &memoryPreferenceStore{values: make(map[string]string)}
}

func (s *memoryPreferenceStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *memoryPreferenceStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// withTimeout bounds ctx by timeout, keeping an earlier caller deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}
