package prefs

import (
	"context"
	"sync"
)

// Store persists the three preference slots per user.
type Store interface {
	// LoadPreferences returns the stored slots, or a zero Raw for a user
	// with nothing stored.
	LoadPreferences(ctx context.Context, userID int64) (Raw, error)
	SavePreferences(ctx context.Context, userID int64, raw Raw) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	users map[int64]Raw
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]Raw)}
}

// LoadPreferences implements Store.
func (m *MemoryStore) LoadPreferences(ctx context.Context, userID int64) (Raw, error) {
	if err := ctx.Err(); err != nil {
		return Raw{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

// SavePreferences implements Store.
func (m *MemoryStore) SavePreferences(ctx context.Context, userID int64, raw Raw) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = raw
	return nil
}
