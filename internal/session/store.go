// Package session provides server-side HTTP sessions: a pluggable Store
// (memory, Redis, MongoDB) and a gin middleware that binds a signed session
// cookie to the stored record.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// Data represents serializable session state.
type Data struct {
	ID        string            `json:"id" bson:"_id"`
	UserID    string            `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Values    map[string]string `json:"values,omitempty" bson:"values,omitempty"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time         `json:"expires_at" bson:"expires_at"`
}

// Expired reports whether the session is past its expiry at now
func (d *Data) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

func (d *Data) clone() *Data {
	cp := *d
	if d.Values != nil {
		cp.Values = make(map[string]string, len(d.Values))
		for k, v := range d.Values {
			cp.Values[k] = v
		}
	}
	return &cp
}

// Store provides persistent session storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a session by ID. Expired sessions are reported as
	// ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Data, error)

	// Put stores a new session. Returns ErrSessionExists if the ID is taken.
	Put(ctx context.Context, data *Data) error

	// Update replaces an existing session. Returns ErrSessionNotFound if missing.
	Update(ctx context.Context, data *Data) error

	// Delete removes a session by ID. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes every session bound to a user and returns how many.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// CountByUser returns the number of live sessions bound to a user.
	CountByUser(ctx context.Context, userID string) (int64, error)

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) (int64, error)

	// Close releases resources.
	Close() error
}

// MemoryStore is an in-memory session store for development/testing.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*Data
	userIndex map[string]map[string]struct{} // userID -> session IDs
	logger    *zap.Logger
	now       func() time.Time
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*Data),
		userIndex: make(map[string]map[string]struct{}),
		logger:    logger.Named("memory_store"),
		now:       time.Now,
	}
}

func (m *MemoryStore) index(data *Data) {
	if data.UserID == "" {
		return
	}
	ids, ok := m.userIndex[data.UserID]
	if !ok {
		ids = make(map[string]struct{})
		m.userIndex[data.UserID] = ids
	}
	ids[data.ID] = struct{}{}
}

func (m *MemoryStore) unindex(data *Data) {
	if data.UserID == "" {
		return
	}
	if ids, ok := m.userIndex[data.UserID]; ok {
		delete(ids, data.ID)
		if len(ids) == 0 {
			delete(m.userIndex, data.UserID)
		}
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Data, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.sessions[id]
	if !ok || data.Expired(m.now()) {
		return nil, ErrSessionNotFound
	}
	return data.clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, data *Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[data.ID]; ok && !existing.Expired(m.now()) {
		return ErrSessionExists
	} else if ok {
		m.unindex(existing)
	}

	cp := data.clone()
	m.sessions[data.ID] = cp
	m.index(cp)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, data *Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[data.ID]
	if !ok {
		return ErrSessionNotFound
	}

	m.unindex(existing)
	cp := data.clone()
	m.sessions[data.ID] = cp
	m.index(cp)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if data, ok := m.sessions[id]; ok {
		m.unindex(data)
		delete(m.sessions, id)
	}
	return nil
}

func (m *MemoryStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.userIndex[userID]
	for id := range ids {
		delete(m.sessions, id)
	}
	delete(m.userIndex, userID)
	return int64(len(ids)), nil
}

func (m *MemoryStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	now := m.now()
	for id := range m.userIndex[userID] {
		if data, ok := m.sessions[id]; ok && !data.Expired(now) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Cleanup(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	now := m.now()
	for id, data := range m.sessions {
		if data.Expired(now) {
			m.unindex(data)
			delete(m.sessions, id)
			count++
		}
	}

	if count > 0 {
		m.logger.Debug("Cleaned up expired sessions", zap.Int64("count", count))
	}
	return count, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
