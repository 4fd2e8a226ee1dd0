package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/internal/storage"
)

// Store implements an in-memory storage
type Store struct {
	users *UserStore
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{
		users: &UserStore{data: make(map[domain.UserID]*domain.User)},
	}
}

func (s *Store) Users() storage.UserStore       { return s.users }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return nil }

// UserStore implements in-memory user storage
type UserStore struct {
	mu   sync.RWMutex
	data map[domain.UserID]*domain.User
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" || user.Username == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := s.data[user.ID]; exists {
		return storage.ErrAlreadyExists
	}
	for _, u := range s.data {
		if u.Username == user.Username {
			return storage.ErrAlreadyExists
		}
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	cp := *user
	s.data[user.ID] = &cp
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.data {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0, len(s.data))
	for _, user := range s.data {
		cp := *user
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[user.ID]; !exists {
		return storage.ErrNotFound
	}
	for id, u := range s.data {
		if id != user.ID && u.Username == user.Username {
			return storage.ErrAlreadyExists
		}
	}

	user.UpdatedAt = time.Now()
	cp := *user
	s.data[user.ID] = &cp
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}
