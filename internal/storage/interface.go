package storage

import (
	"context"
	"errors"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
)

// Common errors. ErrNotFound's message is what the HTTP error chain keys
// on to answer 404.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// UserStore defines the interface for user storage operations
type UserStore interface {
	// Create creates a new user; ErrAlreadyExists on a duplicate ID or username
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// List returns all users ordered by username
	List(ctx context.Context) ([]*domain.User, error)

	// Update updates a user
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id domain.UserID) error
}

// Store is the root storage handle
type Store interface {
	Users() UserStore
	Ping(ctx context.Context) error
	Close() error
}
