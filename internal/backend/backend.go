// Package backend selects the storage backend handed to the server engine
// as its database connection.
package backend

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sirosfoundation/go-meanhost/internal/storage"
	"github.com/sirosfoundation/go-meanhost/internal/storage/memory"
	"github.com/sirosfoundation/go-meanhost/internal/storage/mongodb"
	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// Type defines the type of storage backend
type Type string

const (
	// TypeMemory uses in-memory storage (for testing/development)
	TypeMemory Type = "memory"
	// TypeMongoDB uses MongoDB storage (for production)
	TypeMongoDB Type = "mongodb"
)

// Backend wraps storage stores with a common interface for lifecycle management
type Backend interface {
	// Type returns the backend type
	Type() Type
	// Users returns the user store
	Users() storage.UserStore
	// MongoDatabase returns the database handle, or nil for non-Mongo backends
	MongoDatabase() *mongo.Database
	// Ping checks if the storage is alive
	Ping(ctx context.Context) error
	// Close closes the storage connection
	Close() error
}

type memoryBackend struct {
	store *memory.Store
}

func (b *memoryBackend) Type() Type                     { return TypeMemory }
func (b *memoryBackend) Users() storage.UserStore       { return b.store.Users() }
func (b *memoryBackend) MongoDatabase() *mongo.Database { return nil }
func (b *memoryBackend) Ping(ctx context.Context) error { return b.store.Ping(ctx) }
func (b *memoryBackend) Close() error                   { return b.store.Close() }

type mongoBackend struct {
	store *mongodb.Store
}

func (b *mongoBackend) Type() Type                     { return TypeMongoDB }
func (b *mongoBackend) Users() storage.UserStore       { return b.store.Users() }
func (b *mongoBackend) MongoDatabase() *mongo.Database { return b.store.Database() }
func (b *mongoBackend) Ping(ctx context.Context) error { return b.store.Ping(ctx) }
func (b *mongoBackend) Close() error                   { return b.store.Close() }

// NewMemory returns an in-memory backend
func NewMemory() Backend {
	return &memoryBackend{store: memory.NewStore()}
}

// New creates a storage backend based on the configuration
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	storageType := Type(cfg.Storage.Type)

	switch storageType {
	case TypeMemory, "":
		return NewMemory(), nil

	case TypeMongoDB:
		store, err := mongodb.NewStore(ctx, &cfg.Storage.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB backend: %w", err)
		}
		return &mongoBackend{store: store}, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
