package session

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/storage/mongodb"
	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// Store types
const (
	TypeMemory  = "memory"
	TypeRedis   = "redis"
	TypeMongoDB = "mongodb"
)

// NewStore builds the store named by cfg.Type. For "mongodb" the shared
// database db is used when non-nil; otherwise a dedicated connection is
// opened from cfg.MongoDB.
func NewStore(ctx context.Context, cfg *config.SessionConfig, db *mongo.Database, logger *zap.Logger) (Store, error) {
	ttl := time.Duration(cfg.TTLHours) * time.Hour

	switch cfg.Type {
	case "", TypeMemory:
		return NewMemoryStore(logger), nil

	case TypeRedis:
		return NewRedisStore(ctx, &cfg.Redis, ttl, logger)

	case TypeMongoDB:
		collection := cfg.MongoDB.Collection
		if collection == "" {
			collection = "sessions"
		}
		if db != nil {
			return NewMongoStore(ctx, db.Collection(collection), nil, logger)
		}
		if cfg.MongoDB.URI == "" {
			return nil, fmt.Errorf("session.mongodb.uri is required when no shared MongoDB backend is configured")
		}
		client, err := mongodb.Connect(ctx, &cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		store, err := NewMongoStore(ctx, client.Database(cfg.MongoDB.Database).Collection(collection), client, logger)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported session store type: %s", cfg.Type)
	}
}
