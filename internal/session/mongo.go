package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore stores sessions in a MongoDB collection. A TTL index on
// expires_at lets the server reap expired documents; Cleanup removes any
// the reaper has not reached yet.
type MongoStore struct {
	collection *mongo.Collection
	client     *mongo.Client // non-nil when the store owns the connection
	logger     *zap.Logger
	now        func() time.Time
}

// NewMongoStore creates a session store on collection and ensures its
// indexes. If client is non-nil it is disconnected on Close.
func NewMongoStore(ctx context.Context, collection *mongo.Collection, client *mongo.Client, logger *zap.Logger) (*MongoStore, error) {
	s := &MongoStore{
		collection: collection,
		client:     client,
		logger:     logger.Named("mongo_store"),
		now:        time.Now,
	}

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) live() bson.M {
	return bson.M{"$gt": s.now()}
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Data, error) {
	var data Data
	err := s.collection.FindOne(ctx, bson.M{"_id": id, "expires_at": s.live()}).Decode(&data)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &data, nil
}

func (s *MongoStore) Put(ctx context.Context, data *Data) error {
	_, err := s.collection.InsertOne(ctx, data)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSessionExists
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, data *Data) error {
	result, err := s.collection.ReplaceOne(ctx, bson.M{"_id": data.ID}, data)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"user_id": userID, "expires_at": s.live()})
	if err != nil {
		return 0, fmt.Errorf("failed to count user sessions: %w", err)
	}
	return n, nil
}

func (s *MongoStore) Cleanup(ctx context.Context) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now()}})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	if result.DeletedCount > 0 {
		s.logger.Debug("Cleaned up expired sessions", zap.Int64("count", result.DeletedCount))
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
