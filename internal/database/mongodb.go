package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	policyCollection      = "capture_policies"
	connectionCollection  = "business_connections"
	userActionsCollection = "user_actions"
)

// ConnectDB establishes a connection to MongoDB and verifies it with a ping.
// It returns the client, the database and an error if the connection fails.
func ConnectDB(ctx context.Context, uri, dbName string, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	var result bson.M
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&result); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if disconnectErr := client.Disconnect(disconnectCtx); disconnectErr != nil {
			logger.Warn("Error disconnecting MongoDB after ping failure", zap.Error(disconnectErr))
		}
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("Connected to MongoDB", zap.String("database", dbName))

	return client, client.Database(dbName), nil
}

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client      *mongo.Client
	policies    *mongo.Collection
	connections *mongo.Collection
	actions     *mongo.Collection
	now         func() time.Time
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore creates the store and its indexes.
func NewMongoStore(ctx context.Context, client *mongo.Client, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		client:      client,
		policies:    db.Collection(policyCollection),
		connections: db.Collection(connectionCollection),
		actions:     db.Collection(userActionsCollection),
		now:         time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.policies.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bot_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", policyCollection, err)
	}
	if _, err := s.connections.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "connection_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "last_seen", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", connectionCollection, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
