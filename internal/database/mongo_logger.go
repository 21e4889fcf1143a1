package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"antidelete-bot/internal/database/models"
)

// LogUserAction writes an operator action entry.
func (s *MongoStore) LogUserAction(ctx context.Context, userID int64, action string, details interface{}) error {
	_, err := s.actions.InsertOne(ctx, models.UserAction{
		UserID:  userID,
		Action:  action,
		Details: details,
		Time:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert user action log for user %d: %w", userID, err)
	}
	return nil
}

// SaveConnection upserts a business connection, keeping its first-seen time.
func (s *MongoStore) SaveConnection(ctx context.Context, conn models.BusinessConnection) error {
	now := s.now()
	update := bson.M{
		"$set": bson.M{
			"owner_id":       conn.OwnerID,
			"owner_username": conn.OwnerUsername,
			"owner_chat_id":  conn.OwnerChatID,
			"enabled":        conn.Enabled,
			"last_seen":      now,
		},
		"$setOnInsert": bson.M{
			"first_seen":    now,
			"connection_id": conn.ConnectionID,
		},
	}
	_, err := s.connections.UpdateOne(ctx,
		bson.M{"connection_id": conn.ConnectionID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save business connection %s: %w", conn.ConnectionID, err)
	}
	return nil
}

// ConnectionByOwner returns the most recently seen enabled connection of ownerID.
func (s *MongoStore) ConnectionByOwner(ctx context.Context, ownerID int64) (*models.BusinessConnection, error) {
	var conn models.BusinessConnection
	err := s.connections.FindOne(ctx,
		bson.M{"owner_id": ownerID, "enabled": true},
		options.FindOne().SetSort(bson.D{{Key: "last_seen", Value: -1}}),
	).Decode(&conn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find connection for owner %d: %w", ownerID, err)
	}
	return &conn, nil
}

// EnabledConnections lists every enabled connection.
func (s *MongoStore) EnabledConnections(ctx context.Context) ([]models.BusinessConnection, error) {
	cursor, err := s.connections.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list business connections: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.BusinessConnection
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode business connections: %w", err)
	}
	return out, nil
}
