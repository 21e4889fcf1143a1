package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"antidelete-bot/internal/database/models"
	"antidelete-bot/internal/policy"
)

// GetPolicy loads the capture policy of botID.
func (s *MongoStore) GetPolicy(ctx context.Context, botID string) (*policy.Policy, error) {
	var doc models.CapturePolicy
	err := s.policies.FindOne(ctx, bson.M{"bot_id": botID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, policy.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find capture policy for %s: %w", botID, err)
	}
	return doc.Policy(), nil
}

// SavePolicy replaces the capture policy of botID.
func (s *MongoStore) SavePolicy(ctx context.Context, botID string, p policy.Policy) error {
	doc := models.NewCapturePolicy(botID, p, s.now())
	_, err := s.policies.ReplaceOne(ctx, bson.M{"bot_id": botID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save capture policy for %s: %w", botID, err)
	}
	return nil
}
