package database

import (
	"context"
	"errors"

	"antidelete-bot/internal/database/models"
	"antidelete-bot/internal/policy"
)

// ErrConnectionNotFound is returned when no enabled business connection
// exists for an owner.
var ErrConnectionNotFound = errors.New("business connection not found")

// UserActionLogger records operator actions.
type UserActionLogger interface {
	LogUserAction(ctx context.Context, userID int64, action string, details interface{}) error
}

// ConnectionRepository persists business connections so owners keep
// control of their settings across restarts.
type ConnectionRepository interface {
	SaveConnection(ctx context.Context, conn models.BusinessConnection) error
	ConnectionByOwner(ctx context.Context, ownerID int64) (*models.BusinessConnection, error)
	EnabledConnections(ctx context.Context) ([]models.BusinessConnection, error)
}

// Store is everything a storage backend provides.
type Store interface {
	policy.Repository
	UserActionLogger
	ConnectionRepository
	Close(ctx context.Context) error
}
