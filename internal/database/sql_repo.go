package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"antidelete-bot/internal/database/models"
	"antidelete-bot/internal/policy"
)

// GetPolicy loads the capture policy of botID.
func (s *SQLStore) GetPolicy(ctx context.Context, botID string) (*policy.Policy, error) {
	var (
		doc      models.CapturePolicy
		excluded string
		updated  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT bot_id, mode, excluded_ids, forward_to_alternate, alternate_destination, updated_at
		 FROM capture_policies WHERE bot_id = ?`, botID,
	).Scan(&doc.BotID, &doc.Mode, &excluded, &doc.ForwardToAlternate, &doc.AlternateDestination, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, policy.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query capture policy for %s: %w", botID, err)
	}
	if excluded != "" {
		if err := json.Unmarshal([]byte(excluded), &doc.Excluded); err != nil {
			return nil, fmt.Errorf("failed to decode excluded conversations for %s: %w", botID, err)
		}
	}
	doc.UpdatedAt = time.Unix(updated, 0)
	return doc.Policy(), nil
}

// SavePolicy upserts the capture policy of botID.
func (s *SQLStore) SavePolicy(ctx context.Context, botID string, p policy.Policy) error {
	doc := models.NewCapturePolicy(botID, p, s.now())
	excluded, err := json.Marshal(doc.Excluded)
	if err != nil {
		return fmt.Errorf("failed to encode excluded conversations: %w", err)
	}
	q := s.upsert("capture_policies", "bot_id",
		[]string{"bot_id", "mode", "excluded_ids", "forward_to_alternate", "alternate_destination", "updated_at"},
		[]string{"mode", "excluded_ids", "forward_to_alternate", "alternate_destination", "updated_at"})
	_, err = s.db.ExecContext(ctx, q,
		doc.BotID, doc.Mode, string(excluded), doc.ForwardToAlternate, doc.AlternateDestination, doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save capture policy for %s: %w", botID, err)
	}
	return nil
}

// LogUserAction writes an operator action entry.
func (s *SQLStore) LogUserAction(ctx context.Context, userID int64, action string, details interface{}) error {
	var encoded sql.NullString
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode action details: %w", err)
		}
		encoded = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_actions (user_id, action, details, created_at) VALUES (?, ?, ?, ?)`,
		userID, action, encoded, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert user action log for user %d: %w", userID, err)
	}
	return nil
}

// SaveConnection upserts a business connection, keeping its first-seen time.
func (s *SQLStore) SaveConnection(ctx context.Context, conn models.BusinessConnection) error {
	now := s.now().Unix()
	q := s.upsert("business_connections", "connection_id",
		[]string{"connection_id", "owner_id", "owner_username", "owner_chat_id", "enabled", "first_seen", "last_seen"},
		[]string{"owner_id", "owner_username", "owner_chat_id", "enabled", "last_seen"})
	_, err := s.db.ExecContext(ctx, q,
		conn.ConnectionID, conn.OwnerID, conn.OwnerUsername, conn.OwnerChatID, conn.Enabled, now, now)
	if err != nil {
		return fmt.Errorf("failed to save business connection %s: %w", conn.ConnectionID, err)
	}
	return nil
}

const connectionColumns = `connection_id, owner_id, owner_username, owner_chat_id, enabled, first_seen, last_seen`

func scanConnection(row interface{ Scan(...any) error }) (models.BusinessConnection, error) {
	var (
		c                   models.BusinessConnection
		firstSeen, lastSeen int64
	)
	if err := row.Scan(&c.ConnectionID, &c.OwnerID, &c.OwnerUsername, &c.OwnerChatID, &c.Enabled, &firstSeen, &lastSeen); err != nil {
		return c, err
	}
	c.FirstSeen = time.Unix(firstSeen, 0)
	c.LastSeen = time.Unix(lastSeen, 0)
	return c, nil
}

// ConnectionByOwner returns the most recently seen enabled connection of ownerID.
func (s *SQLStore) ConnectionByOwner(ctx context.Context, ownerID int64) (*models.BusinessConnection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM business_connections
		 WHERE owner_id = ? AND enabled = ? ORDER BY last_seen DESC LIMIT 1`, ownerID, true)
	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query connection for owner %d: %w", ownerID, err)
	}
	return &c, nil
}

// EnabledConnections lists every enabled connection.
func (s *SQLStore) EnabledConnections(ctx context.Context) ([]models.BusinessConnection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM business_connections WHERE enabled = ?`, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list business connections: %w", err)
	}
	defer rows.Close()

	var out []models.BusinessConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business connection: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate business connections: %w", err)
	}
	return out, nil
}
