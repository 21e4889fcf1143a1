package handlers

import (
	"context"

	"antidelete-bot/internal/policy"
	"antidelete-bot/internal/recovery"
)

// PolicyManager is the part of the policy engine the command surface uses.
type PolicyManager interface {
	Policy(ctx context.Context, botID string) policy.Policy
	SetMode(ctx context.Context, botID string, mode policy.Mode) error
	ToggleExclusion(ctx context.Context, botID, conversationID string) (bool, error)
	SetForwardToAlternate(ctx context.Context, botID string, forward bool) error
	SetAlternateDestination(ctx context.Context, botID, destination string) error
}

// SessionProvider hands out per-connection anti-delete sessions.
type SessionProvider interface {
	Open(botID, self string) *recovery.Session
	Lookup(botID string) (*recovery.Session, bool)
	Close(botID string)
}

// AdminChecker reports whether a user administers a chat.
type AdminChecker interface {
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

var (
	_ PolicyManager   = (*policy.Engine)(nil)
	_ SessionProvider = (*recovery.Registry)(nil)
)
