package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"antidelete-bot/internal/database"
	"antidelete-bot/internal/database/models"
	"antidelete-bot/internal/locales"
	"antidelete-bot/internal/recovery"
)

// HandleBusinessConnection reacts to a business account connecting,
// changing, or disconnecting the bot.
func (h *MessageHandler) HandleBusinessConnection(ctx context.Context, bc telego.BusinessConnection) error {
	if err := h.register(ctx, bc); err != nil {
		return err
	}
	h.recordAction(ctx, bc.User.ID, ActionConnectionUpdate, map[string]interface{}{
		"connection_id": bc.ID,
		"enabled":       bc.IsEnabled,
	})

	localizer := h.getLocalizer(&bc.User)
	if bc.IsEnabled {
		mode := h.policies.Policy(ctx, bc.ID).Mode
		h.sendText(ctx, bc.UserChatID, locales.GetMessage(localizer, "MsgConnected", map[string]interface{}{"Mode": string(mode)}, nil))
	} else {
		h.sendText(ctx, bc.UserChatID, locales.GetMessage(localizer, "MsgDisconnected", nil, nil))
	}
	return nil
}

// register persists bc and opens or closes its session.
func (h *MessageHandler) register(ctx context.Context, bc telego.BusinessConnection) error {
	if bc.ID == "" {
		return errors.New("business connection has no id")
	}
	err := h.connections.SaveConnection(ctx, models.BusinessConnection{
		ConnectionID:  bc.ID,
		OwnerID:       bc.User.ID,
		OwnerUsername: bc.User.Username,
		OwnerChatID:   bc.UserChatID,
		Enabled:       bc.IsEnabled,
	})
	if err != nil {
		// Sessions still work for this process lifetime.
		h.logger.Error("Failed to persist business connection", zap.String("bot_id", bc.ID), zap.Error(err))
	}

	if !bc.IsEnabled {
		h.sessions.Close(bc.ID)
		h.owners.CompareAndDelete(bc.User.ID, bc.ID)
		return nil
	}
	h.openSession(bc.ID, bc.User.ID, bc.User.Username)
	return nil
}

func (h *MessageHandler) openSession(connectionID string, ownerID int64, username string) *recovery.Session {
	self := strconv.FormatInt(ownerID, 10)
	sess := h.sessions.Open(connectionID, self)
	if username != "" {
		sess.LearnAlias("@"+username, self)
	}
	h.owners.Store(ownerID, connectionID)
	return sess
}

// EnsureSession returns the session of connectionID, asking Telegram for the
// connection details when it has not been seen yet.
func (h *MessageHandler) EnsureSession(ctx context.Context, connectionID string) (*recovery.Session, error) {
	if connectionID == "" {
		return nil, errors.New("update has no business connection id")
	}
	if sess, ok := h.sessions.Lookup(connectionID); ok {
		return sess, nil
	}
	bc, err := h.bot.GetBusinessConnection(ctx, &telego.GetBusinessConnectionParams{BusinessConnectionID: connectionID})
	if err != nil {
		return nil, fmt.Errorf("failed to get business connection %s: %w", connectionID, err)
	}
	if !bc.IsEnabled {
		return nil, fmt.Errorf("business connection %s is disabled", connectionID)
	}
	if err := h.register(ctx, *bc); err != nil {
		return nil, err
	}
	sess, ok := h.sessions.Lookup(connectionID)
	if !ok {
		return nil, fmt.Errorf("session for %s was closed concurrently", connectionID)
	}
	return sess, nil
}

// ConnectionFor returns the enabled business connection owned by userID.
func (h *MessageHandler) ConnectionFor(ctx context.Context, userID int64) (string, error) {
	if v, ok := h.owners.Load(userID); ok {
		return v.(string), nil
	}
	conn, err := h.connections.ConnectionByOwner(ctx, userID)
	if err != nil {
		return "", err
	}
	h.openSession(conn.ConnectionID, conn.OwnerID, conn.OwnerUsername)
	return conn.ConnectionID, nil
}

// RestoreConnections reopens sessions for every connection stored as enabled.
func (h *MessageHandler) RestoreConnections(ctx context.Context) (int, error) {
	conns, err := h.connections.EnabledConnections(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load business connections: %w", err)
	}
	for _, c := range conns {
		h.openSession(c.ConnectionID, c.OwnerID, c.OwnerUsername)
	}
	h.logger.Info("Business connections restored", zap.Int("count", len(conns)))
	return len(conns), nil
}

// isNoConnection reports whether err means the user has no connection.
func isNoConnection(err error) bool {
	return errors.Is(err, database.ErrConnectionNotFound)
}
