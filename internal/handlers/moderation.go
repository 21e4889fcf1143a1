package handlers

import (
	"context"
	"strconv"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"antidelete-bot/internal/telegram"
)

// HandleGroupMessage deletes links posted by non-admins in groups the bot
// moderates. It reports whether the message was deleted.
func (h *MessageHandler) HandleGroupMessage(ctx context.Context, message telego.Message) (bool, error) {
	if !h.linkModeration || message.From == nil || message.From.IsBot {
		return false, nil
	}
	if !telegram.IsGroupChat(message.Chat) || !telegram.ContainsLink(message) {
		return false, nil
	}

	chatID, userID := message.Chat.ID, message.From.ID
	logger := h.logger.With(zap.Int64("chat_id", chatID), zap.Int64("user_id", userID))

	isAdmin, err := h.adminChecker.IsAdmin(ctx, chatID, userID)
	if err != nil {
		// Leave the message alone when membership is unknown.
		logger.Warn("Skipping link moderation, admin check failed", zap.Error(err))
		return false, nil
	}
	if isAdmin {
		return false, nil
	}

	self := strconv.FormatInt(h.botUserID, 10)
	sess := h.sessions.Open(telegram.GroupSessionID(h.botUserID), self)
	conversation := telegram.ConversationID(chatID)
	messageKey := telegram.MessageKey(chatID, message.MessageID)
	if err := sess.DeleteMessage(ctx, conversation, messageKey, strconv.FormatInt(userID, 10)); err != nil {
		logger.Error("Failed to delete link message", zap.String("message_id", messageKey), zap.Error(err))
		return false, err
	}

	logger.Info("Link message deleted", zap.String("message_id", messageKey))
	h.recordAction(ctx, userID, ActionModerationDelete, map[string]interface{}{
		"chat_id":    chatID,
		"message_id": message.MessageID,
	})
	return true, nil
}
