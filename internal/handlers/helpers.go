package handlers

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"

	"antidelete-bot/internal/locales"
)

// sendText sends a plain reply. Failures are logged, not returned.
func (h *MessageHandler) sendText(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		h.logger.Warn("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendError logs err, tells the user something went wrong and returns err
// so the update loop can report it.
func (h *MessageHandler) sendError(ctx context.Context, chatID int64, localizer *i18n.Localizer, err error) error {
	h.logger.Error("Command failed", zap.Int64("chat_id", chatID), zap.Error(err))
	h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil))
	return err
}

// getLocalizer picks a localizer for user, falling back to the default language.
func (h *MessageHandler) getLocalizer(user *telego.User) *i18n.Localizer {
	if user != nil && user.LanguageCode != "" {
		return locales.NewLocalizer(user.LanguageCode)
	}
	return locales.NewLocalizer(locales.DefaultLanguage)
}

// recordAction writes an entry to the action log.
func (h *MessageHandler) recordAction(ctx context.Context, userID int64, action string, details map[string]interface{}) {
	if err := h.actionLogger.LogUserAction(ctx, userID, action, details); err != nil {
		h.logger.Warn("Failed to log user action",
			zap.Int64("user_id", userID), zap.String("action", action), zap.Error(err))
	}
}
