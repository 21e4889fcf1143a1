package handlers

import (
	"context"
	"strings"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"antidelete-bot/internal/locales"
	"antidelete-bot/internal/recovery"
	"antidelete-bot/internal/telegram"
)

// HandleBusinessMessage captures a message received or sent on a business account.
// Edited messages go through the same path and replace the captured copy.
func (h *MessageHandler) HandleBusinessMessage(ctx context.Context, message telego.Message) error {
	sess, err := h.EnsureSession(ctx, message.BusinessConnectionID)
	if err != nil {
		return err
	}
	in, ok := telegram.IncomingFromMessage(message)
	if !ok {
		h.logger.Debug("Ignoring business message without capturable content",
			zap.String("bot_id", sess.BotID()), zap.Int("message_id", message.MessageID))
		return nil
	}
	sess.OnIncomingMessage(ctx, in)
	return nil
}

// HandleDeletedBusinessMessages feeds every deleted message id to the session
// and returns the outcome of each.
func (h *MessageHandler) HandleDeletedBusinessMessages(ctx context.Context, deleted telego.BusinessMessagesDeleted) ([]recovery.Outcome, error) {
	sess, err := h.EnsureSession(ctx, deleted.BusinessConnectionID)
	if err != nil {
		return nil, err
	}
	notifications := telegram.DeletionsFromUpdate(deleted)
	outcomes := make([]recovery.Outcome, 0, len(notifications))
	for _, ev := range notifications {
		outcome := sess.OnDeletionNotification(ctx, ev)
		h.logger.Debug("Deletion handled",
			zap.String("bot_id", sess.BotID()),
			zap.String("message_id", ev.MessageID),
			zap.String("outcome", string(outcome)))
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// HandleMessage processes a message sent to the bot itself: commands in
// private chats and link moderation in groups.
func (h *MessageHandler) HandleMessage(ctx context.Context, message telego.Message) error {
	if telegram.IsGroupChat(message.Chat) {
		_, err := h.HandleGroupMessage(ctx, message)
		return err
	}
	if message.From == nil || !strings.HasPrefix(message.Text, "/") {
		return nil
	}

	command := commandName(message.Text)
	handler := h.GetCommandHandler(command)
	if handler == nil {
		localizer := h.getLocalizer(message.From)
		h.sendText(ctx, message.Chat.ID, locales.GetMessage(localizer, "MsgErrorUnknownCommand", nil, nil))
		return nil
	}
	return handler(ctx, message)
}

// commandName extracts "antidelete" from "/antidelete@my_bot off".
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}
