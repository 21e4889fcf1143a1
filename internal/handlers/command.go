package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"

	"antidelete-bot/internal/locales"
	"antidelete-bot/internal/policy"
	"antidelete-bot/internal/telegram"
)

// HandleStart handles the /start command.
func (h *MessageHandler) HandleStart(ctx context.Context, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	h.recordAction(ctx, message.From.ID, ActionCommandStart, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})
	h.sendText(ctx, message.Chat.ID, locales.GetMessage(localizer, "MsgStart", nil, nil))
	return nil
}

// HandleAntidelete handles /antidelete and its sub-commands:
//
//	/antidelete                         show settings
//	/antidelete off|direct|group|both   set mode
//	/antidelete exclude <chat id>       toggle exclusion
//	/antidelete forward on|off          send direct-chat recoveries to the owner
//	/antidelete help                    usage
func (h *MessageHandler) HandleAntidelete(ctx context.Context, message telego.Message) error {
	chatID := message.Chat.ID
	localizer := h.getLocalizer(message.From)

	if message.Chat.Type != telego.ChatTypePrivate {
		h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgErrorNotOwner", nil, nil))
		return nil
	}
	botID, err := h.ConnectionFor(ctx, message.From.ID)
	if isNoConnection(err) {
		h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgErrorNoConnection", nil, nil))
		return nil
	}
	if err != nil {
		return h.sendError(ctx, chatID, localizer, err)
	}

	args := strings.Fields(message.Text)[1:]
	userID := message.From.ID
	logger := h.logger.With(zap.String("bot_id", botID), zap.Int64("user_id", userID))

	if len(args) == 0 {
		h.recordAction(ctx, userID, ActionCommandAntidelete, map[string]interface{}{"bot_id": botID})
		h.sendText(ctx, chatID, h.policyStatus(ctx, botID, localizer))
		return nil
	}

	switch sub := strings.ToLower(args[0]); sub {
	case "help":
		h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgPolicyUsage", nil, nil))
		return nil

	case "exclude":
		if len(args) < 2 {
			h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgPolicyUsage", nil, nil))
			return nil
		}
		chat, err := telegram.ParseChatID(args[1])
		if err != nil {
			h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgPolicyInvalidChat", map[string]interface{}{"Chat": args[1]}, nil))
			return nil
		}
		conversation := telegram.ConversationID(chat)
		excluded, err := h.policies.ToggleExclusion(ctx, botID, conversation)
		if err != nil {
			return h.sendError(ctx, chatID, localizer, err)
		}
		logger.Info("Exclusion toggled", zap.String("conversation_id", conversation), zap.Bool("excluded", excluded))
		h.recordAction(ctx, userID, ActionToggleExclusion, map[string]interface{}{
			"bot_id": botID, "conversation_id": conversation, "excluded": excluded,
		})
		key := "MsgPolicyIncluded"
		if excluded {
			key = "MsgPolicyExcluded"
		}
		h.sendText(ctx, chatID, locales.GetMessage(localizer, key, map[string]interface{}{"Chat": conversation}, nil))
		return nil

	case "forward":
		if len(args) < 2 {
			h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgPolicyUsage", nil, nil))
			return nil
		}
		forward, ok := parseSwitch(args[1])
		if !ok {
			h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgPolicyUsage", nil, nil))
			return nil
		}
		if forward {
			if err := h.policies.SetAlternateDestination(ctx, botID, telegram.ConversationID(chatID)); err != nil {
				return h.sendError(ctx, chatID, localizer, err)
			}
		}
		if err := h.policies.SetForwardToAlternate(ctx, botID, forward); err != nil {
			return h.sendError(ctx, chatID, localizer, err)
		}
		logger.Info("Forwarding changed", zap.Bool("forward", forward))
		h.recordAction(ctx, userID, ActionSetForward, map[string]interface{}{"bot_id": botID, "forward": forward})
		key := "MsgPolicyForwardOff"
		if forward {
			key = "MsgPolicyForwardOn"
		}
		h.sendText(ctx, chatID, locales.GetMessage(localizer, key, nil, nil))
		return nil

	default:
		mode, err := policy.ParseMode(sub)
		if errors.Is(err, policy.ErrInvalidMode) {
			h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgPolicyUsage", nil, nil))
			return nil
		}
		if err := h.policies.SetMode(ctx, botID, mode); err != nil {
			return h.sendError(ctx, chatID, localizer, err)
		}
		logger.Info("Capture mode changed", zap.String("mode", string(mode)))
		h.recordAction(ctx, userID, ActionSetMode, map[string]interface{}{"bot_id": botID, "mode": string(mode)})
		h.sendText(ctx, chatID, locales.GetMessage(localizer, "MsgPolicyModeSet", map[string]interface{}{"Mode": string(mode)}, nil))
		return nil
	}
}

func (h *MessageHandler) policyStatus(ctx context.Context, botID string, localizer *i18n.Localizer) string {
	p := h.policies.Policy(ctx, botID)
	forward := locales.GetMessage(localizer, "MsgNo", nil, nil)
	if p.ForwardToAlternate {
		forward = locales.GetMessage(localizer, "MsgYes", nil, nil)
	}
	excluded := strings.Join(p.ExcludedList(), ", ")
	if excluded == "" {
		excluded = locales.GetMessage(localizer, "MsgPolicyNone", nil, nil)
	}
	return locales.GetMessage(localizer, "MsgPolicyStatus", map[string]interface{}{
		"Mode":     string(p.Mode),
		"Forward":  forward,
		"Excluded": excluded,
	}, nil)
}

func parseSwitch(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "yes", "true", "1":
		return true, true
	case "off", "no", "false", "0":
		return false, true
	}
	return false, false
}
