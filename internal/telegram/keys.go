// Package telegram adapts Telegram Business updates to the recovery
// subsystem and implements its Platform boundary over telego.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupSessionPrefix marks sessions for chats the bot is itself a member of,
// as opposed to business connections.
const GroupSessionPrefix = "bot:"

// Telegram message ids are only unique within a chat, so captured content
// is keyed by chat and message together.

// MessageKey builds the store key for a message.
func MessageKey(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}

// ParseMessageKey splits a key built by MessageKey.
func ParseMessageKey(key string) (chatID int64, messageID int, err error) {
	sep := strings.LastIndexByte(key, ':')
	if sep <= 0 || sep == len(key)-1 {
		return 0, 0, fmt.Errorf("malformed message key %q", key)
	}
	chatID, err = strconv.ParseInt(key[:sep], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed chat id in message key %q: %w", key, err)
	}
	messageID, err = strconv.Atoi(key[sep+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed message id in message key %q: %w", key, err)
	}
	return chatID, messageID, nil
}

// ConversationID renders a chat id the way the recovery subsystem sees it.
func ConversationID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// ParseChatID is the inverse of ConversationID.
func ParseChatID(conversationID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(conversationID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", conversationID, err)
	}
	return id, nil
}

// GroupSessionID is the session key for groups the bot with botUserID is in.
func GroupSessionID(botUserID int64) string {
	return GroupSessionPrefix + strconv.FormatInt(botUserID, 10)
}

// IsGroupSession reports whether botID was built by GroupSessionID.
func IsGroupSession(botID string) bool {
	return strings.HasPrefix(botID, GroupSessionPrefix)
}
