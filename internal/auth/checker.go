// Package auth answers whether a Telegram user administers a chat.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	telegoapi "antidelete-bot/pkg/telegoapi"
)

// DefaultCacheTTL bounds how long a membership answer is reused.
const DefaultCacheTTL = 5 * time.Minute

type cachedStatus struct {
	admin   bool
	expires time.Time
}

// AdminChecker checks administrator status in group chats.
type AdminChecker struct {
	bot    telegoapi.BotAPI
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedStatus
	group singleflight.Group
}

// NewAdminChecker creates a new AdminChecker. A non-positive ttl disables caching.
func NewAdminChecker(bot telegoapi.BotAPI, ttl time.Duration, logger *zap.Logger) (*AdminChecker, error) {
	if bot == nil {
		return nil, fmt.Errorf("telego bot instance cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminChecker{
		bot:    bot,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]cachedStatus),
	}, nil
}

// IsAdmin reports whether userID is an administrator or the creator of chatID.
func (ac *AdminChecker) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	key := fmt.Sprintf("%d:%d", chatID, userID)
	if admin, ok := ac.cached(key); ok {
		return admin, nil
	}

	v, err, _ := ac.group.Do(key, func() (interface{}, error) {
		return ac.fetch(ctx, chatID, userID)
	})
	if err != nil {
		return false, err
	}
	admin := v.(bool)
	if ac.ttl > 0 {
		ac.mu.Lock()
		ac.cache[key] = cachedStatus{admin: admin, expires: ac.now().Add(ac.ttl)}
		ac.mu.Unlock()
	}
	return admin, nil
}

func (ac *AdminChecker) cached(key string) (bool, bool) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	entry, ok := ac.cache[key]
	if !ok {
		return false, false
	}
	if !ac.now().Before(entry.expires) {
		delete(ac.cache, key)
		return false, false
	}
	return entry.admin, true
}

func (ac *AdminChecker) fetch(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := ac.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: chatID},
		UserID: userID,
	})
	if err != nil {
		// A user not found in the chat is simply not an admin.
		if strings.Contains(strings.ToLower(err.Error()), "user not found") {
			return false, nil
		}
		ac.logger.Warn("Failed to check chat member",
			zap.Int64("chat_id", chatID), zap.Int64("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("failed to get chat member info: %w", err)
	}

	status := member.MemberStatus()
	return status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator, nil
}
