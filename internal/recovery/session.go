package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"antidelete-bot/internal/identity"
	"antidelete-bot/internal/msgcache"
	"antidelete-bot/internal/suppression"
)

// DefaultMediaFetchTimeout bounds a single media download during capture.
const DefaultMediaFetchTimeout = 20 * time.Second

// SessionConfig holds the per-session tunables.
type SessionConfig struct {
	Store             msgcache.Options
	SuppressionWindow time.Duration
	MediaFetchTimeout time.Duration
	// Clock overrides time.Now for the store and the ledger.
	Clock func() time.Time
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Policies PolicySource
	Platform Platform
	Restorer *Restorer
	Logger   *zap.Logger
	Config   SessionConfig
}

// Session is the anti-delete state of one bot identity: its captured
// messages, its own deletions and the aliases it has learned.
type Session struct {
	botID string

	mu     sync.RWMutex
	self   string
	closed bool

	store    *msgcache.Store
	ledger   *suppression.Ledger
	aliases  *identity.Directory
	policies PolicySource
	platform Platform
	restorer *Restorer
	logger   *zap.Logger

	fetchTimeout time.Duration
}

// NewSession creates a session for botID acting as the account self.
func NewSession(botID, self string, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("bot_id", botID))

	cfg := deps.Config
	var storeOpts []msgcache.Option
	storeOpts = append(storeOpts, msgcache.WithLogger(logger))
	ledger := suppression.NewLedger(cfg.SuppressionWindow)
	if cfg.Clock != nil {
		storeOpts = append(storeOpts, msgcache.WithClock(cfg.Clock))
		ledger = ledger.WithClock(cfg.Clock)
	}
	if cfg.MediaFetchTimeout <= 0 {
		cfg.MediaFetchTimeout = DefaultMediaFetchTimeout
	}

	restorer := deps.Restorer
	if restorer == nil {
		restorer = NewRestorer(deps.Platform, RestorerOptions{Logger: logger})
	}

	return &Session{
		botID:        botID,
		self:         identity.Canonical(self),
		store:        msgcache.New(cfg.Store, storeOpts...),
		ledger:       ledger,
		aliases:      identity.NewDirectory(),
		policies:     deps.Policies,
		platform:     deps.Platform,
		restorer:     restorer,
		logger:       logger,
		fetchTimeout: cfg.MediaFetchTimeout,
	}
}

// BotID returns the identity this session serves.
func (s *Session) BotID() string { return s.botID }

// Self returns the canonical identity of the account the bot acts as.
func (s *Session) Self() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

// SetSelf updates the account identity, e.g. after a connection update.
func (s *Session) SetSelf(self string) {
	s.mu.Lock()
	s.self = identity.Canonical(self)
	s.mu.Unlock()
}

// LearnAlias records that alias names the same account as primary.
func (s *Session) LearnAlias(alias, primary string) {
	s.aliases.Learn(alias, primary)
}

// OnIncomingMessage captures msg when the current policy allows it. It
// never fails: anything that cannot be captured is simply not retained.
func (s *Session) OnIncomingMessage(ctx context.Context, msg IncomingMessage) {
	if s.isClosed() {
		return
	}
	if msg.MessageID == "" || msg.ConversationID == "" {
		s.logger.Debug("Ignoring message without id or conversation")
		return
	}
	if msg.IsBroadcast || IsStatusBroadcast(msg.ConversationID) {
		return
	}
	if msg.SenderAlias != "" {
		s.aliases.Learn(msg.SenderAlias, msg.SenderIdentity)
	}
	if s.policies == nil || !s.policies.ShouldCapture(ctx, s.botID, msg.ConversationID, msg.IsGroup) {
		return
	}

	logger := s.logger.With(
		zap.String("message_id", msg.MessageID),
		zap.String("conversation_id", msg.ConversationID))
	sender := s.aliases.Resolve(msg.SenderIdentity)

	if msg.Media == nil {
		if msg.Text == "" {
			return
		}
		s.store.InsertText(msg.MessageID, msg.Text, sender)
		return
	}

	if limit := int64(s.store.Options().MaxMediaBytes); msg.Media.Size > 0 && msg.Media.Size > limit {
		logger.Debug("Media too large to capture", zap.Int64("size", msg.Media.Size))
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	payload, err := s.platform.FetchMedia(fetchCtx, *msg.Media)
	if err != nil {
		logger.Debug("Media capture failed, message not retained", zap.Error(err))
		return
	}
	if err := s.store.InsertMedia(msg.MessageID, payload, msg.Media.Kind, msg.Media.FileName, msg.Caption, sender); err != nil {
		logger.Debug("Media not retained", zap.Error(err))
	}
}

// DeleteMessage deletes a message on behalf of the bot. The message is
// marked suppressed before the platform call so the resulting deletion
// notification is never restored.
func (s *Session) DeleteMessage(ctx context.Context, conversationID, messageID, participant string) error {
	s.ledger.MarkSuppressed(messageID)
	if err := s.platform.DeleteMessage(ctx, s.botID, conversationID, messageID, participant); err != nil {
		return fmt.Errorf("failed to delete message %s in %s: %w", messageID, conversationID, err)
	}
	return nil
}

// Sweep drops expired captures and suppression marks.
func (s *Session) Sweep(now time.Time) (entries, suppressed int) {
	return s.store.Sweep(now), s.ledger.Sweep(now)
}

// Stats reports how many entries the session currently holds.
func (s *Session) Stats() (text, media, suppressed int) {
	text, media = s.store.Len()
	return text, media, s.ledger.Len()
}

// Close releases everything the session retains. Later events are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.store.Clear()
	s.ledger.Clear()
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
