package recovery

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// OnDeletionNotification correlates a deletion with captured content and
// restores it when allowed. It never panics and never returns an error; the
// outcome is reported for logging and tests.
func (s *Session) OnDeletionNotification(ctx context.Context, ev DeletionNotification) (outcome Outcome) {
	logger := s.logger.With(
		zap.String("message_id", ev.MessageID),
		zap.String("conversation_id", ev.ConversationID))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while correlating deletion: %v", r)
			logger.Error("Recovered from panic in deletion handling", zap.Error(err))
			sentry.CaptureException(err)
			outcome = OutcomeDiscarded
		}
		logger.Debug("Deletion handled", zap.String("outcome", string(outcome)))
	}()

	if s.isClosed() || ev.MessageID == "" || ev.ConversationID == "" {
		return OutcomeDiscarded
	}
	if ev.IsBroadcast || IsStatusBroadcast(ev.ConversationID) {
		return OutcomeDiscarded
	}

	deleting, bySelf := s.resolveDeleter(ev)
	if bySelf || s.ledger.IsSuppressed(ev.MessageID) {
		return OutcomeSuppressed
	}

	if s.policies == nil {
		return OutcomeOutOfScope
	}
	pol := s.policies.Policy(ctx, s.botID)
	if !pol.Allows(ev.ConversationID, ev.IsGroup) {
		return OutcomeOutOfScope
	}

	conv := Conversation{BotID: s.botID, ID: ev.ConversationID, IsGroup: ev.IsGroup}

	var rec Recovered
	if text, ok := s.store.TakeText(ev.MessageID); ok {
		rec.Text = text
	} else if media, ok := s.store.TakeMedia(ev.MessageID); ok {
		rec.Media = media
	}

	// The platform may not say who deleted a direct message. The account's
	// own messages are never restored into the chat they were deleted from.
	if !ev.IsGroup && !rec.empty() && s.aliases.Same(rec.sender(), s.Self()) {
		logger.Debug("Own message deleted, not restored")
		return OutcomeSuppressed
	}

	if rec.empty() {
		if err := s.restorer.NotifyUnrecoverable(ctx, deleting, conv, pol); err != nil {
			return OutcomeSendFailed
		}
		return OutcomeNotRestorable
	}

	if err := s.restorer.Restore(ctx, rec, deleting, conv, pol); err != nil {
		return OutcomeSendFailed
	}
	logger.Info("Deleted message restored", zap.String("deleted_by", deleting))
	return OutcomeRestored
}

// resolveDeleter returns the canonical identity behind a deletion and
// whether that identity is the account the bot acts as. An empty identity
// means the actor is unknown.
func (s *Session) resolveDeleter(ev DeletionNotification) (string, bool) {
	self := s.Self()
	if ev.IsGroup {
		actor := s.aliases.Resolve(ev.ReportedActor)
		return actor, s.aliases.Same(actor, self)
	}
	if ev.FromSelf {
		return self, true
	}
	remote := s.aliases.Resolve(ev.ConversationID)
	return remote, s.aliases.Same(remote, self)
}
