package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"antidelete-bot/internal/locales"
	"antidelete-bot/internal/msgcache"
	"antidelete-bot/internal/policy"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

// ErrNothingToRestore is returned when Restore is called without an entry.
var ErrNothingToRestore = errors.New("no captured entry to restore")

// Conversation identifies where a deletion happened.
type Conversation struct {
	BotID   string
	ID      string
	IsGroup bool
}

// Recovered holds the entry taken from the store. Exactly one field is set.
type Recovered struct {
	Text  *msgcache.CapturedText
	Media *msgcache.CapturedMedia
}

func (r Recovered) empty() bool { return r.Text == nil && r.Media == nil }

func (r Recovered) sender() string {
	switch {
	case r.Text != nil:
		return r.Text.SenderIdentity
	case r.Media != nil:
		return r.Media.SenderIdentity
	}
	return ""
}

// RestorerOptions configures a Restorer.
type RestorerOptions struct {
	Language string
	Location *time.Location
	Limiter  ratelimit.Limiter
	Logger   *zap.Logger
}

// Restorer redelivers recovered content with a notice explaining it.
type Restorer struct {
	platform  Platform
	localizer *i18n.Localizer
	location  *time.Location
	limiter   ratelimit.Limiter
	logger    *zap.Logger
}

// NewRestorer creates a Restorer sending through platform.
func NewRestorer(platform Platform, opts RestorerOptions) *Restorer {
	if opts.Language == "" {
		opts.Language = locales.DefaultLanguage
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewUnlimited()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Restorer{
		platform:  platform,
		localizer: locales.NewLocalizer(opts.Language, locales.DefaultLanguage),
		location:  opts.Location,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
	}
}

// Destination picks where a restoration for conv is delivered. The second
// result is true when that is the conversation itself.
func Destination(conv Conversation, p policy.Policy) (string, bool) {
	if !conv.IsGroup && p.ForwardToAlternate && p.AlternateDestination != "" {
		return p.AlternateDestination, p.AlternateDestination == conv.ID
	}
	return conv.ID, true
}

// Restore sends rec once. Send failures are returned and never retried.
func (r *Restorer) Restore(ctx context.Context, rec Recovered, deleting string, conv Conversation, p policy.Policy) error {
	if rec.empty() {
		return ErrNothingToRestore
	}
	dest, inConversation := Destination(conv, p)

	var insertedAt time.Time
	var sender string
	if rec.Text != nil {
		insertedAt, sender = rec.Text.InsertedAt, rec.Text.SenderIdentity
	} else {
		insertedAt, sender = rec.Media.InsertedAt, rec.Media.SenderIdentity
	}
	lines, mentions := r.notice(deleting, sender, conv, inConversation)
	lines = append(lines, r.msg("MsgRecoveredSentAt", map[string]interface{}{
		"Time": insertedAt.In(r.location).Format(timestampLayout),
	}))

	out := Outbound{
		BotID:          conv.BotID,
		Destination:    dest,
		InConversation: inConversation,
		Mentions:       mentions,
	}
	if rec.Text != nil {
		out.Text = strings.Join(lines, "\n") + "\n\n" + rec.Text.Content
	} else {
		lines = append(lines, r.msg("MsgRecoveredKind", map[string]interface{}{
			"Kind": r.kindName(rec.Media.Kind),
		}))
		if rec.Media.Caption != "" {
			lines = append(lines, r.msg("MsgRecoveredCaption", map[string]interface{}{
				"Caption": rec.Media.Caption,
			}))
		}
		out.Text = strings.Join(lines, "\n")
		out.Media = &OutboundMedia{Kind: rec.Media.Kind, FileName: rec.Media.FileName, Payload: rec.Media.Payload}
	}
	return r.send(ctx, out)
}

// NotifyUnrecoverable tells the destination a message was deleted but
// nothing was retained for it.
func (r *Restorer) NotifyUnrecoverable(ctx context.Context, deleting string, conv Conversation, p policy.Policy) error {
	dest, inConversation := Destination(conv, p)
	lines := []string{r.msg("MsgNotRecoverable", nil)}
	var mentions []string
	if deleting != "" && deleting != conv.ID {
		lines = append(lines, r.msg("MsgRecoveredDeletedBy", map[string]interface{}{"Actor": MentionToken(deleting)}))
		mentions = append(mentions, deleting)
	}
	if !inConversation {
		lines = append(lines, r.msg("MsgRecoveredChat", map[string]interface{}{"Chat": conv.ID}))
	}
	return r.send(ctx, Outbound{
		BotID:          conv.BotID,
		Destination:    dest,
		InConversation: inConversation,
		Text:           strings.Join(lines, "\n"),
		Mentions:       mentions,
	})
}

func (r *Restorer) notice(deleting, sender string, conv Conversation, inConversation bool) ([]string, []string) {
	lines := []string{r.msg("MsgRecoveredHeader", nil)}
	var mentions []string

	// In a direct chat the remote party is the conversation itself.
	if deleting != "" && deleting != conv.ID {
		lines = append(lines, r.msg("MsgRecoveredDeletedBy", map[string]interface{}{"Actor": MentionToken(deleting)}))
		mentions = append(mentions, deleting)
	}
	if conv.IsGroup && sender != "" && sender != deleting {
		lines = append(lines, r.msg("MsgRecoveredSender", map[string]interface{}{"Sender": MentionToken(sender)}))
		mentions = append(mentions, sender)
	}
	if !inConversation {
		lines = append(lines, r.msg("MsgRecoveredChat", map[string]interface{}{"Chat": conv.ID}))
	}
	return lines, mentions
}

func (r *Restorer) send(ctx context.Context, out Outbound) error {
	r.limiter.Take()
	if err := r.platform.Send(ctx, out); err != nil {
		err = fmt.Errorf("failed to deliver restoration to %s: %w", out.Destination, err)
		r.logger.Error("Restoration send failed",
			zap.String("bot_id", out.BotID),
			zap.String("destination", out.Destination),
			zap.Error(err))
		sentry.CaptureException(err)
		return err
	}
	return nil
}

func (r *Restorer) kindName(kind msgcache.MediaKind) string {
	switch kind {
	case msgcache.MediaImage:
		return r.msg("MediaKindImage", nil)
	case msgcache.MediaVideo:
		return r.msg("MediaKindVideo", nil)
	case msgcache.MediaAudio:
		return r.msg("MediaKindAudio", nil)
	case msgcache.MediaVoice:
		return r.msg("MediaKindVoice", nil)
	case msgcache.MediaSticker:
		return r.msg("MediaKindSticker", nil)
	default:
		return r.msg("MediaKindDocument", nil)
	}
}

func (r *Restorer) msg(id string, data map[string]interface{}) string {
	return locales.GetMessage(r.localizer, id, data, nil)
}

// MentionToken renders an identity the way it appears in Outbound.Text for
// each entry of Outbound.Mentions.
func MentionToken(id string) string {
	if strings.HasPrefix(id, "@") {
		return id
	}
	return "@" + id
}
