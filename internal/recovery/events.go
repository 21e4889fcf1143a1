package recovery

import (
	"context"

	"antidelete-bot/internal/msgcache"
	"antidelete-bot/internal/policy"
)

// StatusBroadcastID is the reserved conversation used for status/story
// broadcasts. Nothing in it is captured or restored.
const StatusBroadcastID = "status@broadcast"

// IsStatusBroadcast reports whether conversationID is the reserved broadcast channel.
func IsStatusBroadcast(conversationID string) bool {
	return conversationID == StatusBroadcastID
}

// MediaRef points at downloadable media on the platform.
type MediaRef struct {
	FileID   string
	Kind     msgcache.MediaKind
	FileName string
	Size     int64
}

// IncomingMessage is one inbound message as seen by the capture path.
// Media is nil for text messages.
type IncomingMessage struct {
	MessageID      string
	ConversationID string
	IsGroup        bool
	IsBroadcast    bool
	SenderIdentity string
	// SenderAlias is another identifier for the same sender, e.g. "@username".
	SenderAlias string
	Text        string
	Caption     string
	Media       *MediaRef
}

// DeletionNotification is one platform report that a message was deleted.
// ReportedActor may be empty.
type DeletionNotification struct {
	MessageID      string
	ConversationID string
	IsGroup        bool
	IsBroadcast    bool
	ReportedActor  string
	// FromSelf is set when the platform attributes the deletion to the
	// account this bot acts as.
	FromSelf bool
}

// OutboundMedia is a media payload to redeliver.
type OutboundMedia struct {
	Kind     msgcache.MediaKind
	FileName string
	Payload  []byte
}

// Outbound is a single message to send through the platform.
type Outbound struct {
	BotID       string
	Destination string
	// InConversation is true when the destination is the conversation the
	// deletion happened in, so the platform sends on behalf of the account.
	InConversation bool
	Text           string
	// Mentions lists identities referenced as "@<identity>" in Text.
	Mentions []string
	Media    *OutboundMedia
}

// Platform is the subset of the chat client this subsystem needs.
type Platform interface {
	Send(ctx context.Context, out Outbound) error
	FetchMedia(ctx context.Context, ref MediaRef) ([]byte, error)
	DeleteMessage(ctx context.Context, botID, conversationID, messageID, participant string) error
}

// PolicySource answers capture-policy questions for a bot identity.
type PolicySource interface {
	ShouldCapture(ctx context.Context, botID, conversationID string, isGroup bool) bool
	Policy(ctx context.Context, botID string) policy.Policy
}

// Outcome is the terminal state a deletion notification reached.
type Outcome string

const (
	OutcomeDiscarded     Outcome = "discarded"
	OutcomeSuppressed    Outcome = "suppressed"
	OutcomeOutOfScope    Outcome = "out_of_scope"
	OutcomeNotRestorable Outcome = "not_restorable"
	OutcomeRestored      Outcome = "restored"
	OutcomeSendFailed    Outcome = "send_failed"
)
