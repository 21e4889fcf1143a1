package telegram

import (
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"antidelete-bot/internal/msgcache"
	"antidelete-bot/internal/recovery"
)

// IsGroupChat reports whether chat is a group or supergroup.
func IsGroupChat(chat telego.Chat) bool {
	return chat.Type == telego.ChatTypeGroup || chat.Type == telego.ChatTypeSupergroup
}

// IsBroadcastChat reports whether chat is a channel.
func IsBroadcastChat(chat telego.Chat) bool {
	return chat.Type == telego.ChatTypeChannel
}

// SenderIdentity returns the id of whoever sent msg: the user, or the chat
// it was sent on behalf of.
func SenderIdentity(msg telego.Message) (id, alias string) {
	switch {
	case msg.From != nil:
		id = strconv.FormatInt(msg.From.ID, 10)
		if msg.From.Username != "" {
			alias = "@" + msg.From.Username
		}
	case msg.SenderChat != nil:
		id = strconv.FormatInt(msg.SenderChat.ID, 10)
		if msg.SenderChat.Username != "" {
			alias = "@" + msg.SenderChat.Username
		}
	}
	return id, alias
}

// IncomingFromMessage converts a message into a capture event. Messages
// without text or supported media are reported as not ok.
func IncomingFromMessage(msg telego.Message) (recovery.IncomingMessage, bool) {
	sender, alias := SenderIdentity(msg)
	in := recovery.IncomingMessage{
		MessageID:      MessageKey(msg.Chat.ID, msg.MessageID),
		ConversationID: ConversationID(msg.Chat.ID),
		IsGroup:        IsGroupChat(msg.Chat),
		IsBroadcast:    IsBroadcastChat(msg.Chat),
		SenderIdentity: sender,
		SenderAlias:    alias,
		Text:           msg.Text,
		Caption:        msg.Caption,
		Media:          MediaFromMessage(msg),
	}
	if in.Media == nil && in.Text == "" {
		return in, false
	}
	return in, true
}

// MediaFromMessage returns a reference to the media in msg, or nil.
// For photos the largest size is used.
func MediaFromMessage(msg telego.Message) *recovery.MediaRef {
	switch {
	case len(msg.Photo) > 0:
		best := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}
		return &recovery.MediaRef{FileID: best.FileID, Kind: msgcache.MediaImage, FileName: "photo.jpg", Size: int64(best.FileSize)}
	case msg.Video != nil:
		return &recovery.MediaRef{FileID: msg.Video.FileID, Kind: msgcache.MediaVideo, FileName: nameOr(msg.Video.FileName, "video.mp4"), Size: int64(msg.Video.FileSize)}
	case msg.Animation != nil:
		return &recovery.MediaRef{FileID: msg.Animation.FileID, Kind: msgcache.MediaVideo, FileName: nameOr(msg.Animation.FileName, "animation.mp4"), Size: int64(msg.Animation.FileSize)}
	case msg.VideoNote != nil:
		return &recovery.MediaRef{FileID: msg.VideoNote.FileID, Kind: msgcache.MediaVideo, FileName: "video_note.mp4", Size: int64(msg.VideoNote.FileSize)}
	case msg.Voice != nil:
		return &recovery.MediaRef{FileID: msg.Voice.FileID, Kind: msgcache.MediaVoice, FileName: "voice.ogg", Size: int64(msg.Voice.FileSize)}
	case msg.Audio != nil:
		return &recovery.MediaRef{FileID: msg.Audio.FileID, Kind: msgcache.MediaAudio, FileName: nameOr(msg.Audio.FileName, "audio.mp3"), Size: int64(msg.Audio.FileSize)}
	case msg.Sticker != nil:
		return &recovery.MediaRef{FileID: msg.Sticker.FileID, Kind: msgcache.MediaSticker, FileName: stickerName(msg.Sticker), Size: int64(msg.Sticker.FileSize)}
	case msg.Document != nil:
		return &recovery.MediaRef{FileID: msg.Document.FileID, Kind: msgcache.MediaDocument, FileName: nameOr(msg.Document.FileName, "document"), Size: int64(msg.Document.FileSize)}
	}
	return nil
}

// DeletionsFromUpdate expands a business deletion update into one
// notification per message. Telegram does not report who deleted, so the
// actor is left empty.
func DeletionsFromUpdate(ev telego.BusinessMessagesDeleted) []recovery.DeletionNotification {
	out := make([]recovery.DeletionNotification, 0, len(ev.MessageIDs))
	for _, id := range ev.MessageIDs {
		out = append(out, recovery.DeletionNotification{
			MessageID:      MessageKey(ev.Chat.ID, id),
			ConversationID: ConversationID(ev.Chat.ID),
			IsGroup:        IsGroupChat(ev.Chat),
			IsBroadcast:    IsBroadcastChat(ev.Chat),
		})
	}
	return out
}

// ContainsLink reports whether msg carries a URL in its text or caption.
func ContainsLink(msg telego.Message) bool {
	for _, entities := range [][]telego.MessageEntity{msg.Entities, msg.CaptionEntities} {
		for _, e := range entities {
			if e.Type == telego.EntityTypeURL || e.Type == telego.EntityTypeTextLink {
				return true
			}
		}
	}
	return false
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

func stickerName(s *telego.Sticker) string {
	switch {
	case s.IsVideo:
		return "sticker.webm"
	case s.IsAnimated:
		return "sticker.tgs"
	default:
		return "sticker.webp"
	}
}
