package msgcache

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind is the type of a captured media message.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
	MediaVoice    MediaKind = "voice"
	MediaSticker  MediaKind = "sticker"
)

// ParseMediaKind validates a media kind name.
func ParseMediaKind(s string) (MediaKind, error) {
	k := MediaKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case MediaImage, MediaVideo, MediaDocument, MediaAudio, MediaVoice, MediaSticker:
		return k, nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// CapturedText is a retained text message.
type CapturedText struct {
	MessageID      string
	Content        string
	SenderIdentity string
	InsertedAt     time.Time
}

// CapturedMedia is a retained media message with its downloaded payload.
type CapturedMedia struct {
	MessageID      string
	Payload        []byte
	Kind           MediaKind
	// FileName is the name the file was sent with, e.g. "contract.pdf".
	FileName       string
	Caption        string
	SenderIdentity string
	InsertedAt     time.Time
}

func (c *CapturedText) insertedAt() time.Time  { return c.InsertedAt }
func (c *CapturedMedia) insertedAt() time.Time { return c.InsertedAt }
