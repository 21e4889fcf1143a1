package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"antidelete-bot/internal/msgcache"
	"antidelete-bot/internal/recovery"
	telegoapi "antidelete-bot/pkg/telegoapi"
)

const (
	maxTextRunes    = 4096
	maxCaptionRunes = 1024
)

var (
	// ErrDownloadTooLarge is returned when a file exceeds the download limit.
	ErrDownloadTooLarge = errors.New("file exceeds download limit")

	numericMention = regexp.MustCompile(`@(\d+)`)
)

var _ recovery.Platform = (*Client)(nil)

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient       *http.Client
	MaxDownloadBytes int64
	Logger           *zap.Logger
}

// Client implements recovery.Platform on top of the Bot API.
type Client struct {
	api         telegoapi.BotAPI
	http        *http.Client
	maxDownload int64
	logger      *zap.Logger
}

// NewClient wraps api.
func NewClient(api telegoapi.BotAPI, opts ClientOptions) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.MaxDownloadBytes <= 0 {
		opts.MaxDownloadBytes = msgcache.DefaultMaxMediaBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		api:         api,
		http:        opts.HTTPClient,
		maxDownload: opts.MaxDownloadBytes,
		logger:      opts.Logger,
	}
}

// Send delivers out as exactly one Bot API call.
func (c *Client) Send(ctx context.Context, out recovery.Outbound) error {
	chatID, err := ParseChatID(out.Destination)
	if err != nil {
		return err
	}
	// Replies into the original chat go out through the business
	// connection; anything else is sent by the bot itself.
	var connectionID string
	if out.InConversation && !IsGroupSession(out.BotID) {
		connectionID = out.BotID
	}

	if out.Media == nil {
		_, err = c.api.SendMessage(ctx, &telego.SendMessageParams{
			BusinessConnectionID: connectionID,
			ChatID:               tu.ID(chatID),
			Text:                 RenderHTML(c.truncate(out.Text, maxTextRunes), out.Mentions),
			ParseMode:            telego.ModeHTML,
		})
		if err != nil {
			return fmt.Errorf("failed to send message to %d: %w", chatID, err)
		}
		return nil
	}

	caption := RenderHTML(c.truncate(out.Text, maxCaptionRunes), out.Mentions)
	name := out.Media.FileName
	if name == "" {
		name = fileName(out.Media.Kind)
	}
	file := tu.File(tu.NameReader(bytes.NewReader(out.Media.Payload), name))
	switch out.Media.Kind {
	case msgcache.MediaImage:
		_, err = c.api.SendPhoto(ctx, &telego.SendPhotoParams{
			BusinessConnectionID: connectionID, ChatID: tu.ID(chatID), Photo: file, Caption: caption, ParseMode: telego.ModeHTML,
		})
	case msgcache.MediaVideo:
		_, err = c.api.SendVideo(ctx, &telego.SendVideoParams{
			BusinessConnectionID: connectionID, ChatID: tu.ID(chatID), Video: file, Caption: caption, ParseMode: telego.ModeHTML,
		})
	case msgcache.MediaAudio:
		_, err = c.api.SendAudio(ctx, &telego.SendAudioParams{
			BusinessConnectionID: connectionID, ChatID: tu.ID(chatID), Audio: file, Caption: caption, ParseMode: telego.ModeHTML,
		})
	case msgcache.MediaVoice:
		_, err = c.api.SendVoice(ctx, &telego.SendVoiceParams{
			BusinessConnectionID: connectionID, ChatID: tu.ID(chatID), Voice: file, Caption: caption, ParseMode: telego.ModeHTML,
		})
	default:
		// Stickers cannot carry a caption, so they go out as documents.
		_, err = c.api.SendDocument(ctx, &telego.SendDocumentParams{
			BusinessConnectionID: connectionID, ChatID: tu.ID(chatID), Document: file, Caption: caption, ParseMode: telego.ModeHTML,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to send %s to %d: %w", out.Media.Kind, chatID, err)
	}
	return nil
}

// FetchMedia downloads the file behind ref.
func (c *Client) FetchMedia(ctx context.Context, ref recovery.MediaRef) ([]byte, error) {
	if ref.FileID == "" {
		return nil, errors.New("media reference has no file id")
	}
	file, err := c.api.GetFile(ctx, &telego.GetFileParams{FileID: ref.FileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", ref.FileID, err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("file %s has no download path", ref.FileID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.api.FileDownloadURL(file.FilePath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", ref.FileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file %s: status %d", ref.FileID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", ref.FileID, err)
	}
	if int64(len(data)) > c.maxDownload {
		return nil, ErrDownloadTooLarge
	}
	c.logger.Debug("Media downloaded",
		zap.String("file_id", ref.FileID),
		zap.String("file_name", ref.FileName),
		zap.Int("bytes", len(data)))
	return data, nil
}

// DeleteMessage deletes a message the bot can moderate. messageID is a key
// built by MessageKey; participant is not needed on Telegram.
func (c *Client) DeleteMessage(ctx context.Context, botID, conversationID, messageID, participant string) error {
	chatID, msgID, err := ParseMessageKey(messageID)
	if err != nil {
		return err
	}
	if conv := ConversationID(chatID); conv != conversationID {
		return fmt.Errorf("message %s does not belong to chat %s", messageID, conversationID)
	}
	if err := c.api.DeleteMessage(ctx, &telego.DeleteMessageParams{ChatID: tu.ID(chatID), MessageID: msgID}); err != nil {
		return fmt.Errorf("failed to delete message %d in chat %d: %w", msgID, chatID, err)
	}
	return nil
}

// RenderHTML escapes text for HTML parse mode and turns "@<user id>"
// tokens for the listed mentions into user links.
func RenderHTML(text string, mentions []string) string {
	escaped := html.EscapeString(text)
	if len(mentions) == 0 {
		return escaped
	}
	ids := make(map[string]struct{}, len(mentions))
	for _, m := range mentions {
		ids[m] = struct{}{}
	}
	return numericMention.ReplaceAllStringFunc(escaped, func(token string) string {
		id := token[1:]
		if _, ok := ids[id]; !ok {
			return token
		}
		return `<a href="tg://user?id=` + id + `">` + token + `</a>`
	})
}

func (c *Client) truncate(s string, limit int) string {
	n := utf8.RuneCountInString(s)
	if n <= limit {
		return s
	}
	c.logger.Debug("Truncating outbound text", zap.Int("runes", n), zap.Int("limit", limit))
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

func fileName(kind msgcache.MediaKind) string {
	switch kind {
	case msgcache.MediaImage:
		return "photo.jpg"
	case msgcache.MediaVideo:
		return "video.mp4"
	case msgcache.MediaAudio:
		return "audio.mp3"
	case msgcache.MediaVoice:
		return "voice.ogg"
	case msgcache.MediaSticker:
		return "sticker.webp"
	default:
		return "document"
	}
}
