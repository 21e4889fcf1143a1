package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"antidelete-bot/internal/msgcache"
	"antidelete-bot/internal/recovery"
	"antidelete-bot/pkg/telegoapi/mocks"
)

func TestMessageKey(t *testing.T) {
	key := MessageKey(-1001234, 42)
	assert.Equal(t, "-1001234:42", key)

	chatID, msgID, err := ParseMessageKey(key)
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234), chatID)
	assert.Equal(t, 42, msgID)

	for _, bad := range []string{"", "42", ":42", "12:", "a:1", "1:b"} {
		_, _, err := ParseMessageKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestGroupSessionID(t *testing.T) {
	id := GroupSessionID(777)
	assert.Equal(t, "bot:777", id)
	assert.True(t, IsGroupSession(id))
	assert.False(t, IsGroupSession("AbCdEf123"))
}

func TestIncomingFromMessage(t *testing.T) {
	t.Run("photo in a group", func(t *testing.T) {
		msg := telego.Message{
			MessageID: 7,
			Chat:      telego.Chat{ID: -100, Type: telego.ChatTypeSupergroup},
			From:      &telego.User{ID: 55, Username: "Alice"},
			Caption:   "look",
			Photo: []telego.PhotoSize{
				{FileID: "small", Width: 90, Height: 90},
				{FileID: "large", Width: 1280, Height: 960, FileSize: 2048},
				{FileID: "medium", Width: 320, Height: 240},
			},
		}
		in, ok := IncomingFromMessage(msg)
		require.True(t, ok)
		assert.Equal(t, "-100:7", in.MessageID)
		assert.Equal(t, "-100", in.ConversationID)
		assert.True(t, in.IsGroup)
		assert.False(t, in.IsBroadcast)
		assert.Equal(t, "55", in.SenderIdentity)
		assert.Equal(t, "@Alice", in.SenderAlias)
		assert.Equal(t, "look", in.Caption)
		require.NotNil(t, in.Media)
		assert.Equal(t, "large", in.Media.FileID)
		assert.Equal(t, msgcache.MediaImage, in.Media.Kind)
		assert.Equal(t, int64(2048), in.Media.Size)
	})

	t.Run("private text", func(t *testing.T) {
		msg := telego.Message{
			MessageID: 1,
			Chat:      telego.Chat{ID: 200, Type: telego.ChatTypePrivate},
			From:      &telego.User{ID: 200},
			Text:      "hello",
		}
		in, ok := IncomingFromMessage(msg)
		require.True(t, ok)
		assert.False(t, in.IsGroup)
		assert.Nil(t, in.Media)
		assert.Equal(t, "hello", in.Text)
		assert.Empty(t, in.SenderAlias)
	})

	t.Run("sticker", func(t *testing.T) {
		msg := telego.Message{
			MessageID: 2,
			Chat:      telego.Chat{ID: 200, Type: telego.ChatTypePrivate},
			Sticker:   &telego.Sticker{FileID: "st", IsVideo: true},
		}
		in, ok := IncomingFromMessage(msg)
		require.True(t, ok)
		assert.Equal(t, msgcache.MediaSticker, in.Media.Kind)
		assert.Equal(t, "sticker.webm", in.Media.FileName)
	})

	t.Run("nothing to capture", func(t *testing.T) {
		msg := telego.Message{MessageID: 3, Chat: telego.Chat{ID: 200, Type: telego.ChatTypePrivate}}
		_, ok := IncomingFromMessage(msg)
		assert.False(t, ok)
	})
}

func TestDeletionsFromUpdate(t *testing.T) {
	events := DeletionsFromUpdate(telego.BusinessMessagesDeleted{
		BusinessConnectionID: "conn",
		Chat:                 telego.Chat{ID: 200, Type: telego.ChatTypePrivate},
		MessageIDs:           []int{5, 6},
	})
	require.Len(t, events, 2)
	assert.Equal(t, "200:5", events[0].MessageID)
	assert.Equal(t, "200:6", events[1].MessageID)
	for _, ev := range events {
		assert.Equal(t, "200", ev.ConversationID)
		assert.False(t, ev.IsGroup)
		assert.False(t, ev.FromSelf)
		assert.Empty(t, ev.ReportedActor)
	}
}

func TestContainsLink(t *testing.T) {
	assert.True(t, ContainsLink(telego.Message{Entities: []telego.MessageEntity{{Type: telego.EntityTypeURL}}}))
	assert.True(t, ContainsLink(telego.Message{CaptionEntities: []telego.MessageEntity{{Type: telego.EntityTypeTextLink}}}))
	assert.False(t, ContainsLink(telego.Message{Entities: []telego.MessageEntity{{Type: telego.EntityTypeBold}}}))
	assert.False(t, ContainsLink(telego.Message{Text: "no entities"}))
}

func TestRenderHTML(t *testing.T) {
	out := RenderHTML("Deleted by: @42\n<b>x</b> & @421 @alice", []string{"42", "@alice"})
	assert.Equal(t,
		`Deleted by: <a href="tg://user?id=42">@42</a>`+"\n&lt;b&gt;x&lt;/b&gt; &amp; @421 @alice",
		out)
	assert.Equal(t, "a &lt; b", RenderHTML("a < b", nil))
}

func TestClientSendText(t *testing.T) {
	ctx := context.Background()

	t.Run("into the conversation", func(t *testing.T) {
		api := new(mocks.MockBot)
		api.On("SendMessage", ctx, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
			return p.BusinessConnectionID == "conn" &&
				p.ChatID.ID == 200 &&
				p.ParseMode == telego.ModeHTML &&
				strings.Contains(p.Text, `tg://user?id=42`)
		})).Return(&telego.Message{}, nil).Once()

		c := NewClient(api, ClientOptions{})
		err := c.Send(ctx, recovery.Outbound{
			BotID: "conn", Destination: "200", InConversation: true, Text: "by @42", Mentions: []string{"42"},
		})
		assert.NoError(t, err)
		api.AssertExpectations(t)
	})

	t.Run("to the alternate destination", func(t *testing.T) {
		api := new(mocks.MockBot)
		api.On("SendMessage", ctx, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
			return p.BusinessConnectionID == "" && p.ChatID.ID == 999
		})).Return(&telego.Message{}, nil).Once()

		c := NewClient(api, ClientOptions{})
		assert.NoError(t, c.Send(ctx, recovery.Outbound{BotID: "conn", Destination: "999", Text: "x"}))
		api.AssertExpectations(t)
	})

	t.Run("send failure", func(t *testing.T) {
		api := new(mocks.MockBot)
		api.On("SendMessage", ctx, mock.Anything).Return(nil, errors.New("chat not found")).Once()

		c := NewClient(api, ClientOptions{})
		assert.Error(t, c.Send(ctx, recovery.Outbound{BotID: "conn", Destination: "999", Text: "x"}))
	})

	t.Run("bad destination", func(t *testing.T) {
		c := NewClient(new(mocks.MockBot), ClientOptions{})
		assert.Error(t, c.Send(ctx, recovery.Outbound{Destination: "not-a-chat"}))
	})
}

func TestClientSendMedia(t *testing.T) {
	ctx := context.Background()

	api := new(mocks.MockBot)
	api.On("SendPhoto", ctx, mock.MatchedBy(func(p *telego.SendPhotoParams) bool {
		return p.ChatID.ID == 200 && p.Caption == "notice" && p.Photo.File != nil
	})).Return(&telego.Message{}, nil).Once()
	api.On("SendDocument", ctx, mock.MatchedBy(func(p *telego.SendDocumentParams) bool {
		return p.ChatID.ID == 200 && p.Document.File != nil && p.Document.File.Name() == "sticker.webp"
	})).Return(&telego.Message{}, nil).Once()
	api.On("SendDocument", ctx, mock.MatchedBy(func(p *telego.SendDocumentParams) bool {
		return p.ChatID.ID == 200 && p.Document.File != nil && p.Document.File.Name() == "contract.pdf"
	})).Return(&telego.Message{}, nil).Once()

	c := NewClient(api, ClientOptions{})
	require.NoError(t, c.Send(ctx, recovery.Outbound{
		BotID: "conn", Destination: "200", InConversation: true, Text: "notice",
		Media: &recovery.OutboundMedia{Kind: msgcache.MediaImage, Payload: []byte("jpeg")},
	}))
	require.NoError(t, c.Send(ctx, recovery.Outbound{
		BotID: "conn", Destination: "200", InConversation: true, Text: "notice",
		Media: &recovery.OutboundMedia{Kind: msgcache.MediaSticker, Payload: []byte("webp")},
	}))
	require.NoError(t, c.Send(ctx, recovery.Outbound{
		BotID: "conn", Destination: "200", InConversation: true, Text: "notice",
		Media: &recovery.OutboundMedia{Kind: msgcache.MediaDocument, FileName: "contract.pdf", Payload: []byte("%PDF")},
	}))
	api.AssertExpectations(t)
	api.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestClientSendTruncatesLongText(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)

	api := new(mocks.MockBot)
	api.On("SendMessage", ctx, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
		return utf8.RuneCountInString(p.Text) == maxTextRunes && strings.HasSuffix(p.Text, "…")
	})).Return(&telego.Message{}, nil).Once()

	c := NewClient(api, ClientOptions{Logger: zap.New(core)})
	require.NoError(t, c.Send(ctx, recovery.Outbound{
		BotID: "conn", Destination: "300", Text: strings.Repeat("x", maxTextRunes+10),
	}))

	api.AssertExpectations(t)
	entries := logs.FilterMessage("Truncating outbound text").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(maxTextRunes+10), entries[0].ContextMap()["runes"])
}

func TestClientFetchMedia(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/file/photos/1.jpg":
			_, _ = w.Write([]byte("jpeg-bytes"))
		case "/file/big.bin":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api := new(mocks.MockBot)
	api.On("GetFile", ctx, &telego.GetFileParams{FileID: "f1"}).Return(&telego.File{FilePath: "photos/1.jpg"}, nil)
	api.On("GetFile", ctx, &telego.GetFileParams{FileID: "f2"}).Return(&telego.File{FilePath: "missing"}, nil)
	api.On("GetFile", ctx, &telego.GetFileParams{FileID: "f3"}).Return(&telego.File{FilePath: "big.bin"}, nil)
	api.On("GetFile", ctx, &telego.GetFileParams{FileID: "f4"}).Return(nil, errors.New("file is too big"))
	for _, path := range []string{"photos/1.jpg", "missing", "big.bin"} {
		api.On("FileDownloadURL", path).Return(srv.URL + "/file/" + path)
	}

	c := NewClient(api, ClientOptions{HTTPClient: srv.Client(), MaxDownloadBytes: 32})

	data, err := c.FetchMedia(ctx, recovery.MediaRef{FileID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = c.FetchMedia(ctx, recovery.MediaRef{FileID: "f2"})
	assert.Error(t, err)

	_, err = c.FetchMedia(ctx, recovery.MediaRef{FileID: "f3"})
	assert.ErrorIs(t, err, ErrDownloadTooLarge)

	_, err = c.FetchMedia(ctx, recovery.MediaRef{FileID: "f4"})
	assert.Error(t, err)

	_, err = c.FetchMedia(ctx, recovery.MediaRef{})
	assert.Error(t, err)
}

func TestClientDeleteMessage(t *testing.T) {
	ctx := context.Background()
	api := new(mocks.MockBot)
	api.On("DeleteMessage", ctx, mock.MatchedBy(func(p *telego.DeleteMessageParams) bool {
		return p.ChatID.ID == -100 && p.MessageID == 7
	})).Return(nil).Once()

	c := NewClient(api, ClientOptions{})
	require.NoError(t, c.DeleteMessage(ctx, "bot:1", "-100", "-100:7", "55"))
	assert.Error(t, c.DeleteMessage(ctx, "bot:1", "-200", "-100:7", "55"))
	assert.Error(t, c.DeleteMessage(ctx, "bot:1", "-100", "garbage", "55"))
	api.AssertExpectations(t)
}
