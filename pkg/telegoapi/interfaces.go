package telegoapi

import (
	"context"

	"github.com/mymmrac/telego"
)

// BotAPI defines the bot operations used across packages.
// This allows using both the real telego.Bot and mocks.
type BotAPI interface {
	GetMe(ctx context.Context) (*telego.User, error)
	SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)

	// Restoration of media
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
	SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error)
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
	SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error)
	SendVoice(ctx context.Context, params *telego.SendVoiceParams) (*telego.Message, error)

	// Capture of media
	GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error)
	FileDownloadURL(filepath string) string

	GetBusinessConnection(ctx context.Context, params *telego.GetBusinessConnectionParams) (*telego.BusinessConnection, error)
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
}
