// Package mocks provides testify mocks for telegoapi interfaces.
package mocks

import (
	"context"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/mock"
)

// MockBot is a mock implementing the telegoapi.BotAPI interface
type MockBot struct {
	mock.Mock
}

func message(args mock.Arguments) (*telego.Message, error) {
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if user, ok := args.Get(0).(*telego.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	return message(m.Called(ctx, params))
}

func (m *MockBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	return message(m.Called(ctx, params))
}

func (m *MockBot) SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error) {
	return message(m.Called(ctx, params))
}

func (m *MockBot) SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error) {
	return message(m.Called(ctx, params))
}

func (m *MockBot) SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error) {
	return message(m.Called(ctx, params))
}

func (m *MockBot) SendVoice(ctx context.Context, params *telego.SendVoiceParams) (*telego.Message, error) {
	return message(m.Called(ctx, params))
}

func (m *MockBot) GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error) {
	args := m.Called(ctx, params)
	if f, ok := args.Get(0).(*telego.File); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) FileDownloadURL(filepath string) string {
	args := m.Called(filepath)
	return args.String(0)
}

func (m *MockBot) GetBusinessConnection(ctx context.Context, params *telego.GetBusinessConnectionParams) (*telego.BusinessConnection, error) {
	args := m.Called(ctx, params)
	if bc, ok := args.Get(0).(*telego.BusinessConnection); ok {
		return bc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error) {
	args := m.Called(ctx, params)
	if member, ok := args.Get(0).(telego.ChatMember); ok {
		return member, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
