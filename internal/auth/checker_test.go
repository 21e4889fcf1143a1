package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"antidelete-bot/pkg/telegoapi/mocks"
)

func memberParams(chatID, userID int64) interface{} {
	return mock.MatchedBy(func(p *telego.GetChatMemberParams) bool {
		return p.ChatID.ID == chatID && p.UserID == userID
	})
}

func TestNewAdminChecker_NilBot(t *testing.T) {
	_, err := NewAdminChecker(nil, time.Minute, nil)
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name    string
		member  telego.ChatMember
		err     error
		want    bool
		wantErr bool
	}{
		{name: "creator", member: &telego.ChatMemberOwner{Status: telego.MemberStatusCreator}, want: true},
		{name: "administrator", member: &telego.ChatMemberAdministrator{Status: telego.MemberStatusAdministrator}, want: true},
		{name: "member", member: &telego.ChatMemberMember{Status: telego.MemberStatusMember}, want: false},
		{name: "user not found", err: errors.New("Bad Request: user not found"), want: false},
		{name: "api error", err: errors.New("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			bot := new(mocks.MockBot)
			bot.On("GetChatMember", mock.Anything, memberParams(-100, 7)).Return(tt.member, tt.err).Once()
			checker, err := NewAdminChecker(bot, 0, nil)
			require.NoError(t, err)

			// Act
			got, err := checker.IsAdmin(context.Background(), -100, 7)

			// Assert
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			bot.AssertExpectations(t)
		})
	}
}

func TestIsAdmin_CachesUntilExpiry(t *testing.T) {
	// Arrange
	bot := new(mocks.MockBot)
	bot.On("GetChatMember", mock.Anything, memberParams(-100, 7)).
		Return(&telego.ChatMemberAdministrator{Status: telego.MemberStatusAdministrator}, nil).Twice()
	checker, err := NewAdminChecker(bot, time.Minute, nil)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	checker.now = func() time.Time { return now }
	ctx := context.Background()

	// Act
	first, _ := checker.IsAdmin(ctx, -100, 7)
	second, _ := checker.IsAdmin(ctx, -100, 7)
	now = now.Add(2 * time.Minute)
	third, _ := checker.IsAdmin(ctx, -100, 7)

	// Assert
	assert.True(t, first)
	assert.True(t, second)
	assert.True(t, third)
	bot.AssertNumberOfCalls(t, "GetChatMember", 2)
}
