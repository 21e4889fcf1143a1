package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"antidelete-bot/internal/database"
	telegoapi "antidelete-bot/pkg/telegoapi"
)

// Command represents a bot command, mapping the command string to its description and handler function.
type Command struct {
	Command     string                                      // The command string (e.g., "start").
	Description string                                      // Locale key of the command description.
	Handler     func(context.Context, telego.Message) error // The function to execute when the command is received.
}

// HandlerDeps holds the dependencies required by the MessageHandler.
type HandlerDeps struct {
	Bot         telegoapi.BotAPI
	Policies    PolicyManager
	Sessions    SessionProvider
	Connections database.ConnectionRepository
	Actions     database.UserActionLogger
	Admins      AdminChecker
	// LinkModeration deletes links posted by non-admins in groups the bot belongs to.
	LinkModeration bool
	// BotUserID is the bot's own Telegram user id.
	BotUserID int64
	Logger    *zap.Logger
}

// MessageHandler turns Telegram updates into anti-delete session events and
// serves the owner-facing commands.
type MessageHandler struct {
	bot            telegoapi.BotAPI
	policies       PolicyManager
	sessions       SessionProvider
	connections    database.ConnectionRepository
	actionLogger   database.UserActionLogger
	adminChecker   AdminChecker
	linkModeration bool
	botUserID      int64
	logger         *zap.Logger

	// owners maps an owner's user id (int64) to their business connection id (string).
	owners sync.Map

	commands []Command
}

// NewMessageHandler creates and initializes a new MessageHandler instance.
func NewMessageHandler(deps HandlerDeps) (*MessageHandler, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.Policies == nil {
		return nil, fmt.Errorf("policy manager cannot be nil")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session provider cannot be nil")
	}
	if deps.Connections == nil {
		return nil, fmt.Errorf("connection repository cannot be nil")
	}
	if deps.Actions == nil {
		return nil, fmt.Errorf("action logger cannot be nil")
	}
	if deps.LinkModeration && deps.Admins == nil {
		return nil, fmt.Errorf("admin checker is required for link moderation")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	h := &MessageHandler{
		bot:            deps.Bot,
		policies:       deps.Policies,
		sessions:       deps.Sessions,
		connections:    deps.Connections,
		actionLogger:   deps.Actions,
		adminChecker:   deps.Admins,
		linkModeration: deps.LinkModeration,
		botUserID:      deps.BotUserID,
		logger:         deps.Logger,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "antidelete", Description: "CmdAntideleteDesc", Handler: h.HandleAntidelete},
	}
	return h, nil
}

// Commands returns the registered commands.
func (h *MessageHandler) Commands() []Command {
	return h.commands
}

// GetCommandHandler retrieves the handler function associated with a specific command string (e.g., "start").
// It returns nil if the command is not found.
func (h *MessageHandler) GetCommandHandler(command string) func(context.Context, telego.Message) error {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return cmd.Handler
		}
	}
	return nil
}
