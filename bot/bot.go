package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"antidelete-bot/internal/handlers"
	"antidelete-bot/internal/locales"
	"antidelete-bot/internal/recovery"
	telegoapi "antidelete-bot/pkg/telegoapi"
)

const (
	// DefaultLaneBuffer is the number of updates queued per business connection.
	DefaultLaneBuffer = 64
	processTimeout    = 30 * time.Second
)

// UpdateHandler is what the update loop dispatches to.
type UpdateHandler interface {
	HandleBusinessConnection(ctx context.Context, bc telego.BusinessConnection) error
	HandleBusinessMessage(ctx context.Context, message telego.Message) error
	HandleDeletedBusinessMessages(ctx context.Context, deleted telego.BusinessMessagesDeleted) ([]recovery.Outcome, error)
	HandleMessage(ctx context.Context, message telego.Message) error
	Commands() []handlers.Command
}

var _ UpdateHandler = (*handlers.MessageHandler)(nil)

// Bot runs the update loop. Updates of one business connection are
// processed in arrival order by a dedicated worker; different connections
// and plain messages run concurrently.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	handler     UpdateHandler
	logger      *zap.Logger
	ratelimiter ratelimit.Limiter
	laneBuffer  int

	mu    sync.Mutex
	lanes map[string]chan telego.Update
	wg    sync.WaitGroup
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot         telegoapi.BotAPI
	UpdatesChan <-chan telego.Update
	Handler     UpdateHandler
	Logger      *zap.Logger
	// RatePerSecond caps processed updates per second. Zero means 20.
	RatePerSecond int
	LaneBuffer    int
}

// New creates a new Bot instance from its dependencies.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("update handler cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RatePerSecond <= 0 {
		deps.RatePerSecond = 20
	}
	if deps.LaneBuffer <= 0 {
		deps.LaneBuffer = DefaultLaneBuffer
	}
	return &Bot{
		bot:         deps.Bot,
		updatesChan: deps.UpdatesChan,
		handler:     deps.Handler,
		logger:      deps.Logger,
		ratelimiter: ratelimit.New(deps.RatePerSecond),
		laneBuffer:  deps.LaneBuffer,
		lanes:       make(map[string]chan telego.Update),
	}, nil
}

// Start runs the update loop until ctx is done or the updates channel is
// closed, then waits for in-flight updates to finish.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.setupCommands(ctx); err != nil {
		// Commands are cosmetic; keep serving.
		b.logger.Warn("Failed to set bot commands", zap.Error(err))
	}
	b.logger.Info("Listening for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context done, stopping update processing...")
			b.drain()
			return nil
		case update, ok := <-b.updatesChan:
			if !ok {
				b.logger.Info("Updates channel closed.")
				b.drain()
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update telego.Update) {
	key := laneKey(update)
	if key == "" {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.processUpdate(ctx, update)
		}()
		return
	}
	lane := b.lane(ctx, key)
	select {
	case lane <- update:
	case <-ctx.Done():
	}
}

// lane returns the queue of connectionID, starting its worker on first use.
func (b *Bot) lane(ctx context.Context, connectionID string) chan telego.Update {
	b.mu.Lock()
	defer b.mu.Unlock()
	if lane, ok := b.lanes[connectionID]; ok {
		return lane
	}
	lane := make(chan telego.Update, b.laneBuffer)
	b.lanes[connectionID] = lane
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for update := range lane {
			b.processUpdate(ctx, update)
		}
	}()
	return lane
}

// drain closes every lane and waits for all workers.
func (b *Bot) drain() {
	b.mu.Lock()
	for id, lane := range b.lanes {
		close(lane)
		delete(b.lanes, id)
	}
	b.mu.Unlock()
	b.wg.Wait()
	b.logger.Info("All update processing finished.")
}

// laneKey returns the business connection an update belongs to, or "" when
// it is not a business update.
func laneKey(update telego.Update) string {
	switch {
	case update.BusinessConnection != nil:
		return update.BusinessConnection.ID
	case update.BusinessMessage != nil:
		return update.BusinessMessage.BusinessConnectionID
	case update.EditedBusinessMessage != nil:
		return update.EditedBusinessMessage.BusinessConnectionID
	case update.DeletedBusinessMessages != nil:
		return update.DeletedBusinessMessages.BusinessConnectionID
	}
	return ""
}

// processUpdate routes incoming updates to the appropriate handlers.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	// Apply global rate limiting
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("PANIC recovered in processUpdate",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			sentry.CurrentHub().Recover(r)
			sentry.Flush(time.Second * 2)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	var (
		kind string
		err  error
	)
	switch {
	case update.BusinessConnection != nil:
		kind = "business_connection"
		err = b.handler.HandleBusinessConnection(processingCtx, *update.BusinessConnection)

	case update.BusinessMessage != nil:
		kind = "business_message"
		err = b.handler.HandleBusinessMessage(processingCtx, *update.BusinessMessage)

	case update.EditedBusinessMessage != nil:
		kind = "edited_business_message"
		err = b.handler.HandleBusinessMessage(processingCtx, *update.EditedBusinessMessage)

	case update.DeletedBusinessMessages != nil:
		kind = "deleted_business_messages"
		var outcomes []recovery.Outcome
		outcomes, err = b.handler.HandleDeletedBusinessMessages(processingCtx, *update.DeletedBusinessMessages)
		if err == nil {
			b.logger.Debug("Deleted business messages processed",
				zap.String("bot_id", update.DeletedBusinessMessages.BusinessConnectionID),
				zap.Int("count", len(outcomes)))
		}

	case update.Message != nil:
		kind = "message"
		err = b.handler.HandleMessage(processingCtx, *update.Message)

	default:
		b.logger.Debug("Ignoring unhandled update type", zap.Int("update_id", update.UpdateID))
		return
	}

	if err != nil {
		b.logger.Error("Update handler error",
			zap.String("kind", kind), zap.Int("update_id", update.UpdateID), zap.Error(err))
		sentry.CaptureException(fmt.Errorf("%s handler error: %w", kind, err))
	}
}

// setupCommands registers the command list in every bundled language.
func (b *Bot) setupCommands(ctx context.Context) error {
	for _, lang := range []string{"", "ru"} {
		localizer := locales.NewLocalizer(lang, locales.GetDefaultLanguageTag().String())
		cmds := make([]telego.BotCommand, 0, len(b.handler.Commands()))
		for _, c := range b.handler.Commands() {
			cmds = append(cmds, telego.BotCommand{
				Command:     c.Command,
				Description: locales.GetMessage(localizer, c.Description, nil, nil),
			})
		}
		err := b.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: cmds, LanguageCode: lang})
		if err != nil {
			return fmt.Errorf("failed to set bot commands: %w", err)
		}
	}
	b.logger.Info("Bot commands successfully set.")
	return nil
}
