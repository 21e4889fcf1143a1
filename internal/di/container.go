package di

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"go.uber.org/dig"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"antidelete-bot/internal/auth"
	"antidelete-bot/internal/config"
	"antidelete-bot/internal/database"
	"antidelete-bot/internal/handlers"
	"antidelete-bot/internal/msgcache"
	"antidelete-bot/internal/policy"
	"antidelete-bot/internal/recovery"
	"antidelete-bot/internal/telegram"
	telegoapi "antidelete-bot/pkg/telegoapi"
)

const storeConnectTimeout = 15 * time.Second

// BuildContainer creates and configures a dependency injection container.
// cfg and logger are built by the caller so startup failures can be
// reported before the container exists.
func BuildContainer(cfg *config.Config, logger *zap.Logger) (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		func() *config.Config { return cfg },
		func() *zap.Logger { return logger },
		NewStore,
		func(s database.Store) policy.Repository { return s },
		func(s database.Store) database.ConnectionRepository { return s },
		func(s database.Store) database.UserActionLogger { return s },
		func(repo policy.Repository, cfg *config.Config, logger *zap.Logger) *policy.Engine {
			return policy.NewEngine(repo, cfg.PolicyCacheTTL, logger.Named("policy"))
		},
		NewTelegoBot,
		func(b *telego.Bot) telegoapi.BotAPI { return b },
		func(api telegoapi.BotAPI, cfg *config.Config, logger *zap.Logger) *telegram.Client {
			return telegram.NewClient(api, telegram.ClientOptions{
				MaxDownloadBytes: int64(cfg.CacheMediaMaxBytes),
				Logger:           logger.Named("telegram"),
			})
		},
		func(c *telegram.Client, cfg *config.Config, logger *zap.Logger) *recovery.Restorer {
			return recovery.NewRestorer(c, recovery.RestorerOptions{
				Language: cfg.DefaultLanguage,
				Limiter:  ratelimit.New(cfg.SendRatePerSecond),
				Logger:   logger.Named("restorer"),
			})
		},
		NewRegistry,
		func(api telegoapi.BotAPI, cfg *config.Config, logger *zap.Logger) (*auth.AdminChecker, error) {
			return auth.NewAdminChecker(api, cfg.AdminCacheTTL, logger.Named("auth"))
		},
		NewMessageHandler,
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}
	return container, nil
}

// NewStore opens the configured policy store.
func NewStore(cfg *config.Config, logger *zap.Logger) (database.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	defer cancel()

	switch cfg.PolicyStore {
	case config.StoreMongo:
		client, db, err := database.ConnectDB(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase, logger)
		if err != nil {
			return nil, err
		}
		store, err := database.NewMongoStore(ctx, client, db)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return store, nil
	case config.StoreSQLite:
		return database.OpenSQL(ctx, database.DialectSQLite, cfg.SQLitePath, logger)
	case config.StoreMySQL:
		return database.OpenSQL(ctx, database.DialectMySQL, cfg.MySQLDSN, logger)
	case config.StoreMemory:
		logger.Warn("Using in-memory policy store; settings are lost on restart")
		return database.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown policy store %q", cfg.PolicyStore)
}

// NewTelegoBot creates the Bot API client.
func NewTelegoBot(cfg *config.Config) (*telego.Bot, error) {
	if cfg.Debug {
		return telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	}
	return telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, true))
}

// NewRegistry creates the session registry from the cache settings.
func NewRegistry(engine *policy.Engine, client *telegram.Client, restorer *recovery.Restorer, cfg *config.Config, logger *zap.Logger) *recovery.Registry {
	return recovery.NewRegistry(recovery.Deps{
		Policies: engine,
		Platform: client,
		Restorer: restorer,
		Logger:   logger.Named("recovery"),
		Config: recovery.SessionConfig{
			Store: msgcache.Options{
				Expiration:    cfg.CacheExpiration,
				TextCapacity:  cfg.CacheTextCapacity,
				MediaCapacity: cfg.CacheMediaCapacity,
				MaxMediaBytes: cfg.CacheMediaMaxBytes,
			},
			SuppressionWindow: cfg.SuppressionWindow,
			MediaFetchTimeout: cfg.MediaFetchTimeout,
		},
	}, cfg.CacheSweepInterval)
}

// handlerParams groups the MessageHandler dependencies.
type handlerParams struct {
	dig.In

	API         telegoapi.BotAPI
	Engine      *policy.Engine
	Registry    *recovery.Registry
	Connections database.ConnectionRepository
	Actions     database.UserActionLogger
	Admins      *auth.AdminChecker
	Config      *config.Config
	Logger      *zap.Logger
}

// NewMessageHandler asks Telegram who the bot is and builds the handler.
func NewMessageHandler(p handlerParams) (*handlers.MessageHandler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	me, err := p.API.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	p.Logger.Info("Authorized on account",
		zap.String("username", me.Username), zap.Int64("id", me.ID))

	return handlers.NewMessageHandler(handlers.HandlerDeps{
		Bot:            p.API,
		Policies:       p.Engine,
		Sessions:       p.Registry,
		Connections:    p.Connections,
		Actions:        p.Actions,
		Admins:         p.Admins,
		LinkModeration: p.Config.LinkModeration,
		BotUserID:      me.ID,
		Logger:         p.Logger.Named("handlers"),
	})
}
