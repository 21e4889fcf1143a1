package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	telegoBot "antidelete-bot/bot"
	"antidelete-bot/internal/config"
	"antidelete-bot/internal/database"
	"antidelete-bot/internal/di"
	"antidelete-bot/internal/handlers"
	"antidelete-bot/internal/locales"
	"antidelete-bot/internal/logging"
	"antidelete-bot/internal/recovery"
	telegoapi "antidelete-bot/pkg/telegoapi"
)

var allowedUpdates = []string{
	"message",
	"business_connection",
	"business_message",
	"edited_business_message",
	"deleted_business_messages",
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		logger.Fatal("sentry.Init failed", zap.Error(err))
	}
	defer sentry.Flush(2 * time.Second)
	if cfg.SentryDSN == "" {
		logger.Warn("SENTRY_DSN is not set. Error tracking disabled.")
	}

	if err := locales.Init(cfg.DefaultLanguage); err != nil {
		logger.Fatal("Failed to load locales", zap.Error(err))
	}

	container, err := di.BuildContainer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build dependency container", zap.Error(err))
	}
	if err := container.Invoke(run); err != nil {
		sentry.CaptureException(err)
		logger.Error("Application error", zap.Error(err))
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	tg *telego.Bot,
	api telegoapi.BotAPI,
	store database.Store,
	registry *recovery.Registry,
	handler *handlers.MessageHandler,
) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("Failed to close policy store", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := handler.RestoreConnections(ctx); err != nil {
		// Sessions are also opened lazily on the next business update.
		logger.Warn("Failed to restore business connections", zap.Error(err))
	}

	updates, err := tg.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{AllowedUpdates: allowedUpdates})
	if err != nil {
		return err
	}

	appBot, err := telegoBot.New(telegoBot.BotDeps{
		Bot:           api,
		UpdatesChan:   updates,
		Handler:       handler,
		Logger:        logger.Named("bot"),
		RatePerSecond: cfg.SendRatePerSecond,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return appBot.Start(gctx) })
	g.Go(func() error { return registry.Run(gctx) })

	err = g.Wait()
	logger.Info("Bot shutdown complete.")
	return err
}
