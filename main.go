package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"uikitstore/config"
	"uikitstore/database"
	"uikitstore/handlers"
	"uikitstore/identity"
	"uikitstore/jobs"
	"uikitstore/logger"
	"uikitstore/storefront"
	"uikitstore/utils"
	"uikitstore/views"
)

const shutdownTimeout = 30 * time.Second

var callbackHandler *handlers.CallbackHandler

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		// The logger is not configured yet.
		logger.Init("development")
		logger.GetLogger().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Init(cfg.Env)
	defer logger.Sync()
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer closeStore()

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal("Failed to initialize bot", zap.Error(err))
	}
	bot.Debug = !cfg.IsProduction()
	log.Info("Authorized on Telegram", zap.String("bot", bot.Self.UserName))

	redisClient, err := identity.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	sessions := identity.NewSessionStore(redisClient, cfg.SessionTTL)
	provider := identity.NewProvider(identity.NewTelegramAuthenticator(cfg.BotToken, cfg.InitDataTTL), sessions)

	notifier := utils.NewNotifier(bot, cfg.AdminGroupID)
	moderation := storefront.NewModeration(store, notifier)
	appOpts := storefront.Options{
		PaymentContact:  cfg.PaymentContact,
		DownloadBaseURL: cfg.DownloadBaseURL,
	}
	registry := storefront.NewRegistry(func(sid string) *storefront.App {
		return storefront.New(sid, store, provider, moderation, appOpts)
	})
	unsubscribe := provider.Subscribe(registry.OnIdentityChanged)
	defer unsubscribe()

	renderer, err := views.NewRenderer()
	if err != nil {
		log.Fatal("Failed to parse templates", zap.Error(err))
	}

	callbackHandler = handlers.NewCallbackHandler(bot, moderation)

	scheduler := jobs.NewScheduler(time.Minute)
	if err := scheduler.Add(cfg.DigestSchedule, jobs.NewDigestJob(store, notifier)); err != nil {
		log.Fatal("Failed to schedule digest", zap.Error(err))
	}
	if err := scheduler.Add(cfg.EvictSchedule, jobs.NewEvictJob(registry, cfg.SessionIdle)); err != nil {
		log.Fatal("Failed to schedule eviction", zap.Error(err))
	}
	scheduler.Start()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewHandler(registry, renderer, identity.NewTokens(cfg.JWTSecret, cfg.SessionTTL), provider, handlers.Options{
		CookieTTL:     cfg.SessionTTL,
		SecureCookies: cfg.IsProduction(),
	})
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handlers.NewRouter(h, cfg.CORSAllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go startBot(ctx, bot)

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	bot.StopReceivingUpdates()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Warn("Jobs still running at shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// openStore connects to MongoDB, or builds an in-memory store for local runs.
// The memory store always gets the sample catalog; Mongo only when SEED_CATALOG is set.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, func(), error) {
	var (
		store     database.Store
		closeFunc = func() {}
	)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		store = database.NewMemoryStore()
	default:
		db, err := database.NewDBManager(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		store = db
		closeFunc = func() {
			if err := db.Close(); err != nil {
				logger.Warn(context.Background(), "Failed to close MongoDB", zap.Error(err))
			}
		}
	}

	if cfg.SeedCatalog || cfg.StoreDriver == config.DriverMemory {
		n, err := database.SeedCatalog(ctx, store, database.SampleCatalog())
		if err != nil {
			closeFunc()
			return nil, nil, err
		}
		logger.Info(ctx, "Catalog seeded", zap.Int("inserted", n))
	}
	return store, closeFunc, nil
}

func startBot(ctx context.Context, bot *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)
	logger.Info(ctx, "Bot is now running")

	for update := range updates {
		handleUpdate(ctx, bot, update)
	}
}

func handleUpdate(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		callbackHandler.HandleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		handleCommand(ctx, bot, update.Message)
	}
}

func handleCommand(ctx context.Context, bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	switch strings.ToLower(message.Command()) {
	case "start", "help":
		text := "👋 Welcome to the UI kit store! Open the mini app to browse kits, " +
			"and you will get a message here once your payments are verified."
		if err := utils.SendMessage(bot, message.Chat.ID, text, ""); err != nil {
			logger.Warn(ctx, "Failed to answer command", zap.String("command", message.Command()), zap.Error(err))
		}
	}
}
