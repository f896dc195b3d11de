package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/agent"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/channel"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/conversation"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/dispatch"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/intent"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/kb"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/llm"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/scheduler"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/handlers"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/repositories"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/services"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/config"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/database"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/utils"

	_ "github.com/MuhamadAgungGumelar/retail-chatbot-be/cmd/chatbot/docs"
)

// @title Ferretería El Constructor Chatbot API
// @version 1.0
// @description Messenger/WhatsApp ordering assistant: webhook, health and knowledge base administration
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey AdminKey
// @in header
// @name X-Admin-Key
func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.LogLevel, cfg.LogFile)
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("🚀 Starting retail chatbot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.NewDB(cfg.DatabaseURL, !cfg.IsProduction())
	defer db.Close()

	// Conversation state
	states, err := newStateStore(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StateStore).Msg("❌ Failed to init conversation state store")
	}
	defer states.Close()
	log.Info().Str("driver", cfg.StateStore).Msg("🗂️ Conversation state store ready")

	// Knowledge base
	retriever := newRetriever(ctx, cfg)
	defer retriever.Close()

	// LLM (optional, the keyword rules answer without it)
	var provider llm.LLMProvider
	llmService, err := llm.NewService(&llm.ProviderConfig{
		Type:    llm.ProviderType(cfg.LLMProvider),
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	}, cfg.ExternalTimeout)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ LLM disabled, intents fall back to keyword rules")
	} else {
		provider = llmService
	}

	// Repositories
	userRepo := repositories.NewUserRepo(db.GORM)
	productRepo := repositories.NewProductRepo(db.GORM)
	orderRepo := repositories.NewOrderRepo(db.GORM)
	conversationRepo := repositories.NewConversationRepo(db.GORM)

	engine := agent.NewEngine(agent.Deps{
		Users:      userRepo,
		Products:   productRepo,
		Orders:     orderRepo,
		Log:        conversationRepo,
		States:     states,
		Classifier: intent.NewClassifier(provider, cfg.ExternalTimeout),
		Contacts:   intent.NewContactExtractor(provider, cfg.ExternalTimeout),
		Answers:    retriever,
	})

	messenger, err := channel.NewMessengerSender(channel.MessengerConfig{
		PageAccessToken: cfg.MetaPageAccessToken,
		APIVersion:      cfg.MetaGraphAPIVersion,
		Timeout:         cfg.ExternalTimeout,
	})
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Messenger channel disabled")
	} else {
		engine.RegisterSender(messenger)
	}

	pool := dispatch.NewPool(dispatch.Config{
		Concurrency: cfg.WebhookConcurrency,
		Timeout:     cfg.TurnTimeout,
	})

	var wa *channel.WhatsAppChannel
	if cfg.WhatsAppEnabled {
		wa = channel.NewWhatsAppChannel(channel.WhatsAppConfig{StoreURL: cfg.WhatsAppStoreURL})
		go startWhatsApp(ctx, wa, engine, pool)
	}

	// Maintenance jobs
	sched := scheduler.NewScheduler()
	maintenance := services.NewMaintenanceService(states, conversationRepo, services.MaintenanceConfig{
		SessionTimeout:    time.Duration(cfg.SessionTimeoutMinutes) * time.Minute,
		SweepSchedule:     cfg.SessionSweepSchedule,
		MessageRetention:  time.Duration(cfg.MessageRetentionDays) * 24 * time.Hour,
		RetentionSchedule: cfg.RetentionSchedule,
	})
	if err := maintenance.Register(sched); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to schedule maintenance jobs")
	}
	sched.Start()

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Retail Chatbot API",
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Get("/swagger/*", swagger.HandlerDefault)

	handlers.Register(app, handlers.Routes{
		Webhook:   handlers.NewWebhookHandler(cfg.MetaVerifyToken, engine, pool),
		Health:    handlers.NewHealthHandler(cfg.VectorBackend, retriever, engine),
		KB:        handlers.NewKBHandler(retriever),
		AppSecret: cfg.MetaAppSecret,
		AdminKey:  cfg.AdminAPIKey,
		RateLimit: cfg.WebhookRateLimit,
	})
	if cfg.MetaAppSecret == "" {
		log.Warn().Msg("⚠️ META_APP_SECRET not set, webhook signatures are not verified")
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("❌ HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("🛑 Shutting down...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("❌ HTTP shutdown failed")
	}
	sched.Stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.TurnTimeout)
	defer cancel()
	if err := pool.Stop(drainCtx); err != nil {
		log.Warn().Err(err).Msg("⚠️ Pending turns abandoned")
	}
	if wa != nil {
		wa.Disconnect()
	}
	log.Info().Msg("👋 Bye")
}

func newStateStore(cfg *config.Config, db *database.DB) (conversation.Store, error) {
	switch cfg.StateStore {
	case "redis":
		return conversation.NewRedisStore(cfg.RedisURL, time.Duration(cfg.SessionTimeoutMinutes)*time.Minute)
	case "memory":
		return conversation.NewMemoryStore(), nil
	default:
		return conversation.NewGormStore(db.GORM), nil
	}
}

func newRetriever(ctx context.Context, cfg *config.Config) *kb.Retriever {
	retriever, err := kb.Open(kb.SetupFromConfig(cfg))
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.VectorBackend).Msg("❌ Failed to init knowledge base")
	}

	if err := retriever.Initialize(ctx); err != nil {
		if errors.Is(err, errs.ErrDataInconsistency) {
			log.Fatal().Err(err).Msg("❌ Knowledge base files disagree, run `kbctl build --force`")
		}
		log.Error().Err(err).Msg("❌ Knowledge base not ready, FAQ answers disabled")
	}

	if cfg.KnowledgeBaseFile != "" {
		if err := kb.WatchSeedFile(ctx, retriever, cfg.KnowledgeBaseFile); err != nil {
			log.Warn().Err(err).Msg("⚠️ Knowledge base file will not be watched")
		}
	}
	return retriever
}

func startWhatsApp(ctx context.Context, wa *channel.WhatsAppChannel, engine *agent.Engine, pool *dispatch.Pool) {
	if err := wa.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("❌ WhatsApp channel unavailable")
		return
	}
	engine.RegisterSender(wa)

	err := wa.Listen(func(in channel.Inbound) {
		task := func(ctx context.Context) error {
			return engine.HandleInbound(ctx, in)
		}
		if !pool.Submit("whatsapp-"+in.SenderID, []dispatch.Task{task}) {
			log.Warn().Str("sender", in.SenderID).Msg("⚠️ Dispatcher stopped, WhatsApp message dropped")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to listen for WhatsApp messages")
		return
	}
	wa.StartKeepAlive(ctx)
}
