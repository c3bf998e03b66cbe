package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/studiolens/whatsapp-relay/database"
	"github.com/studiolens/whatsapp-relay/internal/cache"
	"github.com/studiolens/whatsapp-relay/internal/config"
	"github.com/studiolens/whatsapp-relay/internal/conversation"
	"github.com/studiolens/whatsapp-relay/internal/handlers"
	"github.com/studiolens/whatsapp-relay/internal/httpclient"
	"github.com/studiolens/whatsapp-relay/internal/jobs"
	"github.com/studiolens/whatsapp-relay/internal/messaging"
	"github.com/studiolens/whatsapp-relay/internal/partner"
	"github.com/studiolens/whatsapp-relay/internal/payment"
	"github.com/studiolens/whatsapp-relay/internal/retry"
	"github.com/studiolens/whatsapp-relay/internal/routes"
	"github.com/studiolens/whatsapp-relay/internal/services"
	"github.com/studiolens/whatsapp-relay/internal/storage"
)

// Version is set at build time
var Version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "whatsapp-relay",
		Short:        "WhatsApp conversational relay for photography studios",
		Version:      Version,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server (default)",
		RunE:  runServe,
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			setupLogging(cfg)

			if cfg.Database.Driver == "memory" {
				return fmt.Errorf("nothing to migrate for the memory driver")
			}
			db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer database.Close(db)

			slog.Info("🔄 running database migrations")
			if err := database.Migrate(db); err != nil {
				return err
			}
			slog.Info("✅ database migrations completed")
			return nil
		},
	}
}

func setupLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" || (cfg.LogFormat == "" && cfg.IsProduction()) {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sessionCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer sessionCache.Close()

	httpOpts := []httpclient.Option{
		httpclient.WithTimeout(cfg.HTTP.Timeout),
		httpclient.WithRetryPolicy(retry.DefaultPolicy().WithMaxRetries(cfg.HTTP.MaxRetries)),
	}

	gateway, err := newGateway(cfg, httpOpts)
	if err != nil {
		return err
	}

	partnerClient := partner.NewClient(cfg.Partner.BaseURL, cfg.Partner.Email, cfg.Partner.Password, httpOpts...)
	paymentClient := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.APIKey, httpOpts...)

	engine := conversation.New(partnerClient, paymentClient, conversation.Options{
		DefaultMaxInstallments: cfg.DefaultMaxInstallments,
		InvoiceDueDays:         cfg.InvoiceDueDays,
	})

	sessions := services.NewSessionManager(store, sessionCache, cfg.Redis.SessionTTL)
	guard := services.NewGuard(sessionCache, services.GuardConfig{
		OwnNumber:   cfg.Messaging.OwnNumber,
		DedupTTL:    cfg.Guard.DedupTTL,
		DebounceTTL: cfg.Guard.DebounceTTL,
		LockTTL:     cfg.Guard.LockTTL,
		LockWait:    cfg.Guard.LockWait,
	})
	dispatcher := services.NewDispatcher(gateway, store)
	relay := services.NewRelay(guard, sessions, engine, dispatcher)
	billing := services.NewBillingNotifier(store, dispatcher)

	tokenJob := jobs.NewTokenRefreshJob(partnerClient, cfg.Partner.RefreshInterval)
	tokenJob.Start(ctx)
	defer tokenJob.Stop()

	health := handlers.NewHealthHandler(Version, store, sessionCache)

	app := fiber.New(fiber.Config{
		AppName: "WhatsApp Relay v" + Version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Health:   health,
		WhatsApp: handlers.NewWhatsAppHandler(relay, cfg.Messaging.Provider),
		Billing:  handlers.NewBillingHandler(billing),
		Admin:    handlers.NewAdminHandler(sessions, store),
	}, &cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()

	slog.Info("🚀 whatsapp relay starting",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"provider", cfg.Messaging.Provider,
		"database", cfg.Database.Driver,
		"cache", cacheKind(cfg),
	)
	health.SetReady()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("🛑 gracefully shutting down")
	health.SetDraining()
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	return nil
}

func openStore(cfg config.Config) (storage.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		slog.Warn("⚠️  using in-memory storage, sessions are lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	closeFn := func() {
		if err := database.Close(db); err != nil {
			slog.Warn("close database failed", "error", err)
		}
	}
	return storage.NewDatabaseStore(db), closeFn, nil
}

func openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.Redis.URL == "" {
		slog.Warn("⚠️  REDIS_URL not set, using in-process cache; run a single instance only")
		return cache.NewMemoryCache(), nil
	}

	rc, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		// the relay degrades to durable-only until redis answers
		slog.Warn("redis not reachable at startup", "error", err)
	}
	return rc, nil
}

func cacheKind(cfg config.Config) string {
	if cfg.Redis.URL == "" {
		return "memory"
	}
	return "redis"
}

func newGateway(cfg config.Config, httpOpts []httpclient.Option) (messaging.Gateway, error) {
	switch cfg.Messaging.Provider {
	case config.ProviderTwilio:
		return messaging.NewTwilioGateway(cfg.Messaging.TwilioAccountSID, cfg.Messaging.TwilioAuthToken, cfg.Messaging.TwilioFrom)
	default:
		return messaging.NewZAPIGateway(messaging.ZAPIConfig{
			BaseURL:     cfg.Messaging.ZAPIBaseURL,
			Instance:    cfg.Messaging.ZAPIInstance,
			Token:       cfg.Messaging.ZAPIToken,
			ClientToken: cfg.Messaging.ZAPIClientToken,
		}, httpOpts...), nil
	}
}
