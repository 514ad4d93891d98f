package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dormdesk_backend/internal/cases"
	"dormdesk_backend/internal/email"
	apphttp "dormdesk_backend/internal/http"
	"dormdesk_backend/internal/http/router"
	"dormdesk_backend/internal/media"
	"dormdesk_backend/internal/notification"
	"dormdesk_backend/internal/notification/outbox"
	"dormdesk_backend/internal/scheduling"
	"dormdesk_backend/internal/triage"
	"dormdesk_backend/internal/triage/agent"
	"dormdesk_backend/internal/triage/location"
	"dormdesk_backend/platform/ai"
	"dormdesk_backend/platform/config"
	"dormdesk_backend/platform/db"
	"dormdesk_backend/platform/events"
	"dormdesk_backend/platform/logger"
	"dormdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	aiClient, err := ai.NewClient(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize generation client", "error", err)
		panic("failed to initialize generation client: " + err.Error())
	}

	resolver, err := location.Load(cfg.GetBuildingAliasPath())
	if err != nil {
		log.Error("failed to load building alias table", "error", err)
		panic("failed to load building alias table: " + err.Error())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.SetOutbox(outbox.New(pool))
	notificationModule.RegisterHandlers(eventBus)

	casesModule := cases.NewModule(pool, resolver, eventBus, val, log)

	generator := agent.NewClient(aiClient)
	triageModule := triage.NewModule(pool, generator, casesModule.Service(), resolver, eventBus, val, log)

	schedulingModule := scheduling.NewModule(pool, casesModule.Service(), eventBus, val, log)

	modules := []apphttp.Module{
		triageModule,
		casesModule,
		schedulingModule,
	}

	// Media storage for conversation photos (MinIO); optional
	if cfg.IsMinIOEnabled() {
		mediaSvc, err := media.NewService(cfg)
		if err != nil {
			log.Error("failed to initialize media storage", "error", err)
			panic("failed to initialize media storage: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure media bucket", 5, 2*time.Second, func() error {
			return mediaSvc.EnsureBucketExists(ctx)
		}); err != nil {
			log.Error("failed to ensure media bucket exists", "error", err)
			panic("failed to ensure media bucket exists: " + err.Error())
		}
		modules = append(modules, media.NewModule(mediaSvc))
		log.Info("media storage initialized", "bucket", cfg.GetMinioBucketConversationMedia())
	} else {
		log.Warn("MinIO not configured; photo uploads disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
