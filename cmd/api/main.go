package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate_portal_backend/internal/appointments"
	"estate_portal_backend/internal/channel"
	"estate_portal_backend/internal/channel/email"
	"estate_portal_backend/internal/channel/whatsapp"
	"estate_portal_backend/internal/claims"
	claimsjournal "estate_portal_backend/internal/claims/journal"
	claimsservice "estate_portal_backend/internal/claims/service"
	"estate_portal_backend/internal/directory"
	"estate_portal_backend/internal/events"
	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/internal/http/router"
	"estate_portal_backend/internal/notification"
	"estate_portal_backend/internal/scheduler"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"
	"estate_portal_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Claim journal for restart recovery; nil when REDIS_URL is unset.
	var jrnl claimsservice.Journal
	redisJournal, err := claimsjournal.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize claim journal", "error", err)
		panic("failed to initialize claim journal: " + err.Error())
	}
	if redisJournal != nil {
		defer func() { _ = redisJournal.Close() }()
		jrnl = redisJournal
		log.Info("claim journal initialized")
	} else {
		log.Warn("REDIS_URL not configured; claim journal disabled")
	}

	// Outbound channels. Either may be nil; the router reports a delivery
	// error for handles it cannot route.
	var whatsappSender, emailSender channel.Sender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		whatsappSender = client
		log.Info("whatsapp channel initialized")
	}
	if sender := email.NewSender(cfg); sender != nil {
		emailSender = sender
		log.Info("email channel initialized")
	}
	channelRouter := channel.NewRouter(whatsappSender, emailSender)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	directoryModule := directory.NewModule(val, log)

	// Notification module subscribes to domain events
	notificationModule := notification.New(cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	claimsModule := claims.New(cfg, directoryModule.Service(), channelRouter, eventBus, jrnl, log)
	if err := claimsModule.Restore(ctx); err != nil {
		log.Error("failed to restore claim requests from journal", "error", err)
	}

	appointmentsModule := appointments.New(directoryModule.Service(), eventBus, val, log)

	// Deferred expiry scheduling and the sweep worker need redis; without it
	// requests still expire lazily on claim and via Expire calls.
	if cfg.GetRedisURL() != "" {
		schedulerClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
		} else {
			defer func() { _ = schedulerClient.Close() }()
			schedulerClient.RegisterHandlers(eventBus)
		}

		worker, err := scheduler.NewWorker(cfg, claimsModule.Coordinator(), log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
		} else {
			go worker.Run(ctx)
			log.Info("scheduler worker started", "sweepInterval", cfg.GetSweepInterval())
		}
	} else {
		log.Warn("REDIS_URL not configured; claim expiry sweep disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			directoryModule,
			claimsModule,
			appointmentsModule,
			notificationModule,
		},
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
