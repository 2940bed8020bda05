// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Addressbook HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables (and .env).
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Build the token codec and the fast-path cache.
//  7. Wire outbound mail and avatar providers.
//  8. Wire domain services and HTTP handlers.
//  9. Start background jobs (refresh-token reaper, mail worker).
//  10. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/taibuivan/addressbook/internal/api"
	"github.com/taibuivan/addressbook/internal/contacts"
	"github.com/taibuivan/addressbook/internal/platform/avatar"
	"github.com/taibuivan/addressbook/internal/platform/config"
	"github.com/taibuivan/addressbook/internal/platform/constants"
	"github.com/taibuivan/addressbook/internal/platform/mailer"
	"github.com/taibuivan/addressbook/internal/platform/middleware"
	"github.com/taibuivan/addressbook/internal/platform/migration"
	pgstore "github.com/taibuivan/addressbook/internal/platform/postgres"
	redisstore "github.com/taibuivan/addressbook/internal/platform/redis"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/users/account"
	"github.com/taibuivan/addressbook/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[Addressbook] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("cache_enabled", cfg.CacheEnabled),
	)

	// Root context: cancelled on shutdown, stops every background goroutine.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Use a 30s deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, pgstore.Options{DSN: cfg.DatabaseURL}, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Codec & Cache ────────────────────────────────────────────
	codec, err := sec.NewTokenService(sec.TokenConfig{
		Secret:    cfg.SecretKey,
		Algorithm: cfg.JWTAlgorithm,
		AccessTTL: cfg.AccessTokenTTL(),
	})
	must(log, err, "initialize token codec")

	redisCache := auth.NewRedisCache(rdb, cfg.UserCacheTTL).WithLogger(log)
	var cache auth.Cache = redisCache
	if !cfg.CacheEnabled {
		// Logout still needs somewhere to record revoked access tokens.
		cache = auth.NopCache{Blacklist: redisCache}
	}

	// ── 7. Mail & Avatars ─────────────────────────────────────────────────
	var background sync.WaitGroup

	notifier, closeMail := wireMail(rootCtx, cfg, log, &background)
	defer closeMail()

	var uploader avatar.Uploader = avatar.Disabled{}
	if cfg.UploadEnabled() {
		cloudinary, err := avatar.NewCloudinaryUploader(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		must(log, err, "initialize cloudinary")
		uploader = cloudinary
	} else {
		log.Warn("avatar_upload_disabled")
	}

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	refreshTokenRepository := auth.NewRefreshTokenRepository(pool)

	authService := auth.NewService(userRepository, refreshTokenRepository, cache, codec,
		auth.FromConfig(cfg),
		auth.WithAvatarResolver(avatar.NewGravatar()),
		auth.WithNotifier(notifier),
		auth.WithLogger(log),
	)
	guard := auth.NewGuard(authService)

	accountService := account.NewService(account.Dependencies{
		Users:      userRepository,
		Sessions:   account.NewSessionRepository(pool),
		Transactor: auth.NewTransactor(pool),
		Cache:      cache,
		Tokens:     codec,
		Confirmer:  authService,
		Notifier:   notifier,
		Uploader:   uploader,
		Logger:     log,
	})

	meLimiter, err := redisstore.NewRouteLimiter(rdb, cfg.MeRateLimit)
	must(log, err, "initialize /users/me rate limit")

	contactService := contacts.NewService(contacts.NewPostgresRepository(pool), log)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: pgstore.Probe(pool),
		CheckCache:    redisstore.Probe(rdb),
	}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(accountService, guard, middleware.RouteLimit(meLimiter)),
		Contacts:  contacts.NewHandler(contactService, guard.Authenticate),
	}

	// ── 9. Background Jobs ────────────────────────────────────────────────
	reaper := auth.NewReaper(refreshTokenRepository, cfg.ReaperInterval, log)
	background.Add(1)
	go func() {
		defer background.Done()
		reaper.Run(rootCtx)
	}()

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	trustedProxies, err := cfg.TrustedProxyPrefixes()
	must(log, err, "parse trusted proxies")

	server := api.NewServer(rootCtx, api.Options{
		Port:           cfg.ServerPort,
		CORS:           cfg,
		TrustedProxies: trustedProxies,
	}, log, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	shutdownErr := server.Shutdown(shutdownTimeout)

	rootCancel()
	background.Wait()

	if shutdownErr != nil {
		log.Error("shutdown error", slog.Any("error", shutdownErr))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger with the global app attribute.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

/*
wireMail picks the outbound mail path.

  - No MAIL_SERVER: mail is dropped (logged once at startup).
  - RABBITMQ_URL set: requests go to the durable queue and a worker consumes it.
  - Otherwise: requests are delivered in-process.

The returned func releases the broker or waits for in-flight direct sends.
*/
func wireMail(ctx context.Context, cfg *config.Config, log *slog.Logger, background *sync.WaitGroup) (mailer.Notifier, func()) {
	if !cfg.MailEnabled() {
		log.Warn("mail_disabled", slog.String("reason", "MAIL_SERVER is empty"))
		return mailer.Discard{}, func() {}
	}

	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.MailServer,
		Port:     cfg.MailPort,
		Username: cfg.MailUsername,
		Password: cfg.MailPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
		StartTLS: cfg.MailStartTLS,
		SSLTLS:   cfg.MailSSLTLS,
	})
	must(log, err, "initialize smtp sender")

	if cfg.RabbitMQURL == "" {
		direct := mailer.NewDirect(sender, log)
		return direct, direct.Wait
	}

	broker, err := mailer.Dial(cfg.RabbitMQURL)
	must(log, err, "connect to rabbitmq")

	deliveries, err := broker.Deliveries()
	must(log, err, "consume mail queue")

	worker := mailer.NewWorker(sender, log)
	background.Add(1)
	go func() {
		defer background.Done()
		worker.Run(ctx, deliveries)
	}()

	log.Info("mail_queue_connected", slog.String("queue", mailer.QueueName))

	return mailer.NewQueue(broker.Publisher(), log), func() {
		if err := broker.Close(); err != nil {
			log.Error("rabbitmq close error", slog.Any("error", err))
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
