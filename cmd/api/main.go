package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/outrclub/outr-api/internal/config"
	"github.com/outrclub/outr-api/internal/crypto"
	"github.com/outrclub/outr-api/internal/handler"
	"github.com/outrclub/outr-api/internal/notify"
	"github.com/outrclub/outr-api/internal/ratelimit"
	"github.com/outrclub/outr-api/internal/repository"
	"github.com/outrclub/outr-api/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialect, err := repository.ParseDialect(cfg.DBDriver)
	if err != nil {
		slog.Error("invalid database driver", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(ctx, dialect, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db, dialect); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	store := repository.NewStore(db, dialect)
	issuer := crypto.NewTokenIssuer(cfg.JWTSecret)
	sessions := service.NewSessionManager(store, issuer, cfg.TokenTTL, cfg.StoreTimeout)

	if n, err := sessions.SweepExpired(ctx); err != nil {
		slog.Warn("startup session sweep failed", "error", err)
	} else {
		slog.Info("startup session sweep", "removed", n)
	}
	go sessions.Run(ctx, cfg.SessionSweepInterval)

	limiterCfg := ratelimit.Config{
		MaxPerWindow: cfg.RateLimitMax,
		Window:       cfg.RateLimitWindow,
		Cooldown:     cfg.RateLimitCooldown,
	}
	apiLimiter := ratelimit.New(limiterCfg)
	go apiLimiter.Run(ctx, cfg.RateLimitSweepInterval)

	var notifier notify.Notifier = notify.Nop{}
	var dispatcher *notify.Dispatcher
	if cfg.WebhookURL != "" {
		gate := ratelimit.New(limiterCfg)
		go gate.Run(ctx, cfg.RateLimitSweepInterval)

		sender := notify.NewWebhookSender(cfg.WebhookURL, cfg.WebhookTimeout, cfg.WebhookMinInterval)
		dispatcher = notify.NewDispatcher(sender, gate, cfg.NotifyQueueSize, cfg.WebhookTimeout)
		notifier = dispatcher
		slog.Info("webhook notifications enabled")
	}

	authService := service.NewAuthService(store, crypto.NewPasswordHasher(cfg.BcryptCost), sessions, notifier, cfg.StoreTimeout)
	profileService := service.NewProfileService(store, cfg.StoreTimeout)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.RouterConfig{
			Auth:         authService,
			Profiles:     profileService,
			Sessions:     sessions,
			Limiter:      apiLimiter,
			RateLimitMax: cfg.RateLimitMax,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "db_driver", dialect)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	dispatcher.Close()

	slog.Info("server stopped")
}
