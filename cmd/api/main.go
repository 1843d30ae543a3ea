package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"homestay_hub/internal/adapters/export"
	server "homestay_hub/internal/adapters/http_server"
	"homestay_hub/internal/adapters/notify"
	"homestay_hub/internal/adapters/observability"
	"homestay_hub/internal/adapters/qrcode"
	redisad "homestay_hub/internal/adapters/redis"
	"homestay_hub/internal/app"
	"homestay_hub/internal/auth"
	"homestay_hub/internal/domain"
	"homestay_hub/internal/shared"
	"homestay_hub/internal/storage/memory"
	mysqlrepo "homestay_hub/internal/storage/mysql"
)

const devJWTSecret = "dev-only-secret-change-me"

// cacheStore is what the services need from the cache backend.
type cacheStore interface {
	domain.Cache
	domain.ChallengeStore
}

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; using the development secret")
		cfg.JWTSecret = devJWTSecret
	}

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// storage + cache
	var (
		store domain.Store
		cache cacheStore
	)
	switch cfg.Storage {
	case "memory":
		store = memory.New()
		cache = memory.NewCache()
		log.Warn().Msg("running on in-memory storage; data is lost on exit")
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		store = mysqlrepo.New(db)

		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; cache reads will miss")
		}
		cache = rc
	}

	// outbound SMS
	var notifier domain.Notifier = notify.LogNotifier{}
	if cfg.NotifyKey != "" {
		c, err := notify.New(cfg.NotifyBase, cfg.NotifyKey, cfg.NotifyRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize SMS client")
		}
		notifier = c
	}

	// services
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	handlers := &server.Handlers{
		Q:          app.NewQueryService(store, cache, cfg.CacheTTL),
		Admin:      app.NewAdminService(store, cache),
		Campaigns:  app.NewCampaignService(store, cache, qrcode.New(), cfg.PublicBaseURL),
		Blog:       app.NewBlogService(store),
		Onboarding: app.NewOnboardingService(store, tokens),
		Host:       app.NewHostService(store, cache, export.XLSX{}),
		Guest:      app.NewGuestService(store, cache),
		Accounts: app.NewAccountService(store, cache, notifier, tokens, auth.NewOTP(cfg.OTPPeriod), app.AccountsConfig{
			OTPTTL:         cfg.OTPPeriod,
			OTPMaxAttempts: cfg.OTPMaxAttempts,
			PhoneLimiter:   shared.NewKeyedLimiter(cfg.OTPRPS, 1),
		}),
		Tokens:    tokens,
		IPLimiter: shared.NewKeyedLimiter(cfg.OTPRPS*5, 5),
	}

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.Storage).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
