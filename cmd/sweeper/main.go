package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"homestay_hub/internal/adapters/observability"
	redisad "homestay_hub/internal/adapters/redis"
	"homestay_hub/internal/app"
	"homestay_hub/internal/shared"
	mysqlrepo "homestay_hub/internal/storage/mysql"
)

func main() {
	every := flag.Duration("every", 0, "repeat the sweep at this interval; 0 runs once")
	flag.Parse()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Int("workers", cfg.SweepWorkers).
		Dur("every", *every).
		Msg("sweeper starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	sweeper := app.NewSweepService(mysqlrepo.New(db), cache)

	run := func() {
		start := time.Now()
		res, err := sweeper.SweepAll(ctx, cfg.SweepWorkers)
		if err != nil {
			log.Error().Err(err).Msg("sweep failed")
			return
		}
		log.Info().
			Int("completed", res.Completed).
			Int("expired", res.Expired).
			Int("no_show", res.NoShow).
			Dur("took", time.Since(start)).
			Msg("sweep completed")
	}

	run()
	if *every <= 0 {
		return
	}
	t := time.NewTicker(*every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper stopped")
			return
		case <-t.C:
			run()
		}
	}
}
