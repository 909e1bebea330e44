package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"chesswatch-bot/internal/common/config"
	"chesswatch-bot/internal/common/logger"
	"chesswatch-bot/internal/features/commands"
	"chesswatch-bot/internal/features/monitor"
	"chesswatch-bot/internal/features/notify"
	"chesswatch-bot/internal/features/watchlist/registry"
	"chesswatch-bot/internal/features/watchlist/repository"
	redisrepo "chesswatch-bot/internal/features/watchlist/repository/redis"
	telegramrepo "chesswatch-bot/internal/features/watchlist/repository/telegram"
	"chesswatch-bot/internal/features/watchlist/service"
	apphttp "chesswatch-bot/internal/http"
	"chesswatch-bot/internal/metrics"
	"chesswatch-bot/internal/platform/chesscom"
	"chesswatch-bot/internal/platform/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the only fatal condition: unrecoverable startup misconfiguration
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init("chesswatch", cfg.Debug)

	loc, err := time.LoadLocation(cfg.Monitor.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Monitor.Timezone).Msg("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Telegram")
	}

	var store repository.SnapshotStore
	if cfg.UseRedis() {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		store = redisrepo.NewSnapshotStore(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using Redis snapshot store")
	} else {
		store = telegramrepo.NewSnapshotStore(tg, cfg.Telegram.BackupChannelID)
		log.Info().Int64("channel_id", cfg.Telegram.BackupChannelID).Msg("using Telegram channel snapshot store")
	}

	reg := registry.New(cfg.Monitor.MaxWatchesPerUser)
	watchlist := service.New(reg, store)
	if err := watchlist.Restore(ctx); err != nil {
		// a broken snapshot degrades to a fresh start; command handling
		// will persist a new one on the first mutation
		log.Error().Err(err).Msg("failed to restore snapshot, starting fresh")
	}

	m := metrics.New()
	engine := monitor.NewEngine(
		reg,
		chesscom.NewClient(),
		notify.New(tg),
		cfg.Monitor.CheckInterval,
		loc,
		m,
	)
	worker := commands.NewWorker(
		commands.NewRouter(watchlist, cfg.Telegram.AdminID, loc),
		tg,
	)
	server := apphttp.NewServer(cfg.Server.Port, m, cfg.Debug)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()
	wg.Wait()
	log.Info().Msg("chesswatch stopped")
}
