package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/MICROWAVE-web/TgKeyBot/internal/bot"
	"github.com/MICROWAVE-web/TgKeyBot/internal/config"
	"github.com/MICROWAVE-web/TgKeyBot/internal/domain"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/keypool"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/keystore"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/ledger"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/redisdb"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/telegram"
	"github.com/MICROWAVE-web/TgKeyBot/internal/throttle"
	"github.com/MICROWAVE-web/TgKeyBot/internal/usecase"
	"github.com/MICROWAVE-web/TgKeyBot/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Redis опционален: без него - файловый пул и локальный антифлуд.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = redisdb.NewConnection(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, degrading to file-only mode", slog.String("error", err.Error()))
			rdb = nil
		} else {
			defer rdb.Close()
			logger.Info("redis connected")
		}
	}

	keys := keystore.NewFileStore(cfg.KeysFilename, logger)
	users := ledger.NewFileLedger(cfg.UsersFilename, logger)

	pool := keypool.New(rdb, keys, logger)
	if err := pool.SeedFromFileIfEmpty(ctx); err != nil {
		logger.Error("failed to seed key pool", slog.String("error", err.Error()))
	}

	var limiter domain.Limiter
	if rdb != nil {
		limiter = throttle.NewRedisLimiter(rdb, "antiflood", logger)
	} else {
		mem := throttle.NewMemoryLimiter()
		mem.StartJanitor(ctx)
		limiter = mem
	}

	tgBot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("failed to init telegram bot", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tgBot.Debug = false
	logger.Info("Telegram bot authorized", slog.String("username", tgBot.Self.UserName))

	client := telegram.NewClient(tgBot)
	gate := usecase.NewGate(client, cfg.Channels, cfg.Cooldown)
	claims := usecase.NewClaimService(
		pool, users, gate, client,
		cfg.Admins, cfg.LowStockThreshold, cfg.RefPayoutInterval,
		logger,
	)
	broadcaster := worker.NewBroadcaster(users, client, logger)

	handler := bot.NewHandler(tgBot, claims, broadcaster, limiter, pool, keys, cfg, logger)

	logger.Info("Starting bot...",
		slog.Int("channels", len(cfg.Channels)),
		slog.Bool("webhook", cfg.WebhookHost != ""))

	go handler.Start(ctx)

	<-ctx.Done()
	logger.Info("Bot stopped gracefully")
}
