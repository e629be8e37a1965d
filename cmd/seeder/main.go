package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/MICROWAVE-web/TgKeyBot/internal/config"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/keypool"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/keystore"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/redisdb"
)

// Локальная утилита: загружает файл с ключами в Redis-список пула.
// Полезно после ручного редактирования файла или переноса на новый хост.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if cfg.RedisURL == "" {
		log.Fatal("Seeder requires REDIS_URL")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	rdb, err := redisdb.NewConnection(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Redis error: %v", err)
	}
	defer rdb.Close()

	keys := keystore.NewFileStore(cfg.KeysFilename, logger)
	pool := keypool.New(rdb, keys, logger)

	ctx := context.Background()

	before := pool.Remaining(ctx)
	if err := pool.SeedFromFileIfEmpty(ctx); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	after := pool.Remaining(ctx)

	if after == before {
		log.Printf("[Seeder] Pool already has %d keys. Nothing to do.", before)
		return
	}
	log.Printf("✅ Seeded %d keys into Redis.", after)
}
