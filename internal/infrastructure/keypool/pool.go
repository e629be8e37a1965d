package keypool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/keystore"
)

// Имя списка в Redis, совместимо со старым ботом.
const redisListKey = "keys_list"

// Pool - пул невыданных ключей. Основной путь - атомарный LPOP из Redis;
// без Redis (или при пустом списке) работает запасной путь по файлу.
type Pool struct {
	rdb    *redis.Client // nil - Redis недоступен
	file   *keystore.FileStore
	logger *slog.Logger
}

func New(rdb *redis.Client, file *keystore.FileStore, logger *slog.Logger) *Pool {
	return &Pool{rdb: rdb, file: file, logger: logger}
}

// TakeOne атомарно забирает один ключ.
func (p *Pool) TakeOne(ctx context.Context) (string, bool) {
	if p.rdb != nil {
		key, err := p.rdb.LPop(ctx, redisListKey).Result()
		if err == nil && key != "" {
			return key, true
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			p.logger.Error("redis lpop failed, falling back to file", slog.String("error", err.Error()))
		}
	}
	return p.file.TakeOne()
}

// AddMany дозагружает ключи и в Redis, и в файл. Дубликаты не фильтруются.
func (p *Pool) AddMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	if p.rdb != nil {
		vals := make([]interface{}, len(keys))
		for i, k := range keys {
			vals[i] = k
		}
		if err := p.rdb.RPush(ctx, redisListKey, vals...).Err(); err != nil {
			return fmt.Errorf("failed to push keys to redis: %w", err)
		}
	}

	return p.file.Append(keys)
}

// Remaining - текущий остаток. Только для алертов.
func (p *Pool) Remaining(ctx context.Context) int {
	if p.rdb != nil {
		n, err := p.rdb.LLen(ctx, redisListKey).Result()
		if err == nil {
			return int(n)
		}
		p.logger.Error("redis llen failed", slog.String("error", err.Error()))
	}
	return p.file.Count()
}

// SeedFromFileIfEmpty загружает ключи из файла в Redis на старте.
// Если список уже не пуст, ничего не делает - иначе рестарт задвоил бы пул.
func (p *Pool) SeedFromFileIfEmpty(ctx context.Context) error {
	if p.rdb == nil {
		return nil
	}

	n, err := p.rdb.LLen(ctx, redisListKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check redis list length: %w", err)
	}
	if n > 0 {
		return nil
	}

	keys := p.file.Load()
	if len(keys) == 0 {
		return nil
	}

	vals := make([]interface{}, len(keys))
	for i, k := range keys {
		vals[i] = k
	}
	if err := p.rdb.RPush(ctx, redisListKey, vals...).Err(); err != nil {
		return fmt.Errorf("failed to seed keys into redis: %w", err)
	}

	p.logger.Info("keys loaded into redis list", slog.Int("count", len(keys)))
	return nil
}
