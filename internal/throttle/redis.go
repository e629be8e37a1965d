// Package throttle - антифлуд по произвольному строковому ключу.
//
// Основная реализация держит отметки в Redis и потому работает на все
// процессы сразу; запасная живет в памяти процесса.
package throttle

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter - фиксированное окно: SETNX с TTL. Пока отметка жива,
// повторные действия по тому же ключу запрещены.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisLimiter(rdb *redis.Client, prefix string, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, logger: logger}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, window time.Duration) bool {
	full := l.prefix + ":" + key

	ok, err := l.rdb.SetNX(ctx, full, time.Now().Unix(), window).Result()
	if err != nil {
		// Redis упал - не блокируем пользователей из-за антифлуда.
		l.logger.Error("throttle setnx failed", slog.String("error", err.Error()))
		return true
	}
	return ok
}
