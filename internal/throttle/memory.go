package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter - запасной антифлуд без Redis: token-bucket на ключ
// с периодической чисткой простаивающих записей. Межпроцессного
// ограничения в этом режиме нет.
type MemoryLimiter struct {
	mu           sync.Mutex
	entries      map[string]*memoryEntry
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type memoryEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries:      make(map[string]*memoryEntry),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string, window time.Duration) bool {
	now := time.Now()

	l.mu.Lock()
	ent, ok := l.entries[key]
	if !ok {
		ent = &memoryEntry{lim: rate.NewLimiter(rate.Every(window), 1)}
		l.entries[key] = ent
	}
	ent.lastSeen = now
	l.mu.Unlock()

	return ent.lim.Allow()
}

// StartJanitor запускает горутину, убирающую давно не использованные ключи.
// Останавливается отменой контекста.
func (l *MemoryLimiter) StartJanitor(ctx context.Context) {
	t := time.NewTicker(l.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.cleanup()
			}
		}
	}()
}

func (l *MemoryLimiter) cleanup() {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}
