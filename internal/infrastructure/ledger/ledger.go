package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/MICROWAVE-web/TgKeyBot/internal/domain"
)

// FileLedger хранит записи пользователей в одном JSON-файле
// (map[userID]User) и переписывает файл целиком на каждой мутации.
type FileLedger struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	users map[string]*domain.User
}

func NewFileLedger(path string, logger *slog.Logger) *FileLedger {
	l := &FileLedger{
		path:   path,
		logger: logger,
		users:  make(map[string]*domain.User),
	}
	l.load()
	return l
}

func (l *FileLedger) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		l.logger.Warn("users file not readable, starting empty",
			slog.String("path", l.path), slog.String("error", err.Error()))
		return
	}

	if err := json.Unmarshal(data, &l.users); err != nil {
		l.logger.Error("users file corrupted, starting empty",
			slog.String("path", l.path), slog.String("error", err.Error()))
		l.users = make(map[string]*domain.User)
	}
}

func (l *FileLedger) flushLocked() error {
	data, err := json.Marshal(l.users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	return nil
}

// Get возвращает копию записи. (nil, nil) - записи нет.
func (l *FileLedger) Get(ctx context.Context, userID string) (*domain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// Upsert применяет mutate к записи (создавая пустую при отсутствии) и сразу
// сбрасывает весь файл. Ошибка записи на диск возвращается вызывающему,
// но кэш в памяти уже обновлен.
func (l *FileLedger) Upsert(ctx context.Context, userID string, mutate func(*domain.User)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		u = &domain.User{}
		l.users[userID] = u
	}
	mutate(u)

	return l.flushLocked()
}

// AllIDs - все известные пользователи в произвольном порядке.
func (l *FileLedger) AllIDs(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.users))
	for id := range l.users {
		ids = append(ids, id)
	}
	return ids, nil
}
