package domain

import (
	"context"
	"errors"
	"time"
)

// ErrThrottled - платформа ответила "Too Many Requests".
// Адаптер оборачивает такие ошибки, чтобы рассылка могла сделать повтор.
var ErrThrottled = errors.New("telegram: too many requests")

// KeyPool - пул невыданных ключей
type KeyPool interface {
	// Атомарно забрать один ключ. false - пул пуст.
	TakeOne(ctx context.Context) (string, bool)

	// Дозагрузка ключей. Дубликаты не фильтруются - это забота вызывающего.
	AddMany(ctx context.Context, keys []string) error

	// Текущий остаток. Только для алертов, гонка с TakeOne допустима.
	Remaining(ctx context.Context) int
}

// UserLedger - хранилище записей о пользователях
type UserLedger interface {
	// Получить запись. (nil, nil) - записи нет.
	Get(ctx context.Context, userID string) (*User, error)

	// Создать или изменить запись. mutate получает запись (новую, если
	// ее не было), результат сразу сбрасывается на диск.
	Upsert(ctx context.Context, userID string, mutate func(*User)) error

	// Все известные ID (для рассылки). Порядок не гарантируется.
	AllIDs(ctx context.Context) ([]string, error)
}

// Messenger - исходящие сообщения в Telegram
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// MembershipChecker - проверка подписки на канал
type MembershipChecker interface {
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// Limiter - антифлуд по произвольному ключу
type Limiter interface {
	// true - действие разрешено; false - в окне window уже было обращение.
	Allow(ctx context.Context, key string, window time.Duration) bool
}
