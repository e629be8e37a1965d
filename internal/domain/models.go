package domain

import "time"

// --- Статусы заявки на ключ ---

type ClaimStatus string

const (
	StatusEligible      ClaimStatus = "ELIGIBLE" // Все проверки пройдены, можно выдавать
	StatusGranted       ClaimStatus = "GRANTED"
	StatusInFlight      ClaimStatus = "IN_FLIGHT"      // Запрос этого юзера уже обрабатывается
	StatusNotSubscribed ClaimStatus = "NOT_SUBSCRIBED" // Не подписан на обязательные каналы
	StatusCooldown      ClaimStatus = "COOLDOWN"       // Ключ уже выдавался, окно не прошло
	StatusOutOfStock    ClaimStatus = "OUT_OF_STOCK"   // Пул пуст
)

// ClaimResult - итог обработки заявки
type ClaimResult struct {
	Status ClaimStatus
	Key    string // Заполнен только при StatusGranted
	IsNew  bool   // Пользователь зарегистрирован на этой заявке
}

// --- Entities ---

// User - запись о пользователе (ключ хранилища - Telegram ID строкой).
// JSON-имена совпадают со старым users.json, чтобы файл читался без миграции.
type User struct {
	// Кто пригласил этого пользователя. Очищается после выплаты бонуса.
	ReferredBy string `json:"referal,omitempty"`

	// Unix-секунды последней выдачи ключа. 0 = никогда.
	LastKeyGrantedAt float64 `json:"last_key_time,omitempty"`

	// Unix-секунды последней реферальной выплаты ЭТОМУ пользователю
	// как пригласившему. Защита от двойной выплаты.
	LastReferralPayoutAt float64 `json:"last_ref_time,omitempty"`
}

// InCooldown сообщает, действует ли еще окно между выдачами.
func (u *User) InCooldown(now time.Time, window time.Duration) bool {
	if u.LastKeyGrantedAt == 0 {
		return false
	}
	granted := time.Unix(int64(u.LastKeyGrantedAt), 0)
	return now.Sub(granted) < window
}

// PayoutAllowed сообщает, можно ли платить этому рефереру еще раз.
func (u *User) PayoutAllowed(now time.Time, interval time.Duration) bool {
	if u.LastReferralPayoutAt == 0 {
		return true
	}
	paid := time.Unix(int64(u.LastReferralPayoutAt), 0)
	return now.Sub(paid) >= interval
}
