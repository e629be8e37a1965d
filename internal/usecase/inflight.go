package usecase

import "sync"

// InFlightGuard - пер-юзерный маркер "заявка уже в обработке". Локальный
// для процесса: деплой однопроцессный, распределенный замок не нужен.
type InFlightGuard struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{ids: make(map[string]struct{})}
}

// TryAcquire занимает маркер. false - заявка этого пользователя уже идет.
func (g *InFlightGuard) TryAcquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.ids[userID]; busy {
		return false
	}
	g.ids[userID] = struct{}{}
	return true
}

// Release снимает маркер. Вызывается через defer на любом исходе.
func (g *InFlightGuard) Release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ids, userID)
}
