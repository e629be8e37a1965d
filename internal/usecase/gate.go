package usecase

import (
	"context"
	"time"

	"github.com/MICROWAVE-web/TgKeyBot/internal/domain"
)

// Gate решает, положен ли пользователю ключ прямо сейчас. Порядок проверок
// фиксирован: сначала подписка, потом окно между выдачами. Пользователь,
// который отписался во время кулдауна, получает "подпишитесь", а не
// "уже получали" - на этом порядке завязаны тексты ответов.
type Gate struct {
	checker  domain.MembershipChecker
	channels []string
	cooldown time.Duration

	now func() time.Time // подменяется в тестах
}

func NewGate(checker domain.MembershipChecker, channels []string, cooldown time.Duration) *Gate {
	return &Gate{
		checker:  checker,
		channels: channels,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Check прогоняет запись пользователя через проверки. Отказы - ожидаемые
// статусы, не ошибки: сбой самой проверки подписки считается "не подписан".
func (g *Gate) Check(ctx context.Context, userID int64, rec *domain.User) domain.ClaimStatus {
	for _, channel := range g.channels {
		ok, err := g.checker.IsMember(ctx, channel, userID)
		if err != nil || !ok {
			return domain.StatusNotSubscribed
		}
	}

	if rec.InCooldown(g.now(), g.cooldown) {
		return domain.StatusCooldown
	}

	return domain.StatusEligible
}
