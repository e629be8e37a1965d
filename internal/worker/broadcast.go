package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MICROWAVE-web/TgKeyBot/internal/domain"
)

const (
	defaultPace    = 3 * time.Second // пауза между получателями
	defaultBackoff = 5 * time.Second // пауза перед повтором после 429
	reportEvery    = 25000           // как часто присылать отчет инициатору
)

// Broadcaster - фоновая рассылка по всем известным пользователям.
// Запускается отдельной горутиной на каждую команду /alert; отмены
// на середине нет, только остановка процесса через ctx.
type Broadcaster struct {
	ledger domain.UserLedger
	msg    domain.Messenger
	logger *slog.Logger

	pace    time.Duration
	backoff time.Duration
	every   int
}

func NewBroadcaster(ledger domain.UserLedger, msg domain.Messenger, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		ledger:  ledger,
		msg:     msg,
		logger:  logger,
		pace:    defaultPace,
		backoff: defaultBackoff,
		every:   reportEvery,
	}
}

// Summary - итог рассылки
type Summary struct {
	Sent   int
	Failed int
	Total  int
}

// Run перебирает всех пользователей и шлет каждому text. На 429 - одна
// пауза и ровно один повтор; любой другой сбой считается ошибкой по этому
// получателю, рассылка продолжается. Инициатор получает промежуточные
// отчеты и финальную сводку.
func (b *Broadcaster) Run(ctx context.Context, text string, requesterID int64) Summary {
	ids, err := b.ledger.AllIDs(ctx)
	if err != nil {
		b.logger.Error("failed to enumerate users", slog.String("error", err.Error()))
		return Summary{}
	}

	sum := Summary{Total: len(ids)}

	for idx, id := range ids {
		chatID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			sum.Failed++
			continue
		}

		if err := b.deliver(ctx, chatID, text); err != nil {
			sum.Failed++
			b.logger.Warn("broadcast send failed",
				slog.String("user_id", id), slog.String("error", err.Error()))
		} else {
			sum.Sent++
		}

		if (idx+1)%b.every == 0 {
			b.report(ctx, requesterID, fmt.Sprintf(
				"📊 Промежуточный отчёт: %d отправлено, %d ошибок из %d обработанных.",
				sum.Sent, sum.Failed, idx+1))
		}

		if !sleep(ctx, b.pace) {
			b.logger.Info("broadcast interrupted by shutdown")
			return sum
		}
	}

	b.report(ctx, requesterID, fmt.Sprintf(
		"✅ Рассылка завершена. Всего: %d отправлено, %d ошибок, из %d пользователей.",
		sum.Sent, sum.Failed, sum.Total))

	return sum
}

func (b *Broadcaster) deliver(ctx context.Context, chatID int64, text string) error {
	err := b.msg.SendText(ctx, chatID, text)
	if err == nil || !errors.Is(err, domain.ErrThrottled) {
		return err
	}

	b.logger.Warn("rate limited, backing off", slog.Int64("user_id", chatID))
	if !sleep(ctx, b.backoff) {
		return err
	}
	return b.msg.SendText(ctx, chatID, text)
}

func (b *Broadcaster) report(ctx context.Context, requesterID int64, text string) {
	if err := b.msg.SendText(ctx, requesterID, text); err != nil {
		b.logger.Warn("failed to send broadcast report", slog.String("error", err.Error()))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
