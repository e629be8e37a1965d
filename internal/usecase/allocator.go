package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MICROWAVE-web/TgKeyBot/internal/domain"
)

// ClaimService - транзакционное ядро выдачи: гейт, пул, леджер,
// реферальная выплата и алерты админам.
type ClaimService struct {
	pool   domain.KeyPool
	ledger domain.UserLedger
	gate   *Gate
	guard  *InFlightGuard
	msg    domain.Messenger
	logger *slog.Logger

	admins            []int64
	lowStockThreshold int
	payoutInterval    time.Duration

	now func() time.Time // подменяется в тестах
}

func NewClaimService(
	pool domain.KeyPool,
	ledger domain.UserLedger,
	gate *Gate,
	msg domain.Messenger,
	admins []int64,
	lowStockThreshold int,
	payoutInterval time.Duration,
	logger *slog.Logger,
) *ClaimService {
	return &ClaimService{
		pool:              pool,
		ledger:            ledger,
		gate:              gate,
		guard:             NewInFlightGuard(),
		msg:               msg,
		logger:            logger,
		admins:            admins,
		lowStockThreshold: lowStockThreshold,
		payoutInterval:    payoutInterval,
		now:               time.Now,
	}
}

// Claim обрабатывает заявку на ключ (/start или колбэк проверки подписки).
// referrer - уже раскодированный ID пригласившего, "" если его нет.
func (s *ClaimService) Claim(ctx context.Context, userID int64, referrer string) domain.ClaimResult {
	uid := strconv.FormatInt(userID, 10)

	// Единственная защита от двойной выдачи одному пользователю.
	if !s.guard.TryAcquire(uid) {
		return domain.ClaimResult{Status: domain.StatusInFlight}
	}
	defer s.guard.Release(uid)

	isNew := s.ensureUser(ctx, uid, referrer)

	rec, err := s.ledger.Get(ctx, uid)
	if err != nil || rec == nil {
		rec = &domain.User{}
	}

	if st := s.gate.Check(ctx, userID, rec); st != domain.StatusEligible {
		return domain.ClaimResult{Status: st, IsNew: isNew}
	}

	key, ok := s.pool.TakeOne(ctx)
	if !ok {
		s.notifyAdmins(ctx, "Внимание, ключи закончились, пул пуст.")
		return domain.ClaimResult{Status: domain.StatusOutOfStock, IsNew: isNew}
	}

	s.checkLowStock(ctx)

	// Ключ уже забран из пула: сбой записи логируем, но выдачу не откатываем.
	if err := s.ledger.Upsert(ctx, uid, func(u *domain.User) {
		u.LastKeyGrantedAt = float64(s.now().Unix())
	}); err != nil {
		s.logger.Error("failed to record grant",
			slog.String("user_id", uid), slog.String("error", err.Error()))
	}

	if err := s.msg.SendText(ctx, userID, "Ваш ключ: "+key); err != nil {
		s.logger.Error("failed to deliver key",
			slog.String("user_id", uid), slog.String("error", err.Error()))
	}

	s.payReferrer(ctx, uid, rec.ReferredBy)

	return domain.ClaimResult{Status: domain.StatusGranted, Key: key, IsNew: isNew}
}

// ensureUser заводит запись при первом обращении. Реферальная ссылка на
// самого себя или мусорный payload молча отбрасываются.
func (s *ClaimService) ensureUser(ctx context.Context, uid, referrer string) bool {
	rec, err := s.ledger.Get(ctx, uid)
	if err != nil {
		s.logger.Error("ledger read failed", slog.String("user_id", uid), slog.String("error", err.Error()))
		return false
	}
	if rec != nil {
		return false
	}

	if referrer == uid || !isDigits(referrer) {
		referrer = ""
	}

	if err := s.ledger.Upsert(ctx, uid, func(u *domain.User) {
		u.ReferredBy = referrer
	}); err != nil {
		s.logger.Error("failed to create user record",
			slog.String("user_id", uid), slog.String("error", err.Error()))
	}
	return true
}

// payReferrer делает реферальную выплату глубиной ровно 1: бонусный ключ
// пригласившему, без кулдауна и без собственной реферальной цепочки.
func (s *ClaimService) payReferrer(ctx context.Context, claimantID, referrer string) {
	if referrer == "" {
		return
	}

	refRec, err := s.ledger.Get(ctx, referrer)
	if err != nil {
		s.logger.Error("ledger read failed", slog.String("user_id", referrer), slog.String("error", err.Error()))
		return
	}
	if refRec == nil {
		refRec = &domain.User{}
	}
	if !refRec.PayoutAllowed(s.now(), s.payoutInterval) {
		return
	}

	refID, err := strconv.ParseInt(referrer, 10, 64)
	if err != nil {
		return
	}

	if !s.issueBonus(ctx, refID) {
		return
	}

	// Две независимые записи; упасть между ними можно, это задокументировано.
	if err := s.ledger.Upsert(ctx, referrer, func(u *domain.User) {
		u.LastReferralPayoutAt = float64(s.now().Unix())
	}); err != nil {
		s.logger.Error("failed to record referral payout",
			slog.String("user_id", referrer), slog.String("error", err.Error()))
	}
	if err := s.ledger.Upsert(ctx, claimantID, func(u *domain.User) {
		u.ReferredBy = ""
	}); err != nil {
		s.logger.Error("failed to clear referral",
			slog.String("user_id", claimantID), slog.String("error", err.Error()))
	}
}

func (s *ClaimService) issueBonus(ctx context.Context, refID int64) bool {
	uid := strconv.FormatInt(refID, 10)

	if !s.guard.TryAcquire(uid) {
		return false
	}
	defer s.guard.Release(uid)

	key, ok := s.pool.TakeOne(ctx)
	if !ok {
		s.notifyAdmins(ctx, "Внимание, ключи закончились, пул пуст.")
		return false
	}

	s.checkLowStock(ctx)

	if err := s.msg.SendText(ctx, refID, "Ура, по реферальной ссылке перешли, держи подарок 🎁"); err != nil {
		s.logger.Warn("failed to notify referrer", slog.String("user_id", uid), slog.String("error", err.Error()))
	}
	if err := s.msg.SendText(ctx, refID, "Ваш ключ: "+key); err != nil {
		s.logger.Error("failed to deliver bonus key",
			slog.String("user_id", uid), slog.String("error", err.Error()))
	}
	return true
}

// checkLowStock шлет предупреждение админам, когда остаток на пороге или
// ниже. Чисто информационно, на исход выдачи не влияет.
func (s *ClaimService) checkLowStock(ctx context.Context) {
	left := s.pool.Remaining(ctx)
	if left > s.lowStockThreshold {
		return
	}
	s.notifyAdmins(ctx, fmt.Sprintf("Внимание, осталось мало ключей: %d", left))
}

// notifyAdmins - рассылка по списку админов. Сбой на одном не мешает прочим.
func (s *ClaimService) notifyAdmins(ctx context.Context, text string) {
	for _, admin := range s.admins {
		if err := s.msg.SendText(ctx, admin, text); err != nil {
			s.logger.Warn("failed to notify admin",
				slog.Int64("admin_id", admin), slog.String("error", err.Error()))
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
