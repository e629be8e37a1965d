package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MICROWAVE-web/TgKeyBot/internal/config"
	"github.com/MICROWAVE-web/TgKeyBot/internal/domain"
	"github.com/MICROWAVE-web/TgKeyBot/internal/infrastructure/keystore"
	"github.com/MICROWAVE-web/TgKeyBot/internal/usecase"
	"github.com/MICROWAVE-web/TgKeyBot/internal/worker"
)

// Антифлуд-окна
const (
	messageWindow  = 2 * time.Second
	callbackWindow = time.Second
	refLinkWindow  = 30 * time.Second
)

const greeting = `
🙏 Привет, старина! Я РобоГабен, щедрый бот, который раздает ключи от игр Steam совершенно бесплатно каждые 2 недели.

▫️Для получения ключей, нужно быть подписанным на [меня](https://t.me/gabenson) и на [Халявный Steam](https://t.me/SteamByFree)

▫️Мой создатель: [Cын Габена](http://t.me/gabenson)
▫️По техническим вопросам, обращайтесь: @sh33shka`

type Handler struct {
	bot         *tgbotapi.BotAPI
	claims      *usecase.ClaimService
	broadcaster *worker.Broadcaster
	limiter     domain.Limiter
	pool        domain.KeyPool
	keys        *keystore.FileStore
	cfg         *config.Config
	logger      *slog.Logger
	httpClient  *http.Client
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	claims *usecase.ClaimService,
	broadcaster *worker.Broadcaster,
	limiter domain.Limiter,
	pool domain.KeyPool,
	keys *keystore.FileStore,
	cfg *config.Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bot:         bot,
		claims:      claims,
		broadcaster: broadcaster,
		limiter:     limiter,
		pool:        pool,
		keys:        keys,
		cfg:         cfg,
		logger:      logger,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Start получает апдейты (webhook или long-poll, по конфигурации)
// и разбирает их до остановки процесса.
func (h *Handler) Start(ctx context.Context) {
	updates, err := h.updatesChannel(ctx)
	if err != nil {
		h.logger.Error("failed to start update feed", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				go h.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				go h.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func (h *Handler) updatesChannel(ctx context.Context) (tgbotapi.UpdatesChannel, error) {
	if h.cfg.WebhookHost == "" {
		// Long-poll: старый вебхук, если был, мешает getUpdates.
		if _, err := h.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
			h.logger.Warn("failed to delete webhook", slog.String("error", err.Error()))
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		return h.bot.GetUpdatesChan(u), nil
	}

	wh, err := tgbotapi.NewWebhookWithCert(h.cfg.WebhookURL(), tgbotapi.FilePath(h.cfg.SSLCert))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	if _, err := h.bot.Request(wh); err != nil {
		return nil, fmt.Errorf("failed to set webhook: %w", err)
	}

	updates := h.bot.ListenForWebhook(h.cfg.WebhookPath)

	srv := &http.Server{Addr: fmt.Sprintf("0.0.0.0:%d", h.cfg.WebhookPort)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		if err := srv.ListenAndServeTLS(h.cfg.SSLCert, h.cfg.SSLKey); err != nil && err != http.ErrServerClosed {
			h.logger.Error("webhook server stopped", slog.String("error", err.Error()))
		}
	}()

	h.logger.Info("webhook set", slog.String("url", h.cfg.WebhookURL()))
	return updates, nil
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	uid := fmt.Sprintf("%d", userID)

	if !h.limiter.Allow(ctx, "antiflood:"+uid, messageWindow) {
		h.send(msg.Chat.ID, "⚠️ Слишком много запросов. Пожалуйста, подождите немного.")
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.cmdStart(ctx, msg)
		case "alert":
			h.cmdAlert(ctx, msg)
		}
		return
	}

	if msg.Document != nil {
		h.handleDocument(ctx, msg)
		return
	}

	if strings.HasPrefix(msg.Text, BtnRefLink) {
		h.cmdRefLink(ctx, msg)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	uid := fmt.Sprintf("%d", cb.From.ID)

	if !h.limiter.Allow(ctx, "callback_antiflood:"+uid, callbackWindow) {
		alert := tgbotapi.NewCallbackWithAlert(cb.ID, "⚠️ Слишком много кликов. Подождите секунду.")
		if _, err := h.bot.Request(alert); err != nil {
			h.logger.Warn("failed to answer callback", slog.String("error", err.Error()))
		}
		return
	}

	if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		h.logger.Warn("failed to answer callback", slog.String("error", err.Error()))
	}

	if cb.Data == cbCheckSubscription {
		h.runClaim(ctx, cb.From.ID, "")
	}
}

// --- Commands ---

func (h *Handler) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	referrer := ""
	if args := msg.CommandArguments(); args != "" {
		decoded, err := decodePayload(args)
		if err != nil {
			// Мусорный payload - просто нет реферала.
			h.logger.Warn("bad start payload", slog.String("payload", args))
		} else {
			referrer = decoded
		}
	}
	h.runClaim(ctx, msg.From.ID, referrer)
}

func (h *Handler) cmdRefLink(ctx context.Context, msg *tgbotapi.Message) {
	uid := fmt.Sprintf("%d", msg.From.ID)

	if !h.limiter.Allow(ctx, "ref_link:"+uid, refLinkWindow) {
		h.send(msg.Chat.ID, "⚠️ Ссылку можно запрашивать не чаще чем раз в 30 секунд.")
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=%s", h.bot.Self.UserName, encodePayload(uid))
	h.send(msg.Chat.ID, "Ваша реф. ссылка "+link)
}

func (h *Handler) cmdAlert(ctx context.Context, msg *tgbotapi.Message) {
	if !h.cfg.IsAdmin(msg.From.ID) {
		h.send(msg.Chat.ID, "❌ У вас нет прав для выполнения этой команды.")
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		h.send(msg.Chat.ID, "Использование: /alert <текст рассылки>")
		return
	}

	h.send(msg.Chat.ID, "📨 Рассылка началась. Она займёт около 4 дней.")
	go h.broadcaster.Run(ctx, text, msg.From.ID)
}

// handleDocument - дозагрузка ключей: админ присылает файл с тем же именем,
// что и файл пула.
func (h *Handler) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	if !h.cfg.IsAdmin(msg.From.ID) {
		h.send(msg.Chat.ID, "У вас нет прав для выполнения этой команды.")
		return
	}

	doc := msg.Document
	if doc.FileName != h.cfg.KeysFilename {
		h.send(msg.Chat.ID, fmt.Sprintf("Неверный файл. Пожалуйста, отправьте файл с именем %s.", h.cfg.KeysFilename))
		return
	}

	lines, err := h.downloadLines(ctx, doc.FileID)
	if err != nil {
		h.logger.Error("failed to download keys file", slog.String("error", err.Error()))
		h.send(msg.Chat.ID, "Не удалось скачать файл. Попробуйте еще раз.")
		return
	}

	// Пул дубликаты не фильтрует, это делается здесь, против текущего списка.
	existing := make(map[string]struct{})
	for _, k := range h.keys.Load() {
		existing[k] = struct{}{}
	}
	var fresh []string
	for _, k := range lines {
		if _, dup := existing[k]; !dup {
			fresh = append(fresh, k)
			existing[k] = struct{}{}
		}
	}

	if err := h.pool.AddMany(ctx, fresh); err != nil {
		h.logger.Error("failed to add keys", slog.String("error", err.Error()))
		h.send(msg.Chat.ID, "Не удалось сохранить ключи.")
		return
	}

	h.send(msg.Chat.ID, "Ключи успешно обновлены.")
}

func (h *Handler) downloadLines(ctx context.Context, fileID string) ([]string, error) {
	url, err := h.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// --- Claim flow ---

func (h *Handler) runClaim(ctx context.Context, userID int64, referrer string) {
	res := h.claims.Claim(ctx, userID, referrer)

	if res.IsNew {
		h.sendMarkdown(userID, greeting)
	}

	switch res.Status {
	case domain.StatusInFlight:
		h.send(userID, "Ваш запрос уже обрабатывается. Пожалуйста, подождите.")
	case domain.StatusNotSubscribed:
		h.sendWithMarkup(userID, "Чтобы получить ключ, вы должны быть подписаны на наш канал!",
			channelKeyboard(h.cfg.Channels))
	case domain.StatusCooldown:
		h.sendWithMarkup(userID, "Вы подписаны на каналы!", refKeyboard())
		h.send(userID, "Вы уже получили ключ.")
	case domain.StatusOutOfStock:
		h.sendWithMarkup(userID, "Вы подписаны на каналы!", refKeyboard())
		h.send(userID, "Ключи закончились.")
	case domain.StatusGranted:
		// Сам ключ уже отправлен ядром выдачи.
		h.sendWithMarkup(userID, "Вы подписаны на каналы!", refKeyboard())
	}
}

// --- UI helpers ---

func (h *Handler) send(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Warn("send failed", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

func (h *Handler) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Warn("send failed", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

func (h *Handler) sendWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Warn("send failed", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}
