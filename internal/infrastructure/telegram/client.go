package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MICROWAVE-web/TgKeyBot/internal/domain"
)

// Client - адаптер Bot API под контракты domain. Ошибки 429 оборачиваются
// в domain.ErrThrottled, чтобы рассылка могла распознать троттлинг.
type Client struct {
	bot *tgbotapi.BotAPI
}

func NewClient(bot *tgbotapi.BotAPI) *Client {
	return &Client{bot: bot}
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return classify(err)
	}
	return nil
}

// IsMember проверяет, состоит ли пользователь в канале.
func (c *Client) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: chatConfigWithUser(channel, userID),
	}

	member, err := c.bot.GetChatMember(cfg)
	if err != nil {
		return false, classify(err)
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// chatConfigWithUser разбирает идентификатор канала из конфигурации:
// "@username", числовой chat id, либо "id|invite-slug".
func chatConfigWithUser(channel string, userID int64) tgbotapi.ChatConfigWithUser {
	ident := channel
	if i := strings.Index(channel, "|"); i >= 0 {
		ident = channel[:i]
	}

	if id, err := strconv.ParseInt(ident, 10, 64); err == nil {
		return tgbotapi.ChatConfigWithUser{ChatID: id, UserID: userID}
	}
	if !strings.HasPrefix(ident, "@") {
		ident = "@" + ident
	}
	return tgbotapi.ChatConfigWithUser{SuperGroupUsername: ident, UserID: userID}
}

func classify(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		if tgErr.Code == 429 || tgErr.RetryAfter > 0 {
			return fmt.Errorf("%w: %s", domain.ErrThrottled, tgErr.Message)
		}
	}
	if strings.Contains(err.Error(), "Too Many Requests") {
		return fmt.Errorf("%w: %s", domain.ErrThrottled, err.Error())
	}
	return err
}
