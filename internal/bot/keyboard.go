package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Текст кнопки реферальной ссылки (чтобы не опечататься)
const BtnRefLink = "Моя реферальная ссылка"

// Callback-данные кнопки "Проверить подписку"
const cbCheckSubscription = "subchennel"

// channelKeyboard - кнопки-ссылки на обязательные каналы плюс кнопка
// повторной проверки подписки.
func channelKeyboard(channels []string) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton

	for i, channel := range channels {
		invite := strings.TrimPrefix(channel, "@")
		if j := strings.LastIndex(channel, "|"); j >= 0 {
			invite = channel[j+1:]
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL(
			fmt.Sprintf("Канал %d", i+1), "https://t.me/"+invite))
	}

	row = append(row, tgbotapi.NewInlineKeyboardButtonData("Проверить подписку", cbCheckSubscription))
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// refKeyboard - постоянная клавиатура для подписанных пользователей.
func refKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnRefLink)),
	)
	kb.ResizeKeyboard = true
	return kb
}
