package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// reply is what a command handler sends back; a nil keyboard means a
// plain message.
type reply struct {
	text           string
	inlineKeyboard *tgbotapi.InlineKeyboardMarkup
}
