package notify

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramRetries = 3

// Telegram pushes signal notifications to a chat or channel.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram validates the credentials against the Bot API and returns a
// ready notifier.
func NewTelegram(botToken, chatID string) (*Telegram, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram credentials incomplete")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init failed: %w", err)
	}
	return &Telegram{bot: bot, chatID: id}, nil
}

// SendText sends a Markdown message with bounded retry.
func (t *Telegram) SendText(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	var lastErr error
	for i := 0; i < telegramRetries; i++ {
		if _, err := t.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}
