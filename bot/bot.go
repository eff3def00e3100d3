// Package bot pushes attendance notifications to a Telegram admin chat
package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/models"
)

// Bot sends accepted marks to a single admin chat
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// Init creates the Telegram bot client and verifies the token
func Init(token, chatIDStr string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	api.Debug = false

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_CHAT_ID %q: %w", chatIDStr, err)
	}

	logrus.Infof("telegram bot authorized on account %s", api.Self.UserName)
	return &Bot{api: api, chatID: chatID}, nil
}

// NotifyMark sends one accepted mark to the admin chat. Best-effort: runs
// detached from the request, failure only reaches the logs.
func (b *Bot) NotifyMark(event *models.Event) {
	actionText := "ПРИХОД"
	if event.Action == models.ActionOut {
		actionText = "УХОД"
	}
	text := fmt.Sprintf("*%s*\n👤 %s (%s)\n📍 %s\n🕐 %s",
		actionText, event.EmployeeName, event.EmployeeStatus, event.Worksite, event.Timestamp)

	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		logrus.WithError(err).Warn("telegram notification failed")
	}
}
