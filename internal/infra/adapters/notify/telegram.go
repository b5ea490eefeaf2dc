package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/i18n"
)

// botSender is the subset of *tgbotapi.BotAPI the notifier uses.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ adapter.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier posts confirmations into an operations chat.
type TelegramNotifier struct {
	bot    botSender
	chatID int64
	tr     *i18n.Translator
}

func NewTelegramNotifier(token string, chatID int64, lang string) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram.token and telegram.chat_id are required for the telegram notifier")
	}
	tr, err := i18n.New(lang)
	if err != nil {
		return nil, err
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, tr: tr}, nil
}

func (n *TelegramNotifier) NotifyPaymentConfirmed(ctx context.Context, p model.Payment) error {
	text := n.tr.T(i18n.KeyPaymentConfirmed, p.UserID, string(p.Plan), p.DurationDays, string(p.Rail), p.ID)
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	_, err := n.bot.Send(msg)
	return observe(DriverTelegram, err)
}
