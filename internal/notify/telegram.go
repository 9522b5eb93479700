package notify

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// UserLookup источник telegram_id получателя
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier доставляет уведомления в личные сообщения бота
type TelegramNotifier struct {
	sender messageSender
	users  UserLookup
	logger *zap.Logger
}

// NewTelegramNotifier без токена отправка отключена, уведомления только логируются
func NewTelegramNotifier(token string, users UserLookup, logger *zap.Logger) (*TelegramNotifier, error) {
	n := &TelegramNotifier{users: users, logger: logger}
	if token == "" {
		logger.Warn("Telegram token is empty, notifications disabled")
		return n, nil
	}

	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	n.sender = b
	return n, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, msg model.Notification) error {
	if n.sender == nil {
		n.logger.Debug("Notification skipped (bot disabled)",
			zap.String("event", string(msg.Event)),
			zap.Int64("recipient_id", msg.RecipientID),
		)
		return nil
	}

	user, err := n.users.GetByID(ctx, msg.RecipientID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	if user == nil || user.TelegramID == 0 {
		n.logger.Debug("Notification skipped (no telegram chat)",
			zap.Int64("recipient_id", msg.RecipientID),
		)
		return nil
	}

	_, err = n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    user.TelegramID,
		Text:      Render(msg),
		ParseMode: models.ParseModeMarkdownV1,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.Debug("Notification sent",
		zap.String("event", string(msg.Event)),
		zap.Int64("chat_id", user.TelegramID),
	)
	return nil
}
