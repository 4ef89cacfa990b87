package notifier

import (
	"fmt"

	"taskpay_backend/internal/model"
	"taskpay_backend/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// AdminBot pings the admin chat when a new request lands in the approval
// queue, so decisions do not sit unseen. Optional: a nil *AdminBot is safe.
type AdminBot struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

type AdminBotConfig struct {
	BotToken string
	ChatID   int64
	Debug    bool
}

func NewAdminBot(cfg AdminBotConfig) (*AdminBot, error) {
	if cfg.BotToken == "" {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize admin bot: %w", err)
	}
	bot.Debug = cfg.Debug

	return &AdminBot{
		bot:    bot,
		chatID: cfg.ChatID,
	}, nil
}

func (b *AdminBot) Notify(event model.Event) {
	if b == nil || event.Kind != model.EventRequestCreated {
		return
	}

	text := fmt.Sprintf("New %s request from %s (amount %d)", event.Reason, event.UserID, event.Amount)
	if _, err := b.bot.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		logger.Logger().Warn("failed to send admin alert", zap.Error(err))
	}
}

// SendDigest posts a summary line; wired to the daily cron job.
func (b *AdminBot) SendDigest(pendingByKind map[model.RequestKind]int) {
	if b == nil {
		return
	}

	text := "Pending requests:"
	total := 0
	for kind, count := range pendingByKind {
		text += fmt.Sprintf("\n%s: %d", kind, count)
		total += count
	}
	if total == 0 {
		text = "Pending requests: none"
	}

	if _, err := b.bot.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		logger.Logger().Warn("failed to send admin digest", zap.Error(err))
	}
}
