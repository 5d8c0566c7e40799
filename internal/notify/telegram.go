// internal/notify/telegram.go
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/stats"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram отправляет итоги сделок в чат.
type Telegram struct {
	api    Sender
	chatID int64
	logger *zap.Logger
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	logger.Info("🤖 Telegram bot connected", zap.String("username", api.Self.UserName))
	return New(api, chatID, logger), nil
}

func New(api Sender, chatID int64, logger *zap.Logger) *Telegram {
	return &Telegram{api: api, chatID: chatID, logger: logger.Named("telegram")}
}

func (t *Telegram) Name() string { return "telegram" }

// Record sends a one-message summary of tr.
func (t *Telegram) Record(ctx context.Context, tr stats.TradeRecord) error {
	return t.Notify(ctx, FormatTrade(tr))
}

// Notify sends text as-is.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatTrade renders tr as plain text.
func FormatTrade(tr stats.TradeRecord) string {
	var b strings.Builder

	icon := "❌"
	switch tr.Outcome {
	case stats.OutcomeSuccess:
		icon = "✅"
	case stats.OutcomeOpen:
		icon = "⏸"
	}
	fmt.Fprintf(&b, "%s %s (%s) %s\n", icon, tr.Symbol, tr.Name, tr.Outcome)
	fmt.Fprintf(&b, "Mint: %s\n", tr.Mint)
	fmt.Fprintf(&b, "Buy: %s SOL\n", tr.BuyAmountSOL)

	if tr.InitialMC.Valid {
		fmt.Fprintf(&b, "MC: %s -> %s (max %s) SOL\n",
			tr.InitialMC.Decimal.StringFixed(2),
			tr.FinalMC.Decimal.StringFixed(2),
			tr.MaxMC.Decimal.StringFixed(2))
	}
	if tr.PnLPercent.Valid {
		fmt.Fprintf(&b, "PnL: %s%%\n", tr.PnLPercent.Decimal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Reason: %s\n", tr.Reason())

	for _, e := range []struct{ label, msg string }{
		{"Buy sim error", tr.BuySimError},
		{"Buy error", tr.BuyError},
		{"Sell error", tr.SellError},
	} {
		if e.msg != "" {
			fmt.Fprintf(&b, "%s: %s\n", e.label, e.msg)
		}
	}
	fmt.Fprintf(&b, "Held: %s", tr.Duration.Round(time.Second))
	return b.String()
}
