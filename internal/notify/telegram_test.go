package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/stats"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegram_Record(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, 42, zap.NewNop())

	tr := stats.TradeRecord{
		Mint:         "Mint111",
		Symbol:       "DWR",
		Name:         "Dog Wif Rocket",
		Outcome:      stats.OutcomeSuccess,
		BuyAmountSOL: decimal.RequireFromString("0.05"),
		InitialMC:    decimal.NewNullDecimal(decimal.NewFromInt(30)),
		FinalMC:      decimal.NewNullDecimal(decimal.NewFromInt(45)),
		MaxMC:        decimal.NewNullDecimal(decimal.NewFromInt(50)),
		PnLPercent:   decimal.NewNullDecimal(decimal.NewFromInt(50)),
		SellReason:   "TP1 hit (>= 1.5x)",
		Duration:     95 * time.Second,
	}
	require.NoError(t, n.Record(context.Background(), tr))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "✅ DWR (Dog Wif Rocket) success")
	assert.Contains(t, msg.Text, "MC: 30.00 -> 45.00 (max 50.00) SOL")
	assert.Contains(t, msg.Text, "PnL: 50.00%")
	assert.Contains(t, msg.Text, "Reason: TP1 hit (>= 1.5x)")
	assert.Contains(t, msg.Text, "Held: 1m35s")
	assert.NotContains(t, msg.Text, "error")
}

func TestTelegram_Errors(t *testing.T) {
	n := New(&fakeSender{err: errors.New("Forbidden: bot was blocked by the user")}, 1, zap.NewNop())
	assert.Error(t, n.Notify(context.Background(), "hi"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sender := &fakeSender{}
	n = New(sender, 1, zap.NewNop())
	assert.ErrorIs(t, n.Notify(ctx, "hi"), context.Canceled)
	assert.Empty(t, sender.sent)
}

func TestFormatTrade_FailedBuy(t *testing.T) {
	text := FormatTrade(stats.TradeRecord{
		Symbol:       "X",
		Outcome:      stats.OutcomeFailedBuy,
		BuyAmountSOL: decimal.RequireFromString("0.01"),
		BuyError:     "bundle rejected",
	})
	assert.Contains(t, text, "❌")
	assert.Contains(t, text, "Buy error: bundle rejected")
	assert.Contains(t, text, "Reason: N/A")
	assert.NotContains(t, text, "PnL")
}
