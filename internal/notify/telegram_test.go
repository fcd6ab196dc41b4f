package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Allocator/internal/model"
	"github.com/Alias1177/Allocator/internal/trading/backtest"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func sampleResult() *backtest.RunResult {
	simulated := model.PortfolioRecord{DollarAmount: 1000, AnnualReturn: 0.3, DownsideSD: 0.2, UpsideSD: 0.25,
		VolatilitySkewness: 1.25, SortinoRatio: 1.25, Weights: model.WeightVector{0.7, 0.3}}
	realized := model.PortfolioRecord{DollarAmount: 1150, AnnualReturn: 0.15, DownsideSD: 0.25, UpsideSD: 0.2,
		VolatilitySkewness: 0.8, SortinoRatio: 0.4, TotalReturn: 0.15}
	return &backtest.RunResult{
		Params: model.Params{
			Industry:    "uranium",
			Tickers:     []string{"CCJ", "UEC"},
			Start:       time.Date(2018, 3, 25, 0, 0, 0, 0, time.UTC),
			End:         time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			Simulations: 100000,
		},
		Boundary: time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC),
		Realized: realized,
		Combined: backtest.Merge(simulated, realized, []string{"CCJ", "UEC"}),
	}
}

func TestSummary(t *testing.T) {
	s := Summary(sampleResult())

	assert.Contains(t, s, `*URANIUM portfolio* \(2018\-03\-25 to 2024\-04\-01\)`)
	assert.Contains(t, s, `back\-tested from 2023\-04\-02`)
	assert.Contains(t, s, "Dollar Amount")
	assert.Contains(t, s, "15.0%")
	assert.Contains(t, s, "CCJ                      70.00%")
	assert.Contains(t, s, `Realized total return: 15\.00%`)
}

func TestSummary_EscapesIndustry(t *testing.T) {
	result := sampleResult()
	result.Params.Industry = "gold_miners"
	s := Summary(result)

	assert.Contains(t, s, `*GOLD\_MINERS portfolio*`)

	parts := strings.Split(s, "```")
	require.Len(t, parts, 3, "exactly one code block")
	for _, text := range []string{parts[0], parts[2]} {
		for i, r := range text {
			if !strings.ContainsRune("_[]()~>#+-=|{}.!", r) {
				continue
			}
			assert.True(t, i > 0 && text[i-1] == '\\', "unescaped %q at %d in %q", r, i, text)
		}
	}
}

func TestTelegram_Observe(t *testing.T) {
	chart := filepath.Join(t.TempDir(), "weights.png")
	require.NoError(t, os.WriteFile(chart, []byte("png"), 0o644))

	bot := &fakeBot{}
	require.NoError(t, newTelegram(bot, 42, chart).Observe(context.Background(), sampleResult()))

	require.Len(t, bot.sent, 2)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	_, ok = bot.sent[1].(tgbotapi.PhotoConfig)
	assert.True(t, ok)
}

func TestTelegram_ObserveWithoutChart(t *testing.T) {
	bot := &fakeBot{}
	require.NoError(t, newTelegram(bot, 42, filepath.Join(t.TempDir(), "missing.png")).Observe(context.Background(), sampleResult()))
	assert.Len(t, bot.sent, 1)
}

func TestTelegram_SendError(t *testing.T) {
	bot := &fakeBot{err: errors.New("forbidden")}
	err := newTelegram(bot, 42, "").Observe(context.Background(), sampleResult())
	assert.Error(t, err)
	assert.Len(t, bot.sent, 1)
}
