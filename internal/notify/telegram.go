package notify

import (
	"context"
	"fmt"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Allocator/internal/model"
	"github.com/Alias1177/Allocator/internal/trading/backtest"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a run summary to a chat, followed by the weights chart when one exists
type Telegram struct {
	bot       sender
	chatID    int64
	chartPath string
	logger    zerolog.Logger
}

// NewTelegram creates a notifier using a bot token
func NewTelegram(token string, chatID int64, chartPath string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return newTelegram(bot, chatID, chartPath), nil
}

func newTelegram(bot sender, chatID int64, chartPath string) *Telegram {
	return &Telegram{
		bot:       bot,
		chatID:    chatID,
		chartPath: chartPath,
		logger:    log.With().Str("component", "telegram").Logger(),
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Observe sends the summary message and the chart
func (t *Telegram) Observe(_ context.Context, result *backtest.RunResult) error {
	msg := tgbotapi.NewMessage(t.chatID, Summary(result))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending summary: %w", err)
	}

	if t.chartPath == "" {
		return nil
	}
	if _, err := os.Stat(t.chartPath); err != nil {
		t.logger.Debug().Str("path", t.chartPath).Msg("No chart to send")
		return nil
	}
	photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FilePath(t.chartPath))
	photo.Caption = "Maximum Sortino allocation"
	if _, err := t.bot.Send(photo); err != nil {
		return fmt.Errorf("sending chart: %w", err)
	}

	t.logger.Info().Int64("chat_id", t.chatID).Msg("Run summary sent")
	return nil
}

// Summary renders the combined table as a MarkdownV2 message.
// Text outside the code block is escaped, so industry names like gold_miners are safe.
func Summary(result *backtest.RunResult) string {
	p := result.Params
	var b strings.Builder

	fmt.Fprintf(&b, "*%s* %s\n",
		escape(strings.ToUpper(p.Industry)+" portfolio"),
		escape(fmt.Sprintf("(%s to %s)", p.Start.Format(model.DateLayout), p.End.Format(model.DateLayout))))
	b.WriteString(escape(fmt.Sprintf("%d simulations, back-tested from %s",
		p.Simulations, result.Boundary.Format(model.DateLayout))))
	b.WriteString("\n\n")

	b.WriteString("```\n")
	fmt.Fprintf(&b, "%-20s %10s %10s %9s\n", "Metric", "Simulated", "Realized", "Diff")
	for _, row := range result.Combined.Rows {
		if !row.HasRealized {
			fmt.Fprintf(&b, "%-20s %9.2f%%\n", codeSafe(row.Metric), row.Simulated*100)
			continue
		}
		fmt.Fprintf(&b, "%-20s %10.4f %10.4f %8.1f%%\n", codeSafe(row.Metric), row.Simulated, row.Realized, row.PctDiff*100)
	}
	b.WriteString("```\n")
	b.WriteString(escape(fmt.Sprintf("Realized total return: %.2f%%", result.Realized.TotalReturn*100)))
	return b.String()
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}

// codeSafe escapes the two characters that are special inside a code block
func codeSafe(text string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(text)
}
