// Package notify delivers optional run notifications via the Telegram Bot
// API: a summary when a pipeline run completes and an error message when it
// aborts. Notification failures are reported to the caller but are never
// fatal to the pipeline itself.
package notify

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
	"github.com/Sia112904/etl-weather-pipeline/internal/normalize"
)

// Notifier sends run notifications to a Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New creates a Notifier for the given bot token and chat ID.
func New(botToken, chatID string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return &Notifier{bot: bot, chatID: chatIDInt}, nil
}

// SendSummary sends a run-completion summary.
func (n *Notifier) SendSummary(station string, rep normalize.Report, written int, duration time.Duration) error {
	message := formatSummary(station, rep, written, duration)
	return n.send(message)
}

// SendError sends a run-failure notification.
func (n *Notifier) SendError(stage string, runErr error) error {
	message := fmt.Sprintf("❌ Weather ETL failed\n\nStage: %s\nError: %v", stage, runErr)
	return n.send(message)
}

func (n *Notifier) send(message string) error {
	msg := tgbotapi.NewMessage(n.chatID, message)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}

func formatSummary(station string, rep normalize.Report, written int, duration time.Duration) string {
	message := "✅ Weather ETL run completed\n\n"
	message += fmt.Sprintf("Station: %s\n", station)
	message += fmt.Sprintf("Rows read: %d\n", rep.Input)
	message += fmt.Sprintf("Normalized: %d\n", rep.Normalized)
	message += fmt.Sprintf("Dropped: %d\n", rep.Dropped)
	reasons := make([]string, 0, len(rep.ByReason))
	for reason := range rep.ByReason {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		message += fmt.Sprintf("  - %s: %d\n", reason, rep.ByReason[models.DropReason(reason)])
	}
	message += fmt.Sprintf("Written: %d\n", written)
	message += fmt.Sprintf("Duration: %s", duration.Round(time.Millisecond))
	return message
}
