// Package notify tells staff chats about opening hours changes.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"fitstudio/internal/events"
	"fitstudio/internal/model"
)

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// StaffNotifier posts saved opening hours to every configured chat.
type StaffNotifier struct {
	sender  TelegramSender
	chatIDs []int64
	studio  string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

const (
	// Telegram allows roughly 30 messages per second per bot.
	defaultSendRate  = 20
	defaultSendBurst = 30
	sendTimeout      = 10 * time.Second
)

func NewStaffNotifier(sender TelegramSender, chatIDs []int64, studio string, logger zerolog.Logger) *StaffNotifier {
	return &StaffNotifier{
		sender:  sender,
		chatIDs: chatIDs,
		studio:  studio,
		limiter: rate.NewLimiter(defaultSendRate, defaultSendBurst),
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// SetRateLimit changes how fast messages are sent.
func (n *StaffNotifier) SetRateLimit(perSecond float64, burst int) {
	n.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Attach subscribes the notifier to the bus.
func (n *StaffNotifier) Attach(bus *events.EventBus) {
	bus.Subscribe(events.OpeningHoursSaved, n.HandleOpeningHoursSaved)
}

func (n *StaffNotifier) HandleOpeningHoursSaved(e events.Event) error {
	var p events.OpeningHoursSavedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	text := FormatOpeningHours(n.studio, p)
	var errs []error
	for _, chatID := range n.chatIDs {
		if err := n.limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			break
		}
		if _, err := n.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send opening hours notification")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	n.logger.Info().Str("setting_id", p.SettingID).Int("chats", len(n.chatIDs)).Msg("staff notified about opening hours")
	return errors.Join(errs...)
}

var dayTitles = map[model.Weekday]string{
	model.Monday:    "Mon",
	model.Tuesday:   "Tue",
	model.Wednesday: "Wed",
	model.Thursday:  "Thu",
	model.Friday:    "Fri",
	model.Saturday:  "Sat",
	model.Sunday:    "Sun",
}

// FormatOpeningHours renders the message body for a saved version.
func FormatOpeningHours(studio string, p events.OpeningHoursSavedPayload) string {
	var sb strings.Builder
	if studio != "" {
		fmt.Fprintf(&sb, "%s: ", studio)
	}
	sb.WriteString("new opening hours")
	if p.EffectiveFrom != nil {
		fmt.Fprintf(&sb, " from %s", p.EffectiveFrom.String())
	} else {
		sb.WriteString(" effective immediately")
	}
	sb.WriteString("\n\n")

	for _, d := range model.AllWeekdays {
		h, ok := p.Hours[d]
		switch {
		case !ok || !h.IsOpen || h.OpenTime == nil || h.CloseTime == nil:
			fmt.Fprintf(&sb, "%s: closed\n", dayTitles[d])
		default:
			fmt.Fprintf(&sb, "%s: %s-%s\n", dayTitles[d], *h.OpenTime, *h.CloseTime)
		}
	}
	fmt.Fprintf(&sb, "\nWeekly slots: %d", p.TotalSlots)
	if p.CreatedBy != "" {
		fmt.Fprintf(&sb, "\nChanged by: %s", p.CreatedBy)
	}
	return sb.String()
}
