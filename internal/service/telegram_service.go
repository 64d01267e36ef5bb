package service

import (
	"context"
	"fmt"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramService pushes booking notifications to one operator chat.
type TelegramService struct {
	bot    domain.TelegramSender
	chatID int64
	queue  domain.NotificationQueue
	logger *zerolog.Logger
}

func NewTelegramService(bot domain.TelegramSender, chatID int64, logger *zerolog.Logger) *TelegramService {
	return &TelegramService{
		bot:    bot,
		chatID: chatID,
		logger: newBase(nil, nil, logger).logger,
	}
}

func (s *TelegramService) SendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return s.bot.Send(msg)
}

// UseQueue routes booking notifications through q instead of sending inline.
func (s *TelegramService) UseQueue(q domain.NotificationQueue) {
	s.queue = q
}

// Notify sends text to the operator chat.
func (s *TelegramService) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.SendMarkdown(s.chatID, text)
	return err
}

// Subscribe attaches the notifier to booking events.
func (s *TelegramService) Subscribe(bus *events.EventBus) {
	bus.SubscribeAll(s.handleBookingEvent,
		events.EventBookingCreated,
		events.EventBookingApproved,
		events.EventBookingRejected,
	)
}

func (s *TelegramService) handleBookingEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	text := formatBookingEvent(event.Type, payload)
	if s.queue != nil {
		return s.queue.Enqueue(context.Background(), event.Type, text)
	}

	if _, err := s.SendMarkdown(s.chatID, text); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", payload.BookingID).Msg("telegram notification failed")
		return err
	}
	return nil
}

func formatBookingEvent(eventType string, p events.BookingEventPayload) string {
	var title string
	switch eventType {
	case events.EventBookingCreated:
		title = "🆕 *Новая заявка на бронирование*"
	case events.EventBookingApproved:
		title = "✅ *Бронирование подтверждено*"
	case events.EventBookingRejected:
		title = "❌ *Бронирование отклонено*"
	default:
		title = "*" + eventType + "*"
	}

	return fmt.Sprintf("%s\n\n#%d %s\nАрендатор: %s\nС: %s\nПо: %s\nСтатус: %s",
		title,
		p.BookingID,
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, p.ItemName),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, p.BookerName),
		p.Start.Local().Format(models.DateTimeLayout),
		p.End.Local().Format(models.DateTimeLayout),
		p.Status,
	)
}
