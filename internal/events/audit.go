package events

import (
	"github.com/rs/zerolog"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []string{
	EventBookingCreated,
	EventBookingApproved,
	EventBookingRejected,
	EventItemCreated,
	EventCommentAdded,
	EventRequestCreated,
}

// SubscribeAudit writes every event to the log and reports handler errors.
func SubscribeAudit(bus *EventBus, logger *zerolog.Logger) {
	bus.SubscribeAll(func(event *Event) error {
		logger.Info().
			Int64("event_id", event.ID).
			Str("event_type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("domain event")
		return nil
	}, AllEventTypes...)

	bus.OnError(func(event *Event, err error) {
		logger.Error().Err(err).Str("event_type", event.Type).Int64("event_id", event.ID).Msg("event handler failed")
	})
}
