package service

import (
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"

	"github.com/rs/zerolog"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() domain.Clock { return systemClock{} }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// base carries what every service needs besides its repository.
type base struct {
	clock  domain.Clock
	events domain.EventPublisher
	logger *zerolog.Logger
}

func newBase(clock domain.Clock, events domain.EventPublisher, logger *zerolog.Logger) base {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return base{clock: clock, events: events, logger: logger}
}

func (b base) now() time.Time {
	return b.clock.Now()
}

// publish never fails the calling operation; delivery errors are logged.
func (b base) publish(eventType string, payload interface{}) {
	if b.events == nil {
		return
	}
	if err := b.events.PublishJSON(eventType, payload); err != nil {
		b.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalid, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrNotFound, fmt.Sprintf(format, args...))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
