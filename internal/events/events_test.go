package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	handler := func(event *Event) error {
		received = event
		callCount++
		return nil
	}

	bus.Subscribe("test_event", handler)

	payload := map[string]string{"foo": "bar"}
	require.NoError(t, bus.PublishJSON("test_event", payload))

	assert.Equal(t, 1, callCount)
	assert.Equal(t, "test_event", received.Type)
	assert.Equal(t, int64(1), received.ID)

	var decoded map[string]string
	require.NoError(t, received.Decode(&decoded))
	assert.Equal(t, "bar", decoded["foo"])
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	assert.Equal(t, 1, count1)
	assert.Equal(t, 1, count2)
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NotPanics(t, func() { bus.Publish(&Event{Type: "unknown"}) })
	assert.NoError(t, bus.PublishJSON("unknown", nil))

	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON("unknown", nil))
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	var failed []string
	bus.OnError(func(event *Event, err error) { failed = append(failed, event.Type+": "+err.Error()) })

	var secondCalled bool
	bus.Subscribe("event", func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { secondCalled = true; return nil })

	bus.Publish(&Event{Type: "event"})

	assert.True(t, secondCalled)
	assert.Equal(t, []string{"event: boom"}, failed)
}

func TestNewJSONEvent(t *testing.T) {
	payload := BookingEventPayload{BookingID: 123, Status: "WAITING", Start: time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)}
	event, err := NewJSONEvent("type", payload)
	require.NoError(t, err)

	assert.Equal(t, "type", event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, int64(123), decoded.BookingID)
	assert.True(t, payload.Start.Equal(decoded.Start))
}

func TestSubscribeAudit(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewEventBus()
	SubscribeAudit(bus, &logger)

	require.NoError(t, bus.PublishJSON(EventCommentAdded, CommentEventPayload{CommentID: 7, ItemID: 3}))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, EventCommentAdded, line["event_type"])
	assert.Equal(t, "domain event", line["message"])
	assert.Equal(t, float64(7), line["payload"].(map[string]interface{})["comment_id"])
}
