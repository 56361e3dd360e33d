package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var got []OpeningHoursSavedPayload
	bus.Subscribe(OpeningHoursSaved, func(e Event) error {
		var p OpeningHoursSavedPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		assert.False(t, e.CreatedAt.IsZero())
		got = append(got, p)
		return nil
	})
	bus.Subscribe("other", func(Event) error {
		t.Fatal("unexpected handler call")
		return nil
	})

	require.NoError(t, bus.PublishJSON(OpeningHoursSaved, OpeningHoursSavedPayload{SettingID: "abc", TotalSlots: 120}))
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].SettingID)
	assert.Equal(t, 120, got[0].TotalSlots)
}

func TestEventBus_HandlerErrorsJoined(t *testing.T) {
	bus := NewEventBus()
	first := errors.New("first")
	calls := 0
	bus.Subscribe(OpeningHoursSaved, func(Event) error { calls++; return first })
	bus.Subscribe(OpeningHoursSaved, func(Event) error { calls++; return nil })

	err := bus.Publish(Event{Type: OpeningHoursSaved})
	assert.ErrorIs(t, err, first)
	assert.Equal(t, 2, calls)
}

func TestEventBus_NoSubscribers(t *testing.T) {
	assert.NoError(t, NewEventBus().Publish(Event{Type: OpeningHoursSaved}))
}

func TestEventBus_PublishJSONMarshalError(t *testing.T) {
	err := NewEventBus().PublishJSON(OpeningHoursSaved, make(chan int))
	assert.Error(t, err)
}
