package live

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campushq/event-registration/models"
)

func newTestHub() *Hub {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
		return Message{}
	}
}

func TestEventRoom(t *testing.T) {
	require.Equal(t, "event_17", EventRoom(17))
}

func TestHubBroadcastsToRoomSubscribersOnly(t *testing.T) {
	hub := newTestHub()

	subscriber := NewClient(hub, nil, EventRoom(1))
	bystander := NewClient(hub, nil, EventRoom(2))
	hub.register <- subscriber
	hub.register <- bystander

	hub.BroadcastOccupancy(models.CapacitySnapshot{
		EventID:              1,
		CurrentRegistrations: 3,
		MaxCapacity:          10,
	})

	msg := receive(t, subscriber)
	require.Equal(t, TypeOccupancyUpdated, msg.Type)
	require.Equal(t, EventRoom(1), msg.Room)

	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	var snap models.CapacitySnapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	require.Equal(t, 3, snap.CurrentRegistrations)
	require.Equal(t, 10, snap.MaxCapacity)

	select {
	case <-bystander.send:
		t.Fatal("a subscriber of another event's room must not receive the update")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := newTestHub()

	client := NewClient(hub, nil, EventRoom(1))
	hub.register <- client
	hub.unregister <- client

	select {
	case _, ok := <-client.send:
		require.False(t, ok, "unregistering must close the client's send channel")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the send channel to close")
	}

	// A broadcast after unregistration must not panic or block.
	hub.BroadcastOccupancy(models.CapacitySnapshot{EventID: 1, CurrentRegistrations: 1, MaxCapacity: 5})
}
