// Package live pushes occupancy updates to subscribed clients over websockets.
// Coordinators watching an event see the counter move as registrations are
// confirmed and cancelled, without polling.
package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/campushq/event-registration/models"
)

// Message is the envelope every subscriber receives.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
}

const TypeOccupancyUpdated = "OCCUPANCY_UPDATED"

type Hub struct {
	register   chan *Client
	unregister chan *Client
	outbound   chan roomMessage
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

type roomMessage struct {
	room string
	data []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan roomMessage, 64),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// EventRoom names the room carrying one event's occupancy updates.
func EventRoom(eventID int) string {
	return fmt.Sprintf("event_%d", eventID)
}

// Run owns the room registry. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			h.logger.Debug("live client registered", slog.String("room", client.room))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, ok := clients[client]; ok {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("live client unregistered", slog.String("room", client.room))

		case msg := <-h.outbound:
			h.mu.RLock()
			for client := range h.rooms[msg.room] {
				client.trySend(msg.data)
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastOccupancy fans a capacity snapshot out to the event's room.
// It never blocks the caller: slow subscribers are skipped, a full outbound
// queue drops the update (the next snapshot supersedes it anyway).
func (h *Hub) BroadcastOccupancy(snap models.CapacitySnapshot) {
	room := EventRoom(snap.EventID)
	data, err := json.Marshal(Message{
		Type:    TypeOccupancyUpdated,
		Payload: snap,
		Room:    room,
	})
	if err != nil {
		h.logger.Error("failed to marshal occupancy update", slog.Any("error", err))
		return
	}
	select {
	case h.outbound <- roomMessage{room: room, data: data}:
	default:
		h.logger.Warn("live outbound queue full, dropping occupancy update", slog.String("room", room))
	}
}
