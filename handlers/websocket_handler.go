package handlers

import (
	"log/slog"
	"net/http"

	"github.com/campushq/event-registration/live"
	"github.com/campushq/event-registration/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the deployed frontend origin.
		return true
	},
}

type WebSocketHandler struct {
	hub          *live.Hub
	eventService *services.EventService
}

func NewWebSocketHandler(hub *live.Hub, eventService *services.EventService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, eventService: eventService}
}

// ServeWs upgrades GET /ws/events/{eventID} and subscribes the client to the
// event's occupancy feed.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.eventService.GetByID(r.Context(), eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error to the client.
		slog.Warn("failed to upgrade websocket connection", slog.Int("event_id", eventID), slog.Any("error", err))
		return
	}

	live.NewClient(h.hub, conn, live.EventRoom(eventID)).Start()
}
