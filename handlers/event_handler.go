package handlers

import (
	"net/http"
	"time"

	"github.com/campushq/event-registration/middleware"
	"github.com/campushq/event-registration/models"
	"github.com/campushq/event-registration/repositories"
	"github.com/campushq/event-registration/services"
)

const maxImageUploadBytes = 5 << 20 // 5MB

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type eventInput struct {
	Title                 string               `json:"title"`
	Description           *string              `json:"description"`
	Date                  time.Time            `json:"date"`
	Venue                 *string              `json:"venue"`
	Category              models.EventCategory `json:"category"`
	TeamSizeMin           int                  `json:"team_size_min"`
	TeamSizeMax           int                  `json:"team_size_max"`
	EntryFee              int64                `json:"entry_fee"`
	UPIID                 *string              `json:"upi_id"`
	UPIName               *string              `json:"upi_name"`
	AcceptsOnlinePayment  bool                 `json:"accepts_online_payment"`
	AcceptsOfflinePayment bool                 `json:"accepts_offline_payment"`
	CustomFields          []models.CustomField `json:"custom_fields"`
	MaxCapacity           int                  `json:"max_capacity"`
}

func (in eventInput) toModel() *models.Event {
	return &models.Event{
		Title:                 in.Title,
		Description:           in.Description,
		Date:                  in.Date,
		Venue:                 in.Venue,
		Category:              in.Category,
		TeamSizeMin:           in.TeamSizeMin,
		TeamSizeMax:           in.TeamSizeMax,
		EntryFee:              in.EntryFee,
		UPIID:                 in.UPIID,
		UPIName:               in.UPIName,
		AcceptsOnlinePayment:  in.AcceptsOnlinePayment,
		AcceptsOfflinePayment: in.AcceptsOfflinePayment,
		CustomFields:          in.CustomFields,
		MaxCapacity:           in.MaxCapacity,
	}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input eventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.Create(r.Context(), currentUserID, input.toModel())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.GetByID(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListEventsFilter{}
	if category := r.URL.Query().Get("category"); category != "" {
		c := models.EventCategory(category)
		filter.Category = &c
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := models.EventStatus(status)
		filter.Status = &s
	}

	events, err := h.eventService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, role, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input eventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.Update(r.Context(), eventID, currentUserID, role, input.toModel())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, role, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Status models.EventStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.UpdateStatus(r.Context(), eventID, currentUserID, role, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, role, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.eventService.Delete(r.Context(), eventID, currentUserID, role); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, role, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadBytes)
	contentType := r.Header.Get("Content-Type")

	event, err := h.eventService.UploadImage(r.Context(), eventID, currentUserID, role, contentType, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func callerFromContext(r *http.Request) (int, models.UserRole, error) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return 0, "", err
	}
	role, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		return 0, "", err
	}
	return userID, role, nil
}
