package handlers

import (
	"net/http"

	"github.com/campushq/event-registration/models"
	"github.com/campushq/event-registration/services"
)

const maxProofUploadBytes = 5 << 20 // 5MB

type RegistrationHandler struct {
	registrationService *services.RegistrationService
	verificationService *services.VerificationService
}

func NewRegistrationHandler(
	registrationService *services.RegistrationService,
	verificationService *services.VerificationService,
) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		verificationService: verificationService,
	}
}

// Register handles POST /events/{eventID}/registrations.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, _, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var req services.RegistrationRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.Register(r.Context(), eventID, currentUserID, req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Cancel handles POST /registrations/{registrationID}/cancel.
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, _, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.registrationService.Cancel(r.Context(), registrationID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "registration cancelled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMine handles GET /registrations/mine.
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	currentUserID, _, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	regs, err := h.registrationService.ListForParticipant(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListForEvent handles GET /events/{eventID}/registrations (coordinator/admin).
func (h *RegistrationHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
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

	var statusFilter *models.RegistrationStatus
	if status := r.URL.Query().Get("status"); status != "" {
		s := models.RegistrationStatus(status)
		statusFilter = &s
	}

	regs, err := h.registrationService.ListForEvent(r.Context(), eventID, currentUserID, role, statusFilter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AttachProof handles POST /registrations/{registrationID}/proof. The body is
// the raw artifact; the response carries the stored opaque reference.
func (h *RegistrationHandler) AttachProof(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, _, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProofUploadBytes)
	contentType := r.Header.Get("Content-Type")

	reg, err := h.registrationService.AttachPaymentProof(r.Context(), registrationID, currentUserID, contentType, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Approve handles POST /registrations/{registrationID}/approve (coordinator/admin).
func (h *RegistrationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, role, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	reg, err := h.verificationService.Approve(r.Context(), registrationID, currentUserID, role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Reject handles POST /registrations/{registrationID}/reject (coordinator/admin).
func (h *RegistrationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, role, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	// The reason is optional; an empty body falls back to the default.
	var input struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	reg, err := h.verificationService.Reject(r.Context(), registrationID, currentUserID, role, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
