package handlers

import (
	"net/http"

	"github.com/campushq/event-registration/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Summaries handles GET /dashboard (coordinator/admin).
func (h *DashboardHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	currentUserID, role, err := callerFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	summaries, err := h.dashboardService.Summaries(r.Context(), currentUserID, role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": summaries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
