package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/studio-scheduler/internal/audit"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

type historySource interface {
	ListForBooking(ctx context.Context, businessID, bookingID string) ([]audit.Event, error)
}

// AdminHistoryHandler lists the status trail of a booking.
type AdminHistoryHandler struct {
	events historySource
	logger *logging.Logger
}

func NewAdminHistoryHandler(events historySource, logger *logging.Logger) *AdminHistoryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHistoryHandler{events: events, logger: logger}
}

// GetHistory returns status changes oldest first.
// GET /admin/businesses/{businessID}/bookings/{bookingID}/history
func (h *AdminHistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	bookingID := chi.URLParam(r, "bookingID")
	list, err := h.events.ListForBooking(r.Context(), businessID, bookingID)
	if err != nil {
		h.logger.Error("failed to list booking history", "business_id", businessID, "booking_id", bookingID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []audit.Event{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"booking_id": bookingID,
		"events":     list,
	})
}
