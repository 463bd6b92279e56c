package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/studio-scheduler/internal/availability"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// BusinessSource loads the configuration of a business.
type BusinessSource interface {
	Get(ctx context.Context, businessID string) (*schedule.Business, error)
}

// Handler exposes public booking and admin reschedule endpoints.
type Handler struct {
	service    *Service
	businesses BusinessSource
	logger     *logging.Logger
}

// NewHandler creates a bookings HTTP handler.
func NewHandler(service *Service, businesses BusinessSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, businesses: businesses, logger: logger}
}

func (h *Handler) business(w http.ResponseWriter, r *http.Request) (*schedule.Business, bool) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" {
		http.Error(w, `{"error": "business_id required"}`, http.StatusBadRequest)
		return nil, false
	}
	b, err := h.businesses.Get(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to load business", "business_id", businessID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return b, true
}

// GetAvailability returns the day's slots for a service.
// GET /public/businesses/{businessID}/services/{serviceID}/availability?date=YYYY-MM-DD
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	offers, svc, err := h.service.Availability(r.Context(), b, chi.URLParam(r, "serviceID"), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	day, _ := schedule.ParseDate(date)
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"date":        schedule.FormatDate(day),
		"service_id":  svc.ID,
		"price_cents": schedule.PriceFor(svc, schedule.WeekdayKey(day)),
		"slots":       offers,
	})
}

// CreateBooking handles a public booking submission.
// POST /public/businesses/{businessID}/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, SourcePublic)
}

// CreateAdminBooking lets the operator book, with an optional phone.
// POST /admin/businesses/{businessID}/bookings
func (h *Handler) CreateAdminBooking(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, SourceAdmin)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, source string) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	req.Source = source

	result, err := h.service.Create(r.Context(), b, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, map[string]any{
		"booking":        result.Booking,
		"client_created": result.ClientCreated,
		"notifications":  result.Notifications.Summary(),
	})
}

// ListBookings returns the bookings of a day.
// GET /admin/businesses/{businessID}/bookings?date=YYYY-MM-DD
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	list, err := h.service.List(r.Context(), businessID, r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []*Booking{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"bookings": list,
		"count":    len(list),
	})
}

// GetRescheduleOptions returns the slots a booking can move to.
// GET /admin/businesses/{businessID}/bookings/{bookingID}/reschedule-options?date=YYYY-MM-DD
func (h *Handler) GetRescheduleOptions(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	offers, err := h.service.RescheduleOptions(r.Context(), b, chi.URLParam(r, "bookingID"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if offers == nil {
		offers = []availability.Offer{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"slots": offers})
}

// Reschedule moves a booking.
// POST /admin/businesses/{businessID}/bookings/{bookingID}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	result, err := h.service.Reschedule(r.Context(), b, chi.URLParam(r, "bookingID"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"booking":       result.Booking,
		"changed":       result.Changed,
		"notifications": result.Notifications.Summary(),
	})
}

// UpdateStatusRequest is the body of an operator status edit.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// UpdateStatus force-sets a booking status.
// PUT /admin/businesses/{businessID}/bookings/{bookingID}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	status, err := ParseStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		h.writeError(w, err)
		return
	}
	booking, err := h.service.SetStatus(r.Context(), b, chi.URLParam(r, "bookingID"), status, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, booking)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, h.logger, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, ErrBookingNotFound):
		http.Error(w, `{"error": "booking not found"}`, http.StatusNotFound)
	case errors.Is(err, schedule.ErrServiceNotFound):
		http.Error(w, `{"error": "service not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrServiceInactive):
		http.Error(w, `{"error": "service is not available for booking"}`, http.StatusConflict)
	case errors.Is(err, ErrSlotNotOffered):
		http.Error(w, `{"error": "slot not offered on this date"}`, http.StatusConflict)
	case errors.Is(err, ErrSlotFull):
		http.Error(w, `{"error": "slot is full"}`, http.StatusConflict)
	case errors.Is(err, ErrNotReschedulable):
		http.Error(w, `{"error": "booking cannot be rescheduled"}`, http.StatusConflict)
	default:
		h.logger.Error("booking request failed", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
