package schedule

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

type businessStore interface {
	Get(ctx context.Context, businessID string) (*Business, error)
	Save(ctx context.Context, b *Business) error
}

type serviceLister interface {
	ListActive(ctx context.Context, businessID string) ([]*Service, error)
}

// Handler provides HTTP endpoints for business settings and the service menu.
type Handler struct {
	store    businessStore
	services serviceLister
	logger   *logging.Logger
}

// NewHandler creates a new business settings HTTP handler.
func NewHandler(store businessStore, services serviceLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:    store,
		services: services,
		logger:   logger,
	}
}

// GetSettings returns the business configuration.
// GET /admin/businesses/{businessID}/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" {
		http.Error(w, `{"error": "business_id required"}`, http.StatusBadRequest)
		return
	}

	b, err := h.store.Get(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to get business settings", "business_id", businessID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, b)
}

// UpdateSettingsRequest is the request body for updating business settings.
type UpdateSettingsRequest struct {
	Name          string             `json:"name,omitempty"`
	Timezone      string             `json:"timezone,omitempty"`
	Hours         *WeeklySlots       `json:"hours,omitempty"`
	Notifications *NotificationPrefs `json:"notifications,omitempty"`
	Asset         *AssetCard         `json:"asset,omitempty"`
	Templates     map[string]string  `json:"templates,omitempty"`
}

// UpdateSettings applies a partial update to the business configuration.
// PUT /admin/businesses/{businessID}/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" {
		http.Error(w, `{"error": "business_id required"}`, http.StatusBadRequest)
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	b, err := h.store.Get(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to get business settings", "business_id", businessID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		b.Name = req.Name
	}
	if req.Timezone != "" {
		b.Timezone = req.Timezone
	}
	if req.Hours != nil {
		if err := req.Hours.Validate(); err != nil {
			writeJSON(w, h.logger, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		b.Hours = *req.Hours
	}
	if req.Notifications != nil {
		b.Notifications = *req.Notifications
	}
	if req.Asset != nil {
		b.Asset = *req.Asset
	}
	if req.Templates != nil {
		b.Templates = req.Templates
	}

	if err := h.store.Save(r.Context(), b); err != nil {
		h.logger.Error("failed to save business settings", "business_id", businessID, "error", err)
		http.Error(w, `{"error": "failed to save settings"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("business settings updated", "business_id", businessID, "legacy_hours", b.Hours.IsLegacy())
	writeJSON(w, h.logger, http.StatusOK, b)
}

// ListServices returns the active service menu.
// GET /public/businesses/{businessID}/services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" || h.services == nil {
		http.Error(w, `{"error": "business_id required"}`, http.StatusBadRequest)
		return
	}
	services, err := h.services.ListActive(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to list services", "business_id", businessID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if services == nil {
		services = []*Service{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"services": services,
		"count":    len(services),
	})
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
