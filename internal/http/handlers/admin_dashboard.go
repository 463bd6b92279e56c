package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/studio-scheduler/internal/observability/metrics"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

const (
	defaultDashboardDays = 7
	maxDashboardDays     = 62
)

// BusinessSource loads business settings.
type BusinessSource interface {
	Get(ctx context.Context, businessID string) (*schedule.Business, error)
}

// AdminDashboardHandler serves the operator overview.
type AdminDashboardHandler struct {
	db         *sql.DB
	businesses BusinessSource
	gatherer   prometheus.Gatherer
	logger     *logging.Logger
	now        func() time.Time
}

// NewAdminDashboardHandler creates a new admin dashboard handler. A nil
// gatherer leaves the inbound section empty.
func NewAdminDashboardHandler(db *sql.DB, businesses BusinessSource, gatherer prometheus.Gatherer, logger *logging.Logger) *AdminDashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDashboardHandler{
		db:         db,
		businesses: businesses,
		gatherer:   gatherer,
		logger:     logger,
		now:        time.Now,
	}
}

// DashboardResponse is the operator overview of a window of days.
type DashboardResponse struct {
	BusinessID     string          `json:"business_id"`
	From           string          `json:"from"`
	Days           int             `json:"days"`
	Daily          []DayCounts     `json:"daily"`
	Totals         StatusCounts    `json:"totals"`
	RevenueCents   int64           `json:"revenue_cents"`
	Inbound        map[string]int  `json:"inbound"`
	PendingActions []PendingAction `json:"pending_actions"`
}

// StatusCounts counts bookings per status.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func (c *StatusCounts) add(status string, n int) {
	switch status {
	case "pending":
		c.Pending += n
	case "confirmed":
		c.Confirmed += n
	case "completed":
		c.Completed += n
	case "cancelled":
		c.Cancelled += n
	}
}

// DayCounts is one row of the daily breakdown.
type DayCounts struct {
	Date string `json:"date"`
	StatusCounts
}

// PendingAction represents an action requiring operator attention.
type PendingAction struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// GetDashboard returns booking counts for the window starting today.
// GET /admin/businesses/{businessID}/dashboard?days=7
func (h *AdminDashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" {
		http.Error(w, `{"error": "business_id required"}`, http.StatusBadRequest)
		return
	}
	days := defaultDashboardDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDashboardDays {
			http.Error(w, `{"error": "days must be between 1 and 62"}`, http.StatusBadRequest)
			return
		}
		days = n
	}

	business, err := h.businesses.Get(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to load business", "business_id", businessID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	from := business.Today(h.now())
	to := from.AddDate(0, 0, days)

	resp := DashboardResponse{
		BusinessID:     businessID,
		From:           schedule.FormatDate(from),
		Days:           days,
		Daily:          []DayCounts{},
		Inbound:        h.inboundTotals(),
		PendingActions: []PendingAction{},
	}

	if err := h.loadDaily(r.Context(), businessID, from, to, &resp); err != nil {
		h.logger.Error("failed to load dashboard counts", "business_id", businessID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if err := h.db.QueryRowContext(r.Context(),
		`SELECT COALESCE(SUM(price_cents), 0) FROM bookings
		 WHERE business_id = $1 AND date >= $2 AND date < $3 AND status IN ('confirmed', 'completed')`,
		businessID, from, to,
	).Scan(&resp.RevenueCents); err != nil {
		h.logger.Warn("failed to load dashboard revenue", "business_id", businessID, "error", err)
	}

	if resp.Totals.Pending > 0 {
		resp.PendingActions = append(resp.PendingActions, PendingAction{
			Type:        "confirmation",
			Priority:    "high",
			Description: "Bookings waiting for payment confirmation",
			Count:       resp.Totals.Pending,
		})
	}
	if !business.Notifications.Enabled {
		resp.PendingActions = append(resp.PendingActions, PendingAction{
			Type:        "notifications",
			Priority:    "medium",
			Description: "WhatsApp notifications are disabled",
			Count:       1,
		})
	}
	if !business.Asset.Configured() {
		resp.PendingActions = append(resp.PendingActions, PendingAction{
			Type:        "asset",
			Priority:    "low",
			Description: "Access card is not configured",
			Count:       1,
		})
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *AdminDashboardHandler) loadDaily(ctx context.Context, businessID string, from, to time.Time, resp *DashboardResponse) error {
	rows, err := h.db.QueryContext(ctx,
		`SELECT date, status, COUNT(*) FROM bookings
		 WHERE business_id = $1 AND date >= $2 AND date < $3
		 GROUP BY date, status
		 ORDER BY date ASC`, businessID, from, to)
	if err != nil {
		return err
	}
	defer rows.Close()

	index := map[string]int{}
	for rows.Next() {
		var (
			date   time.Time
			status string
			count  int
		)
		if err := rows.Scan(&date, &status, &count); err != nil {
			return err
		}
		key := schedule.FormatDate(date)
		i, ok := index[key]
		if !ok {
			resp.Daily = append(resp.Daily, DayCounts{Date: key})
			i = len(resp.Daily) - 1
			index[key] = i
		}
		resp.Daily[i].add(status, count)
		resp.Totals.add(status, count)
	}
	return rows.Err()
}

// inboundTotals sums the inbound event counter by tag since process start.
func (h *AdminDashboardHandler) inboundTotals() map[string]int {
	out := map[string]int{}
	if h.gatherer == nil {
		return out
	}
	families, err := h.gatherer.Gather()
	if err != nil {
		h.logger.Warn("failed to gather metrics", "error", err)
		return out
	}
	for _, family := range families {
		if family.GetName() != metrics.InboundEventName {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "tag" {
					out[label.GetValue()] += int(m.GetCounter().GetValue())
				}
			}
		}
	}
	return out
}
