package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/studio-scheduler/internal/bookings"
	"github.com/wolfman30/studio-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/studio-scheduler/internal/http/middleware"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	Bookings        *bookings.Handler
	Schedule        *schedule.Handler
	WhatsAppWebhook *handlers.WhatsAppWebhookHandler
	Dashboard       *handlers.AdminDashboardHandler
	History         *handlers.AdminHistoryHandler

	AdminAuthSecret    string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
	PublicRateLimiter  *httpmiddleware.RateLimiter

	// Ready reports dependency health for /ready; nil means always ready.
	Ready func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", health)
	r.Get("/ready", ready(cfg.Ready))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.WhatsAppWebhook != nil {
		r.Post("/webhooks/whatsapp/{businessID}", cfg.WhatsAppWebhook.HandleInbound)
	}

	r.Route("/public/businesses/{businessID}", func(public chi.Router) {
		public.Use(httpmiddleware.RateLimit(cfg.PublicRateLimiter))
		if cfg.Schedule != nil {
			public.Get("/services", cfg.Schedule.ListServices)
		}
		if cfg.Bookings != nil {
			public.Get("/services/{serviceID}/availability", cfg.Bookings.GetAvailability)
			public.Post("/bookings", cfg.Bookings.CreateBooking)
		}
	})

	// Admin routes require an HS256 token scoped to the business.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin/businesses/{businessID}", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.Schedule != nil {
				admin.Get("/settings", cfg.Schedule.GetSettings)
				admin.Put("/settings", cfg.Schedule.UpdateSettings)
				admin.Get("/services", cfg.Schedule.ListServices)
			}
			if cfg.Bookings != nil {
				admin.Get("/bookings", cfg.Bookings.ListBookings)
				admin.Post("/bookings", cfg.Bookings.CreateAdminBooking)
				admin.Get("/bookings/{bookingID}/reschedule-options", cfg.Bookings.GetRescheduleOptions)
				admin.Post("/bookings/{bookingID}/reschedule", cfg.Bookings.Reschedule)
				admin.Put("/bookings/{bookingID}/status", cfg.Bookings.UpdateStatus)
			}
			if cfg.History != nil {
				admin.Get("/bookings/{bookingID}/history", cfg.History.GetHistory)
			}
			if cfg.Dashboard != nil {
				admin.Get("/dashboard", cfg.Dashboard.GetDashboard)
			}
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func ready(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
