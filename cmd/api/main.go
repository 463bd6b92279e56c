package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/studio-scheduler/internal/api/router"
	"github.com/wolfman30/studio-scheduler/internal/app/bootstrap"
	"github.com/wolfman30/studio-scheduler/internal/bookings"
	appconfig "github.com/wolfman30/studio-scheduler/internal/config"
	"github.com/wolfman30/studio-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/studio-scheduler/internal/http/middleware"
	"github.com/wolfman30/studio-scheduler/internal/observability/metrics"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

const purgeInterval = time.Hour

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting studio-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := bootstrap.BuildPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for business settings", "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	metricsHandler, bookingMetrics, gatherer := setupMetrics()
	services := bootstrap.BuildServices(cfg, pg, redisClient, bookingMetrics, logger)

	routerCfg := &router.Config{
		Logger:   logger,
		Bookings: bookings.NewHandler(services.Bookings, services.Businesses, logger),
		Schedule: schedule.NewHandler(services.Businesses, services.Catalog, logger),
		WhatsAppWebhook: handlers.NewWhatsAppWebhookHandler(handlers.WhatsAppWebhookConfig{
			Businesses: services.Businesses,
			Machine:    services.Machine,
			Processed:  services.Processed,
			Token:      cfg.WhatsAppWebhookToken,
			Metrics:    bookingMetrics,
			Logger:     logger,
		}),
		Dashboard:          handlers.NewAdminDashboardHandler(pg.SQL, services.Businesses, gatherer, logger),
		History:            handlers.NewAdminHistoryHandler(services.Audit, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     metricsHandler,
		PublicRateLimiter: httpmiddleware.NewRateLimiter(redisClient, "ratelimit:public",
			cfg.PublicRateLimit, cfg.PublicRateLimitWindow, logger),
		Ready: func(ctx context.Context) error {
			if err := pg.Pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes are disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go runWebhookPurge(ctx, services.Processed, cfg.ProcessedWebhookRetention, purgeInterval, logger)

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a dedicated registry so tests and the dashboard read
// the same collectors that /metrics exports.
func setupMetrics() (http.Handler, *metrics.BookingMetrics, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewBookingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m, reg
}

type webhookPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// runWebhookPurge deletes dedupe rows older than retention every interval
// until ctx is cancelled.
func runWebhookPurge(ctx context.Context, store webhookPurger, retention, interval time.Duration, logger *logging.Logger) {
	if retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Warn("processed webhook purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("processed webhooks purged", "rows", n)
			}
		}
	}
}
