package bootstrap

import (
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/studio-scheduler/internal/audit"
	"github.com/wolfman30/studio-scheduler/internal/availability"
	"github.com/wolfman30/studio-scheduler/internal/bookings"
	appconfig "github.com/wolfman30/studio-scheduler/internal/config"
	"github.com/wolfman30/studio-scheduler/internal/confirmation"
	"github.com/wolfman30/studio-scheduler/internal/events"
	"github.com/wolfman30/studio-scheduler/internal/notify"
	"github.com/wolfman30/studio-scheduler/internal/observability/metrics"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// Services is the wired application graph shared by the HTTP handlers.
type Services struct {
	Businesses *schedule.BusinessStore
	Catalog    *schedule.ServiceRepository
	Bookings   *bookings.Service
	Machine    *confirmation.Machine
	Processed  *events.ProcessedStore
	Audit      *audit.Log
	Provider   string
}

// BuildServices wires repositories, the resolver, notifications and the
// confirmation machine.
func BuildServices(cfg *appconfig.Config, pg *Postgres, redisClient *redis.Client, m *metrics.BookingMetrics, logger *logging.Logger) *Services {
	if logger == nil {
		logger = logging.Default()
	}

	bookingRepo := bookings.NewRepository(pg.Pool)
	catalog := schedule.NewServiceRepository(pg.Pool)
	cached := schedule.NewCachedServices(catalog, cfg.ServiceCacheSize, cfg.ServiceCacheTTL)
	auditLog := audit.NewLog(pg.SQL)

	messenger, provider := BuildMessenger(cfg, logger)
	dispatcher := notify.NewDispatcher(messenger, BuildEmailSender(cfg, logger), m, logger)
	fanout := notify.NewFanout(cfg.NotifyTimeout, logger)

	resolver := availability.NewResolver(bookingRepo, m, logger)
	service := bookings.NewService(bookings.ServiceDeps{
		Store:      bookingRepo,
		Services:   cached,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Fanout:     fanout,
		Audit:      auditLog,
		Metrics:    m,
		Logger:     logger,
	})
	machine := confirmation.NewMachine(confirmation.Deps{
		Store:      bookingRepo,
		Dispatcher: dispatcher,
		Fanout:     fanout,
		Audit:      auditLog,
		Metrics:    m,
		Logger:     logger,
	})

	logger.Info("services wired", "messaging_provider", provider)
	return &Services{
		Businesses: schedule.NewBusinessStore(redisClient),
		Catalog:    catalog,
		Bookings:   service,
		Machine:    machine,
		Processed:  events.NewProcessedStore(pg.Pool),
		Audit:      auditLog,
		Provider:   provider,
	}
}
