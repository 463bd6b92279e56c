// Package availability computes which slots of a day can be offered for a
// service, given the business hours, the service overrides and the current
// occupancy.
package availability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/studio-scheduler/internal/observability/metrics"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

var resolverTracer = otel.Tracer("studio.internal.availability")

// OccupancyReader counts non-cancelled bookings per slot label for a day.
type OccupancyReader interface {
	CountBookings(ctx context.Context, businessID string, date time.Time, serviceID string) (map[string]int, error)
}

// Offer is a slot label annotated with what is left of it.
type Offer struct {
	Label string `json:"label"`
	// Remaining is nil when the service has unlimited capacity.
	Remaining *int `json:"remaining"`
	Available bool `json:"available"`
}

// Holding describes the slot an existing booking currently occupies.
type Holding struct {
	BookingID string
	ServiceID string
	Date      time.Time
	Slot      string
	// Active is false for cancelled bookings, which do not occupy anything.
	Active bool
}

// Resolver produces slot offers.
type Resolver struct {
	occupancy OccupancyReader
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewResolver creates a resolver reading occupancy from occ.
func NewResolver(occ OccupancyReader, m *metrics.BookingMetrics, logger *logging.Logger) *Resolver {
	if occ == nil {
		panic("availability: occupancy reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		occupancy: occ,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Candidates returns the sorted slot labels a service runs on date, before
// occupancy is considered. An explicit empty override closes the day even
// when the business is open.
func Candidates(business *schedule.Business, service *schedule.Service, date time.Time) []string {
	weekday := schedule.WeekdayKey(date)
	if labels, ok := service.ScheduleFor(weekday); ok {
		if len(labels) == 0 {
			return nil
		}
		return schedule.SortedLabels(labels)
	}
	return schedule.SortedLabels(business.Hours.SlotsFor(weekday))
}

// Resolve returns every candidate slot for the day in ascending order. Full
// slots stay in the result with Available false.
func (r *Resolver) Resolve(ctx context.Context, business *schedule.Business, service *schedule.Service, date time.Time) ([]Offer, error) {
	return r.resolve(ctx, "resolve", business, service, date, nil)
}

// ResolveExcluding resolves like Resolve but does not count the holding's
// own booking against its slot.
func (r *Resolver) ResolveExcluding(ctx context.Context, business *schedule.Business, service *schedule.Service, date time.Time, holding Holding) ([]Offer, error) {
	return r.resolve(ctx, "resolve_excluding", business, service, date, &holding)
}

func (r *Resolver) resolve(ctx context.Context, mode string, business *schedule.Business, service *schedule.Service, date time.Time, holding *Holding) ([]Offer, error) {
	if business == nil {
		return nil, ErrBusinessRequired
	}
	if service == nil {
		return nil, ErrServiceRequired
	}
	start := r.now()
	defer func() {
		r.metrics.ObserveAvailabilityLatency(mode, time.Since(start).Seconds())
	}()

	ctx, span := resolverTracer.Start(ctx, "availability.resolve", trace.WithAttributes(
		attribute.String("studio.business_id", business.ID),
		attribute.String("studio.service_id", service.ID),
		attribute.String("studio.date", schedule.FormatDate(date)),
		attribute.String("studio.mode", mode),
	))
	defer span.End()

	labels := Candidates(business, service, date)
	span.SetAttributes(attribute.Int("studio.candidates", len(labels)))
	if len(labels) == 0 {
		return []Offer{}, nil
	}

	counts, err := r.occupancy.CountBookings(ctx, business.ID, schedule.DateOf(date), service.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count bookings")
		return nil, fmt.Errorf("availability: count bookings: %w", err)
	}
	excluded := ""
	if holding != nil && holds(*holding, service, date) {
		excluded = holding.Slot
	}

	offers := make([]Offer, 0, len(labels))
	for _, label := range labels {
		occupied := counts[label]
		if label == excluded && occupied > 0 {
			occupied--
		}
		offers = append(offers, offerFor(label, service.Capacity, occupied))
	}
	return offers, nil
}

func holds(h Holding, service *schedule.Service, date time.Time) bool {
	return h.Active && h.ServiceID == service.ID && schedule.SameDate(h.Date, date)
}

func offerFor(label string, capacity, occupied int) Offer {
	if capacity <= 0 {
		return Offer{Label: label, Available: true}
	}
	remaining := capacity - occupied
	if remaining < 0 {
		remaining = 0
	}
	return Offer{Label: label, Remaining: &remaining, Available: remaining > 0}
}

// FindOffer returns the offer for label, if present.
func FindOffer(offers []Offer, label string) (Offer, bool) {
	for _, o := range offers {
		if o.Label == label {
			return o, true
		}
	}
	return Offer{}, false
}
