package availability

import (
	"context"
	"time"

	"github.com/wolfman30/studio-scheduler/internal/schedule"
)

// Rescheduler resolves the slots an existing booking can move to.
type Rescheduler struct {
	resolver *Resolver
}

// NewRescheduler reuses resolver for reschedule lookups.
func NewRescheduler(resolver *Resolver) *Rescheduler {
	if resolver == nil {
		panic("availability: resolver required")
	}
	return &Rescheduler{resolver: resolver}
}

// Resolve returns offers for newDate using the booking's own service. On the
// booking's current date its own slot is not counted against it, so moving to
// the slot it already holds always succeeds.
func (r *Rescheduler) Resolve(ctx context.Context, business *schedule.Business, service *schedule.Service, holding Holding, newDate time.Time) ([]Offer, error) {
	if holding.Active && schedule.SameDate(holding.Date, newDate) {
		return r.resolver.ResolveExcluding(ctx, business, service, newDate, holding)
	}
	return r.resolver.Resolve(ctx, business, service, newDate)
}
