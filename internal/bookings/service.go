package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/studio-scheduler/internal/audit"
	"github.com/wolfman30/studio-scheduler/internal/availability"
	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/internal/notify"
	"github.com/wolfman30/studio-scheduler/internal/observability/metrics"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

var bookingsTracer = otel.Tracer("studio.internal.bookings")

// Store is the persistence the booking service needs.
type Store interface {
	availability.OccupancyReader
	InsertWithinCapacity(ctx context.Context, rec NewBooking, capacity int) (*Booking, bool, error)
	MoveWithinCapacity(ctx context.Context, businessID, bookingID string, newDate time.Time, newSlot string, newStatus Status, capacity int) (*Booking, error)
	SetStatus(ctx context.Context, businessID, bookingID string, to Status) (*Booking, error)
	Get(ctx context.Context, businessID, bookingID string) (*Booking, error)
	ListByDate(ctx context.Context, businessID string, date time.Time) ([]*Booking, error)
}

// AuditRecorder appends booking status events.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// ServiceDeps wires the booking service.
type ServiceDeps struct {
	Store      Store
	Services   schedule.ServiceSource
	Resolver   *availability.Resolver
	Dispatcher *notify.Dispatcher
	Fanout     *notify.Fanout
	Audit      AuditRecorder
	Metrics    *metrics.BookingMetrics
	Logger     *logging.Logger
}

// Service creates and reschedules bookings.
type Service struct {
	store       Store
	services    schedule.ServiceSource
	resolver    *availability.Resolver
	rescheduler *availability.Rescheduler
	dispatcher  *notify.Dispatcher
	fanout      *notify.Fanout
	audit       AuditRecorder
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
	now         func() time.Time
}

// NewService constructs a booking service. Dispatcher and Audit are optional.
func NewService(deps ServiceDeps) *Service {
	if deps.Store == nil {
		panic("bookings: store required")
	}
	if deps.Services == nil {
		panic("bookings: service source required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Resolver == nil {
		deps.Resolver = availability.NewResolver(deps.Store, deps.Metrics, deps.Logger)
	}
	if deps.Fanout == nil {
		deps.Fanout = notify.NewFanout(0, deps.Logger)
	}
	return &Service{
		store:       deps.Store,
		services:    deps.Services,
		resolver:    deps.Resolver,
		rescheduler: availability.NewRescheduler(deps.Resolver),
		dispatcher:  deps.Dispatcher,
		fanout:      deps.Fanout,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// CreateRequest is a booking submission.
type CreateRequest struct {
	ServiceID   string `json:"service_id"`
	Date        string `json:"date"`
	Slot        string `json:"slot"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	Notes       string `json:"notes,omitempty"`
	Source      string `json:"-"`
}

// CreateResult is the committed booking plus what happened to its notifications.
type CreateResult struct {
	Booking       *Booking
	ClientCreated bool
	Notifications notify.Report
}

func (s *Service) validateCreate(business *schedule.Business, req *CreateRequest) (time.Time, error) {
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	req.Slot = strings.TrimSpace(req.Slot)

	if req.ServiceID == "" {
		return time.Time{}, invalid("service_id", "is required")
	}
	date, err := s.validateDate(business, req.Date)
	if err != nil {
		return time.Time{}, err
	}
	if !schedule.ValidSlotLabel(req.Slot) {
		return time.Time{}, invalid("slot", "must be HH:MM")
	}
	if req.ClientName == "" {
		return time.Time{}, invalid("client_name", "is required")
	}
	if req.ClientPhone == "" && req.Source != SourceAdmin {
		return time.Time{}, invalid("client_phone", "is required")
	}
	if req.ClientPhone != "" {
		if n := len(messaging.Digits(req.ClientPhone)); n < 10 || n > 15 {
			return time.Time{}, invalid("client_phone", "must have 10 to 15 digits")
		}
	}
	return date, nil
}

func (s *Service) validateDate(business *schedule.Business, value string) (time.Time, error) {
	date, err := schedule.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, invalid("date", "must be YYYY-MM-DD")
	}
	if date.Before(business.Today(s.now())) {
		return time.Time{}, invalid("date", "must not be in the past")
	}
	return date, nil
}

func (s *Service) loadService(ctx context.Context, businessID, serviceID string, requireActive bool) (*schedule.Service, error) {
	svc, err := s.services.Get(ctx, businessID, serviceID)
	if err != nil {
		return nil, err
	}
	if requireActive && !svc.Active {
		return nil, ErrServiceInactive
	}
	return svc, nil
}

func (s *Service) checkOffer(offers []availability.Offer, slot, operation string) error {
	offer, ok := availability.FindOffer(offers, slot)
	if !ok {
		return ErrSlotNotOffered
	}
	if !offer.Available {
		s.metrics.ObserveSlotConflict(operation)
		return ErrSlotFull
	}
	return nil
}

// Create validates the request, checks the slot is offered and writes the
// booking as pending. Notifications run after the write and never fail it.
func (s *Service) Create(ctx context.Context, business *schedule.Business, req CreateRequest) (*CreateResult, error) {
	if business == nil {
		return nil, errors.New("bookings: business required")
	}
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("studio.business_id", business.ID),
		attribute.String("studio.service_id", req.ServiceID),
	)

	if req.Source == "" {
		req.Source = SourcePublic
	}
	date, err := s.validateCreate(business, &req)
	if err != nil {
		return nil, err
	}
	svc, err := s.loadService(ctx, business.ID, req.ServiceID, true)
	if err != nil {
		return nil, err
	}

	offers, err := s.resolver.Resolve(ctx, business, svc, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.checkOffer(offers, req.Slot, "insert"); err != nil {
		return nil, err
	}

	booking, clientCreated, err := s.store.InsertWithinCapacity(ctx, NewBooking{
		BusinessID:  business.ID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		PriceCents:  schedule.PriceFor(svc, schedule.WeekdayKey(date)),
		Date:        date,
		Slot:        req.Slot,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Status:      StatusPending,
		Source:      req.Source,
		Notes:       strings.TrimSpace(req.Notes),
	}, svc.Capacity)
	if err != nil {
		if errors.Is(err, ErrSlotFull) {
			s.metrics.ObserveSlotConflict("insert")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert booking")
		return nil, err
	}
	span.SetAttributes(attribute.String("studio.booking_id", booking.ID))
	s.metrics.ObserveBookingCreated(req.Source)
	s.logger.Info("booking created",
		"business_id", business.ID,
		"booking_id", booking.ID,
		"service_id", svc.ID,
		"date", schedule.FormatDate(date),
		"slot", booking.Slot,
		"client_created", clientCreated,
	)

	var report notify.Report
	if s.dispatcher != nil {
		jobs := s.dispatcher.BookingCreatedJobs(business, booking.ClientPhone, clientCreated, VarsFor(business, booking))
		report = s.fanout.Run(ctx, jobs)
	}
	s.record(ctx, audit.Event{
		BusinessID:    business.ID,
		BookingID:     booking.ID,
		ToStatus:      string(booking.Status),
		Actor:         actorFor(req.Source),
		Notifications: kindStrings(report),
	})

	return &CreateResult{Booking: booking, ClientCreated: clientCreated, Notifications: report}, nil
}

// RescheduleRequest moves a booking to a new date and slot.
type RescheduleRequest struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

// RescheduleResult is the moved booking plus notification outcomes.
type RescheduleResult struct {
	Booking       *Booking
	Previous      availability.Holding
	Changed       bool
	Notifications notify.Report
}

// Reschedule moves a booking using its original service. Moving onto the
// slot it already holds succeeds without notifications.
func (s *Service) Reschedule(ctx context.Context, business *schedule.Business, bookingID string, req RescheduleRequest) (*RescheduleResult, error) {
	if business == nil {
		return nil, errors.New("bookings: business required")
	}
	ctx, span := bookingsTracer.Start(ctx, "bookings.reschedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("studio.business_id", business.ID),
		attribute.String("studio.booking_id", bookingID),
	)

	date, err := s.validateDate(business, req.Date)
	if err != nil {
		return nil, err
	}
	req.Slot = strings.TrimSpace(req.Slot)
	if !schedule.ValidSlotLabel(req.Slot) {
		return nil, invalid("slot", "must be HH:MM")
	}

	current, err := s.store.Get(ctx, business.ID, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCancelled || current.Status == StatusCompleted {
		return nil, ErrNotReschedulable
	}
	previous := current.Holding()
	if schedule.SameDate(previous.Date, date) && previous.Slot == req.Slot {
		return &RescheduleResult{Booking: current, Previous: previous}, nil
	}

	svc, err := s.loadService(ctx, business.ID, current.ServiceID, false)
	if err != nil {
		return nil, err
	}
	offers, err := s.rescheduler.Resolve(ctx, business, svc, previous, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.checkOffer(offers, req.Slot, "move"); err != nil {
		return nil, err
	}

	moved, err := s.store.MoveWithinCapacity(ctx, business.ID, bookingID, date, req.Slot, "", svc.Capacity)
	if err != nil {
		if errors.Is(err, ErrSlotFull) {
			s.metrics.ObserveSlotConflict("move")
		} else {
			span.RecordError(err)
		}
		return nil, err
	}
	s.logger.Info("booking rescheduled",
		"business_id", business.ID,
		"booking_id", bookingID,
		"from", schedule.FormatDate(previous.Date)+" "+previous.Slot,
		"to", schedule.FormatDate(date)+" "+req.Slot,
	)

	var report notify.Report
	if s.dispatcher != nil {
		vars := VarsFor(business, moved)
		vars.OldDate = previous.Date
		vars.OldSlot = previous.Slot
		report = s.fanout.Run(ctx, s.dispatcher.RescheduledJobs(business, moved.ClientPhone, vars))
	}
	s.record(ctx, audit.Event{
		BusinessID:    business.ID,
		BookingID:     bookingID,
		FromStatus:    string(current.Status),
		ToStatus:      string(moved.Status),
		Actor:         audit.ActorOperator,
		Reason:        fmt.Sprintf("rescheduled from %s %s", schedule.FormatDate(previous.Date), previous.Slot),
		Notifications: kindStrings(report),
	})

	return &RescheduleResult{Booking: moved, Previous: previous, Changed: true, Notifications: report}, nil
}

// Availability returns the offers of an active service for a day.
func (s *Service) Availability(ctx context.Context, business *schedule.Business, serviceID, date string) ([]availability.Offer, *schedule.Service, error) {
	if business == nil {
		return nil, nil, errors.New("bookings: business required")
	}
	day, err := s.validateDate(business, date)
	if err != nil {
		return nil, nil, err
	}
	svc, err := s.loadService(ctx, business.ID, serviceID, true)
	if err != nil {
		return nil, nil, err
	}
	offers, err := s.resolver.Resolve(ctx, business, svc, day)
	if err != nil {
		return nil, nil, err
	}
	return offers, svc, nil
}

// RescheduleOptions returns the offers an existing booking can move to.
func (s *Service) RescheduleOptions(ctx context.Context, business *schedule.Business, bookingID, date string) ([]availability.Offer, error) {
	if business == nil {
		return nil, errors.New("bookings: business required")
	}
	day, err := s.validateDate(business, date)
	if err != nil {
		return nil, err
	}
	current, err := s.store.Get(ctx, business.ID, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCancelled || current.Status == StatusCompleted {
		return nil, ErrNotReschedulable
	}
	svc, err := s.loadService(ctx, business.ID, current.ServiceID, false)
	if err != nil {
		return nil, err
	}
	return s.rescheduler.Resolve(ctx, business, svc, current.Holding(), day)
}

// SetStatus lets an operator force any status, including completed.
func (s *Service) SetStatus(ctx context.Context, business *schedule.Business, bookingID string, status Status, reason string) (*Booking, error) {
	if business == nil {
		return nil, errors.New("bookings: business required")
	}
	if !status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	current, err := s.store.Get(ctx, business.ID, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}
	updated, err := s.store.SetStatus(ctx, business.ID, bookingID, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking status set by operator",
		"business_id", business.ID,
		"booking_id", bookingID,
		"from", current.Status,
		"to", status,
	)
	s.record(ctx, audit.Event{
		BusinessID: business.ID,
		BookingID:  bookingID,
		FromStatus: string(current.Status),
		ToStatus:   string(status),
		Actor:      audit.ActorOperator,
		Reason:     reason,
	})
	return updated, nil
}

// List returns the bookings of a day.
func (s *Service) List(ctx context.Context, businessID, date string) ([]*Booking, error) {
	day, err := schedule.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	return s.store.ListByDate(ctx, businessID, day)
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to record booking event", "booking_id", event.BookingID, "error", err)
	}
}

// VarsFor builds the template variables for a booking.
func VarsFor(business *schedule.Business, b *Booking) notify.Vars {
	return notify.Vars{
		BusinessName: business.Name,
		BookingID:    b.ID,
		ClientName:   b.ClientName,
		ClientPhone:  b.ClientPhone,
		ServiceName:  b.ServiceName,
		Date:         b.Date,
		Slot:         b.Slot,
		PriceCents:   b.PriceCents,
	}
}

func actorFor(source string) string {
	if source == SourceAdmin {
		return audit.ActorOperator
	}
	return audit.ActorPublic
}

func kindStrings(r notify.Report) []string {
	var out []string
	for _, k := range r.Kinds() {
		out = append(out, string(k))
	}
	return out
}
