// Package confirmation advances booking status from inbound WhatsApp
// replies: operator buttons and free-text client messages.
package confirmation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/studio-scheduler/internal/audit"
	"github.com/wolfman30/studio-scheduler/internal/bookings"
	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/internal/notify"
	"github.com/wolfman30/studio-scheduler/internal/observability/metrics"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

var confirmationTracer = otel.Tracer("studio.internal.confirmation")

// SuffixDigits is how many trailing phone digits identify a client.
// Two clients sharing these digits are indistinguishable to the text path.
const SuffixDigits = 8

// Tags reported back to the webhook caller.
const (
	TagIgnored              = "ignored"
	TagIgnoredUnknownButton = "ignored_unknown_button"
	TagIgnoredFromMe        = "ignored_from_me"
	TagBookingNotFound      = "booking_not_found"
	TagConfirmed            = "confirmed"
	TagConfirmedAndCardSent = "confirmed_and_card_sent"
	TagAlreadyConfirmed     = "already_confirmed"
	TagCancelled            = "cancelled"
	TagAlreadyCancelled     = "already_cancelled"
	TagNotPending           = "not_pending"
	TagCardResent           = "card_resent"
	TagCardResendFailed     = "card_resend_failed"
	TagNoMatchingBooking    = "no_matching_booking"
	TagErrorDB              = "error_db"
)

// Store is the slice of the booking repository the machine needs.
type Store interface {
	Get(ctx context.Context, businessID, bookingID string) (*bookings.Booking, error)
	TransitionStatus(ctx context.Context, businessID, bookingID string, from []bookings.Status, to bookings.Status) (*bookings.Booking, bool, error)
	FindPendingByPhoneSuffix(ctx context.Context, businessID, suffix string, today time.Time) (*bookings.Booking, error)
	FindConfirmedByPhoneSuffix(ctx context.Context, businessID, suffix string, today time.Time) (*bookings.Booking, error)
}

// AuditRecorder stores status changes.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Result is the outcome of one inbound event.
type Result struct {
	Tag           string
	BookingID     string
	Notifications notify.Report
}

// Machine maps inbound events to booking status transitions.
type Machine struct {
	store      Store
	dispatcher *notify.Dispatcher
	fanout     *notify.Fanout
	audit      AuditRecorder
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
	now        func() time.Time
}

// Deps wires a Machine.
type Deps struct {
	Store      Store
	Dispatcher *notify.Dispatcher
	Fanout     *notify.Fanout
	Audit      AuditRecorder
	Metrics    *metrics.BookingMetrics
	Logger     *logging.Logger
}

// NewMachine creates a confirmation state machine.
func NewMachine(deps Deps) *Machine {
	if deps.Store == nil {
		panic("confirmation: store required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Fanout == nil {
		deps.Fanout = notify.NewFanout(0, deps.Logger)
	}
	return &Machine{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		fanout:     deps.Fanout,
		audit:      deps.Audit,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// Handle applies one inbound event. It never returns an error: failures are
// logged and reported through the result tag.
func (m *Machine) Handle(ctx context.Context, business *schedule.Business, event Event) (result Result) {
	ctx, span := confirmationTracer.Start(ctx, "confirmation.handle")
	defer span.End()
	defer func() {
		span.SetAttributes(
			attribute.String("studio.inbound_kind", string(event.Kind)),
			attribute.String("studio.inbound_tag", result.Tag),
		)
		m.metrics.ObserveInbound(string(event.Kind), result.Tag)
	}()

	if business == nil {
		return Result{Tag: TagIgnored}
	}
	if event.FromMe {
		return Result{Tag: TagIgnoredFromMe}
	}

	switch event.Kind {
	case EventButton:
		return m.handleButton(ctx, business, event)
	case EventText:
		return m.handleText(ctx, business, event)
	default:
		return Result{Tag: TagIgnored}
	}
}

func (m *Machine) handleButton(ctx context.Context, business *schedule.Business, event Event) Result {
	action, bookingID, ok := ParseActionToken(event.ButtonID)
	if !ok {
		m.logger.Info("ignoring unknown button reply", "business_id", business.ID, "button_id", event.ButtonID)
		return Result{Tag: TagIgnoredUnknownButton}
	}

	switch action {
	case ActionConfirm:
		return m.confirm(ctx, business, bookingID, audit.ActorWhatsAppButton)
	default:
		return m.deny(ctx, business, bookingID)
	}
}

func (m *Machine) confirm(ctx context.Context, business *schedule.Business, bookingID, actor string) Result {
	booking, changed, err := m.store.TransitionStatus(ctx, business.ID, bookingID,
		[]bookings.Status{bookings.StatusPending}, bookings.StatusConfirmed)
	if err != nil {
		return m.storeError(business, bookingID, "confirm", err)
	}
	result := Result{BookingID: booking.ID}
	if !changed {
		if booking.Status == bookings.StatusConfirmed {
			result.Tag = TagAlreadyConfirmed
		} else {
			result.Tag = TagNotPending
		}
		return result
	}

	m.logger.Info("booking confirmed",
		"business_id", business.ID,
		"booking_id", booking.ID,
		"actor", actor,
	)
	result.Notifications = m.sendAsset(ctx, business, notify.KindAccessCard, booking)
	m.record(ctx, audit.Event{
		BusinessID:    business.ID,
		BookingID:     booking.ID,
		FromStatus:    string(bookings.StatusPending),
		ToStatus:      string(bookings.StatusConfirmed),
		Actor:         actor,
		Notifications: kindStrings(result.Notifications),
	})
	if result.Notifications.Sent(notify.KindAccessCard) {
		result.Tag = TagConfirmedAndCardSent
	} else {
		result.Tag = TagConfirmed
	}
	return result
}

func (m *Machine) deny(ctx context.Context, business *schedule.Business, bookingID string) Result {
	booking, changed, err := m.store.TransitionStatus(ctx, business.ID, bookingID,
		[]bookings.Status{bookings.StatusPending}, bookings.StatusCancelled)
	if err != nil {
		return m.storeError(business, bookingID, "deny", err)
	}
	result := Result{BookingID: booking.ID}
	if !changed {
		if booking.Status == bookings.StatusCancelled {
			result.Tag = TagAlreadyCancelled
		} else {
			result.Tag = TagNotPending
		}
		return result
	}

	m.logger.Info("booking cancelled by operator button", "business_id", business.ID, "booking_id", booking.ID)
	m.record(ctx, audit.Event{
		BusinessID: business.ID,
		BookingID:  booking.ID,
		FromStatus: string(bookings.StatusPending),
		ToStatus:   string(bookings.StatusCancelled),
		Actor:      audit.ActorWhatsAppButton,
	})
	result.Tag = TagCancelled
	return result
}

func (m *Machine) handleText(ctx context.Context, business *schedule.Business, event Event) Result {
	confirming := MatchesConfirmation(event.Text)
	asking := MatchesAssetRequest(event.Text)
	if !confirming && !asking {
		return Result{Tag: TagIgnored}
	}

	digits := messaging.Digits(event.Phone)
	if len(digits) < SuffixDigits {
		m.logger.Info("ignoring text reply without usable phone", "business_id", business.ID)
		return Result{Tag: TagNoMatchingBooking}
	}
	suffix := messaging.PhoneSuffix(digits, SuffixDigits)
	today := business.Today(m.now())

	if confirming {
		pending, err := m.store.FindPendingByPhoneSuffix(ctx, business.ID, suffix, today)
		if err != nil {
			return m.storeError(business, "", "find pending", err)
		}
		if pending != nil {
			return m.confirm(ctx, business, pending.ID, audit.ActorWhatsAppText)
		}
	}
	if !asking {
		return Result{Tag: TagNoMatchingBooking}
	}

	confirmed, err := m.store.FindConfirmedByPhoneSuffix(ctx, business.ID, suffix, today)
	if err != nil {
		return m.storeError(business, "", "find confirmed", err)
	}
	if confirmed == nil {
		return Result{Tag: TagNoMatchingBooking}
	}
	if !business.Asset.Configured() {
		return Result{Tag: TagIgnored, BookingID: confirmed.ID}
	}

	report := m.sendAsset(ctx, business, notify.KindAssetResend, confirmed)
	result := Result{BookingID: confirmed.ID, Notifications: report}
	if report.Sent(notify.KindAssetResend) {
		result.Tag = TagCardResent
	} else {
		result.Tag = TagCardResendFailed
	}
	return result
}

// sendAsset sends the business access card to the booking's phone. Nothing
// is sent when no card is configured.
func (m *Machine) sendAsset(ctx context.Context, business *schedule.Business, kind notify.Kind, booking *bookings.Booking) notify.Report {
	if m.dispatcher == nil {
		return notify.Report{}
	}
	jobs := m.dispatcher.AssetJobs(business, kind, booking.ClientPhone, bookings.VarsFor(business, booking))
	return m.fanout.Run(ctx, jobs)
}

func (m *Machine) storeError(business *schedule.Business, bookingID, op string, err error) Result {
	if errors.Is(err, bookings.ErrBookingNotFound) {
		m.logger.Info("inbound event for unknown booking", "business_id", business.ID, "booking_id", bookingID)
		return Result{Tag: TagBookingNotFound, BookingID: bookingID}
	}
	m.logger.Error("confirmation store failure",
		"business_id", business.ID,
		"booking_id", bookingID,
		"op", op,
		"error", err,
	)
	return Result{Tag: TagErrorDB, BookingID: bookingID}
}

func (m *Machine) record(ctx context.Context, event audit.Event) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Record(context.WithoutCancel(ctx), event); err != nil {
		m.logger.Warn("failed to record booking event", "booking_id", event.BookingID, "error", err)
	}
}

func kindStrings(r notify.Report) []string {
	var out []string
	for _, k := range r.Kinds() {
		out = append(out, string(k))
	}
	return out
}
