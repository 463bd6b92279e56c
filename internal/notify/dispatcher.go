package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/internal/messaging/templates"
	"github.com/wolfman30/studio-scheduler/internal/observability/metrics"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// Prefixes of the button ids the operator can press on a new-booking message.
const (
	ConfirmPaymentPrefix = "confirm_payment_"
	DenyPaymentPrefix    = "deny_payment_"
)

var (
	// ErrUnknownKind is returned for kinds without a template.
	ErrUnknownKind = errors.New("notify: unknown notification kind")
	// ErrAssetNotConfigured is returned when an asset kind is sent for a business without an asset card.
	ErrAssetNotConfigured = errors.New("notify: asset card not configured")
)

// ConfirmPaymentToken is the button id that confirms a booking.
func ConfirmPaymentToken(bookingID string) string { return ConfirmPaymentPrefix + bookingID }

// DenyPaymentToken is the button id that cancels a booking.
func DenyPaymentToken(bookingID string) string { return DenyPaymentPrefix + bookingID }

// Dispatcher renders notification templates and sends them over WhatsApp.
// Operator-facing kinds are also copied by e-mail when the business lists
// operator addresses.
type Dispatcher struct {
	messenger messaging.Messenger
	email     EmailSender
	renderer  *templates.Renderer
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher. email may be nil.
func NewDispatcher(messenger messaging.Messenger, email EmailSender, m *metrics.BookingMetrics, logger *logging.Logger) *Dispatcher {
	if messenger == nil {
		panic("notify: messenger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		messenger: messenger,
		email:     email,
		renderer:  templates.NewRenderer(),
		metrics:   m,
		logger:    logger,
	}
}

// Render returns the text for kind, preferring the business override.
func (d *Dispatcher) Render(business *schedule.Business, kind Kind, vars Vars) (string, error) {
	tmpl, ok := defaultTemplates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if override, ok := business.Template(string(kind)); ok {
		tmpl = override
	} else if kind.Asset() && business != nil && business.Asset.Caption != "" {
		tmpl = business.Asset.Caption
	}
	if vars.BusinessName == "" && business != nil {
		vars.BusinessName = business.Name
	}
	return d.renderer.Render(string(kind), tmpl, vars)
}

// SendTemplate renders kind and sends it to phone.
func (d *Dispatcher) SendTemplate(ctx context.Context, business *schedule.Business, kind Kind, phone string, vars Vars) (err error) {
	defer func() { d.metrics.ObserveNotification(string(kind), err) }()

	if business == nil {
		return errors.New("notify: business required")
	}
	if kind.Asset() && !business.Asset.Configured() {
		return ErrAssetNotConfigured
	}
	text, err := d.Render(business, kind, vars)
	if err != nil {
		return err
	}

	msg := messaging.Message{To: phone, Body: text}
	switch {
	case kind.Asset():
		msg.ImageURL = business.Asset.ImageURL
		msg.Caption = text
	case kind == KindNewBookingOperator && vars.BookingID != "":
		msg.Buttons = []messaging.Button{
			{ID: ConfirmPaymentToken(vars.BookingID), Label: confirmButtonLabel},
			{ID: DenyPaymentToken(vars.BookingID), Label: denyButtonLabel},
		}
	}

	if err := d.messenger.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send %s: %w", kind, err)
	}
	return nil
}

// EmailOperators copies an operator-facing notification to the business
// operator addresses. Individual failures are joined.
func (d *Dispatcher) EmailOperators(ctx context.Context, business *schedule.Business, kind Kind, vars Vars) error {
	if d.email == nil || business == nil || len(business.Notifications.OperatorEmails) == 0 {
		return nil
	}
	text, err := d.Render(business, kind, vars)
	if err != nil {
		return err
	}
	subject := strings.SplitN(text, "\n", 2)[0]
	var errs []error
	for _, addr := range business.Notifications.OperatorEmails {
		if err := d.email.Send(ctx, EmailMessage{To: addr, Subject: subject, Body: text}); err != nil {
			errs = append(errs, fmt.Errorf("notify: email %s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

func plainToHTML(body string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n", "<br>") + "</p>"
}
