package bookings

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wolfman30/studio-scheduler/internal/availability"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Occupies reports whether a booking in this status counts against capacity.
func (s Status) Occupies() bool {
	return s.Valid() && s != StatusCancelled
}

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.Valid() {
		return "", invalid("status", fmt.Sprintf("unknown status %q", value))
	}
	return s, nil
}

// Source records where a booking was created.
const (
	SourcePublic = "public"
	SourceAdmin  = "admin"
)

// Booking is a reserved slot. ServiceName and PriceCents are copied from the
// service at creation and never follow later service edits.
type Booking struct {
	ID          string
	BusinessID  string
	ClientID    *string
	ClientName  string
	ClientPhone string
	ServiceID   string
	ServiceName string
	PriceCents  int64
	Date        time.Time
	Slot        string
	Status      Status
	Source      string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Holding describes the slot this booking occupies.
func (b *Booking) Holding() availability.Holding {
	return availability.Holding{
		BookingID: b.ID,
		ServiceID: b.ServiceID,
		Date:      b.Date,
		Slot:      b.Slot,
		Active:    b.Status.Occupies(),
	}
}

type bookingJSON struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	ClientID    *string   `json:"client_id"`
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone,omitempty"`
	ServiceID   string    `json:"service_id"`
	ServiceName string    `json:"service_name"`
	PriceCents  int64     `json:"price_cents"`
	Date        string    `json:"date"`
	Slot        string    `json:"slot"`
	Status      Status    `json:"status"`
	Source      string    `json:"source,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MarshalJSON renders Date as YYYY-MM-DD.
func (b Booking) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookingJSON{
		ID:          b.ID,
		BusinessID:  b.BusinessID,
		ClientID:    b.ClientID,
		ClientName:  b.ClientName,
		ClientPhone: b.ClientPhone,
		ServiceID:   b.ServiceID,
		ServiceName: b.ServiceName,
		PriceCents:  b.PriceCents,
		Date:        schedule.FormatDate(b.Date),
		Slot:        b.Slot,
		Status:      b.Status,
		Source:      b.Source,
		Notes:       b.Notes,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	})
}

// NewBooking is the record handed to the writer.
type NewBooking struct {
	BusinessID  string
	ServiceID   string
	ServiceName string
	PriceCents  int64
	Date        time.Time
	Slot        string
	ClientName  string
	ClientPhone string
	Status      Status
	Source      string
	Notes       string
}
