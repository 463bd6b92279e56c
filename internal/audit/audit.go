// Package audit keeps an append-only trail of booking status changes.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Actors that change booking status.
const (
	ActorPublic         = "public"
	ActorOperator       = "operator"
	ActorWhatsAppButton = "whatsapp:button"
	ActorWhatsAppText   = "whatsapp:text"
)

// Event is one status change of a booking. A reschedule is recorded with
// the same from and to status.
type Event struct {
	ID            string    `json:"id"`
	BusinessID    string    `json:"business_id"`
	BookingID     string    `json:"booking_id"`
	FromStatus    string    `json:"from_status,omitempty"`
	ToStatus      string    `json:"to_status"`
	Actor         string    `json:"actor"`
	Reason        string    `json:"reason,omitempty"`
	Notifications []string  `json:"notifications,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Log writes audit events through database/sql.
type Log struct {
	db *sql.DB
}

// NewLog creates an audit log.
func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

// Record appends an event.
func (l *Log) Record(ctx context.Context, event Event) error {
	if l == nil || l.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	notifications := event.Notifications
	if notifications == nil {
		notifications = []string{}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO booking_status_events (
			id, business_id, booking_id, from_status, to_status,
			actor, reason, notifications, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID,
		event.BusinessID,
		event.BookingID,
		nullString(event.FromStatus),
		event.ToStatus,
		event.Actor,
		nullString(event.Reason),
		pq.Array(notifications),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: record event: %w", err)
	}
	return nil
}

// ListForBooking returns the trail of a booking, oldest first.
func (l *Log) ListForBooking(ctx context.Context, businessID, bookingID string) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, business_id, booking_id, from_status, to_status,
			   actor, reason, notifications, created_at
		FROM booking_status_events
		WHERE business_id = $1 AND booking_id = $2
		ORDER BY created_at ASC`, businessID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var from, reason sql.NullString
		if err := rows.Scan(
			&e.ID, &e.BusinessID, &e.BookingID, &from, &e.ToStatus,
			&e.Actor, &reason, pq.Array(&e.Notifications), &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.FromStatus = from.String
		e.Reason = reason.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
