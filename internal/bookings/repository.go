package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
)

// DB abstracts the pgx pool for testing.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists bookings and clients in Postgres. It is both the
// occupancy reader and the booking writer.
type Repository struct {
	db  DB
	now func() time.Time
}

// NewRepository creates a repository over a pgx pool or mock.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("bookings: db required")
	}
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const bookingColumns = `id, business_id, client_id, client_name, client_phone, service_id, service_name, price_cents, date, slot, status, source, notes, created_at, updated_at`

// CountBookings returns the non-cancelled bookings per slot for a day.
func (r *Repository) CountBookings(ctx context.Context, businessID string, date time.Time, serviceID string) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT slot, count(*)
		FROM bookings
		WHERE business_id = $1 AND date = $2 AND service_id = $3 AND status <> 'cancelled'
		GROUP BY slot`, businessID, schedule.DateOf(date), serviceID)
	if err != nil {
		return nil, fmt.Errorf("bookings: count: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slot string
		var n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, fmt.Errorf("bookings: scan count: %w", err)
		}
		counts[slot] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate counts: %w", err)
	}
	return counts, nil
}

func slotLockKey(businessID string, date time.Time, serviceID, slot string) string {
	return fmt.Sprintf("slot:%s:%s:%s:%s", businessID, schedule.FormatDate(date), serviceID, slot)
}

// lockAndCount serialises writers on one slot for the rest of tx and returns
// its occupancy, not counting excludeID.
func lockAndCount(ctx context.Context, tx pgx.Tx, businessID string, date time.Time, serviceID, slot, excludeID string) (int, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		slotLockKey(businessID, date, serviceID, slot)); err != nil {
		return 0, fmt.Errorf("lock slot: %w", err)
	}
	var n int
	err := tx.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings
		WHERE business_id = $1 AND date = $2 AND service_id = $3 AND slot = $4
		  AND status <> 'cancelled' AND id <> $5`,
		businessID, schedule.DateOf(date), serviceID, slot, excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count slot: %w", err)
	}
	return n, nil
}

// InsertWithinCapacity writes a booking unless the slot already holds
// capacity non-cancelled bookings; capacity 0 is unlimited. The client row
// is upserted by phone in the same transaction and clientCreated reports
// whether it was new.
func (r *Repository) InsertWithinCapacity(ctx context.Context, rec NewBooking, capacity int) (booking *Booking, clientCreated bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("bookings: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if capacity > 0 {
		n, err := lockAndCount(ctx, tx, rec.BusinessID, rec.Date, rec.ServiceID, rec.Slot, "")
		if err != nil {
			return nil, false, fmt.Errorf("bookings: insert: %w", err)
		}
		if n >= capacity {
			return nil, false, ErrSlotFull
		}
	}

	now := r.now()
	var clientID pgtype.Text
	if digits := messaging.Digits(rec.ClientPhone); digits != "" {
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO clients (id, business_id, name, phone, phone_digits, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			ON CONFLICT (business_id, phone_digits) DO UPDATE SET updated_at = EXCLUDED.updated_at
			RETURNING id, (xmax = 0)`,
			uuid.NewString(), rec.BusinessID, rec.ClientName, rec.ClientPhone, digits, now,
		).Scan(&id, &clientCreated)
		if err != nil {
			return nil, false, fmt.Errorf("bookings: upsert client: %w", err)
		}
		clientID = pgtype.Text{String: id, Valid: true}
	}

	status := rec.Status
	if status == "" {
		status = StatusPending
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, business_id, client_id, client_name, client_phone, service_id, service_name, price_cents, date, slot, status, source, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING `+bookingColumns,
		uuid.NewString(), rec.BusinessID, clientID, rec.ClientName, rec.ClientPhone,
		rec.ServiceID, rec.ServiceName, rec.PriceCents, schedule.DateOf(rec.Date), rec.Slot,
		string(status), rec.Source, rec.Notes, now,
	)
	booking, err = scanBooking(row)
	if err != nil {
		return nil, false, fmt.Errorf("bookings: insert: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("bookings: commit: %w", err)
	}
	return booking, clientCreated, nil
}

// MoveWithinCapacity changes the date and slot of a booking under the same
// slot lock as inserts. The booking itself is not counted, so moving onto
// the slot it already holds always fits. An empty newStatus keeps the
// current status.
func (r *Repository) MoveWithinCapacity(ctx context.Context, businessID, bookingID string, newDate time.Time, newSlot string, newStatus Status, capacity int) (booking *Booking, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var serviceID string
	err = tx.QueryRow(ctx, `
		SELECT service_id FROM bookings
		WHERE id = $1 AND business_id = $2 AND status <> 'cancelled'
		FOR UPDATE`, bookingID, businessID).Scan(&serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: load for move: %w", err)
	}

	if capacity > 0 {
		n, err := lockAndCount(ctx, tx, businessID, newDate, serviceID, newSlot, bookingID)
		if err != nil {
			return nil, fmt.Errorf("bookings: move: %w", err)
		}
		if n >= capacity {
			return nil, ErrSlotFull
		}
	}

	row := tx.QueryRow(ctx, `
		UPDATE bookings
		SET date = $1, slot = $2, status = COALESCE(NULLIF($3, ''), status), updated_at = $4
		WHERE id = $5 AND business_id = $6
		RETURNING `+bookingColumns,
		schedule.DateOf(newDate), newSlot, string(newStatus), r.now(), bookingID, businessID,
	)
	booking, err = scanBooking(row)
	if err != nil {
		return nil, fmt.Errorf("bookings: move: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit: %w", err)
	}
	return booking, nil
}

// TransitionStatus sets status to `to` only when the booking is currently in
// one of `from`. When nothing changed it returns the current booking with
// changed false.
func (r *Repository) TransitionStatus(ctx context.Context, businessID, bookingID string, from []Status, to Status) (*Booking, bool, error) {
	fromValues := make([]string, 0, len(from))
	for _, s := range from {
		fromValues = append(fromValues, string(s))
	}
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = $2
		WHERE id = $3 AND business_id = $4 AND status = ANY($5)
		RETURNING `+bookingColumns,
		string(to), r.now(), bookingID, businessID, fromValues,
	)
	booking, err := scanBooking(row)
	if err == nil {
		return booking, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("bookings: transition status: %w", err)
	}
	current, err := r.Get(ctx, businessID, bookingID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// SetStatus overwrites the status unconditionally.
func (r *Repository) SetStatus(ctx context.Context, businessID, bookingID string, to Status) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = $2
		WHERE id = $3 AND business_id = $4
		RETURNING `+bookingColumns,
		string(to), r.now(), bookingID, businessID,
	)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: set status: %w", err)
	}
	return booking, nil
}

// Get returns a booking scoped to the business.
func (r *Repository) Get(ctx context.Context, businessID, bookingID string) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1 AND business_id = $2`, bookingID, businessID)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	return booking, nil
}

// ListByDate returns the bookings of a day ordered by slot.
func (r *Repository) ListByDate(ctx context.Context, businessID string, date time.Time) ([]*Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE business_id = $1 AND date = $2
		ORDER BY slot ASC, created_at ASC`, businessID, schedule.DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("bookings: list by date: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate: %w", err)
	}
	return out, nil
}

// FindPendingByPhoneSuffix returns the earliest upcoming pending booking
// whose phone digits end with suffix, or nil when none matches.
func (r *Repository) FindPendingByPhoneSuffix(ctx context.Context, businessID, suffix string, today time.Time) (*Booking, error) {
	return r.findByPhoneSuffix(ctx, "find pending", `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE business_id = $1 AND status = 'pending' AND date >= $2
		  AND regexp_replace(client_phone, '[^0-9]', '', 'g') LIKE '%' || $3
		ORDER BY date ASC, slot ASC, created_at ASC
		LIMIT 1`, businessID, schedule.DateOf(today), suffix)
}

// FindConfirmedByPhoneSuffix returns the most recently created upcoming
// confirmed booking whose phone digits end with suffix, or nil.
func (r *Repository) FindConfirmedByPhoneSuffix(ctx context.Context, businessID, suffix string, today time.Time) (*Booking, error) {
	return r.findByPhoneSuffix(ctx, "find confirmed", `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE business_id = $1 AND status = 'confirmed' AND date >= $2
		  AND regexp_replace(client_phone, '[^0-9]', '', 'g') LIKE '%' || $3
		ORDER BY created_at DESC
		LIMIT 1`, businessID, schedule.DateOf(today), suffix)
}

func (r *Repository) findByPhoneSuffix(ctx context.Context, op, query, businessID string, today time.Time, suffix string) (*Booking, error) {
	if suffix == "" {
		return nil, nil
	}
	booking, err := scanBooking(r.db.QueryRow(ctx, query, businessID, today, suffix))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("bookings: %s: %w", op, err)
	}
	return booking, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b        Booking
		clientID pgtype.Text
		status   string
	)
	if err := row.Scan(
		&b.ID,
		&b.BusinessID,
		&clientID,
		&b.ClientName,
		&b.ClientPhone,
		&b.ServiceID,
		&b.ServiceName,
		&b.PriceCents,
		&b.Date,
		&b.Slot,
		&status,
		&b.Source,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if clientID.Valid {
		id := clientID.String
		b.ClientID = &id
	}
	b.Status = Status(status)
	b.Date = schedule.DateOf(b.Date)
	return &b, nil
}
