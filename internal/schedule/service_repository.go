package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ServiceSource loads a single service definition.
type ServiceSource interface {
	Get(ctx context.Context, businessID, serviceID string) (*Service, error)
}

// ServiceRepository reads service definitions from Postgres.
type ServiceRepository struct {
	db DB
}

// NewServiceRepository creates a repository over a pgx pool or mock.
func NewServiceRepository(db DB) *ServiceRepository {
	if db == nil {
		panic("schedule: db required")
	}
	return &ServiceRepository{db: db}
}

const serviceColumns = `id, business_id, name, base_price_cents, duration_minutes, capacity, schedule, prices_by_weekday, active, created_at, updated_at`

// Get fetches a service scoped to the business.
func (r *ServiceRepository) Get(ctx context.Context, businessID, serviceID string) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1 AND business_id = $2`, serviceID, businessID)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("schedule: get service: %w", err)
	}
	return svc, nil
}

// ListActive returns the services still open for new bookings, by name.
func (r *ServiceRepository) ListActive(ctx context.Context, businessID string) ([]*Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE business_id = $1 AND active
		ORDER BY name ASC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("schedule: list services: %w", err)
	}
	defer rows.Close()

	var out []*Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("schedule: scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: iterate services: %w", err)
	}
	return out, nil
}

func scanService(row pgx.Row) (*Service, error) {
	var (
		svc      Service
		schedRaw []byte
		priceRaw []byte
	)
	if err := row.Scan(
		&svc.ID,
		&svc.BusinessID,
		&svc.Name,
		&svc.BasePriceCents,
		&svc.DurationMinutes,
		&svc.Capacity,
		&schedRaw,
		&priceRaw,
		&svc.Active,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(schedRaw) > 0 {
		if err := json.Unmarshal(schedRaw, &svc.Schedule); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
	}
	if len(priceRaw) > 0 {
		if err := json.Unmarshal(priceRaw, &svc.PricesByWeekday); err != nil {
			return nil, fmt.Errorf("decode prices: %w", err)
		}
	}
	return &svc, nil
}
