package bookings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/studio-scheduler/internal/audit"
	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/internal/notify"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// memStore mirrors the repository contract in memory; capacity checks and
// writes happen under one lock like the advisory lock in Postgres.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	clients  map[string]bool
	seq      int
}

func newMemStore() *memStore {
	return &memStore{bookings: map[string]*Booking{}, clients: map[string]bool{}}
}

func (m *memStore) occupied(businessID string, date time.Time, serviceID, slot, excludeID string) int {
	n := 0
	for _, b := range m.bookings {
		if b.BusinessID == businessID && b.ServiceID == serviceID && schedule.SameDate(b.Date, date) &&
			b.Slot == slot && b.Status.Occupies() && b.ID != excludeID {
			n++
		}
	}
	return n
}

func (m *memStore) CountBookings(ctx context.Context, businessID string, date time.Time, serviceID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, b := range m.bookings {
		if b.BusinessID == businessID && b.ServiceID == serviceID && schedule.SameDate(b.Date, date) && b.Status.Occupies() {
			out[b.Slot]++
		}
	}
	return out, nil
}

func (m *memStore) InsertWithinCapacity(ctx context.Context, rec NewBooking, capacity int) (*Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if capacity > 0 && m.occupied(rec.BusinessID, rec.Date, rec.ServiceID, rec.Slot, "") >= capacity {
		return nil, false, ErrSlotFull
	}
	created := false
	if digits := messaging.Digits(rec.ClientPhone); digits != "" && !m.clients[rec.BusinessID+digits] {
		m.clients[rec.BusinessID+digits] = true
		created = true
	}
	m.seq++
	b := &Booking{
		ID:          fmt.Sprintf("b-%d", m.seq),
		BusinessID:  rec.BusinessID,
		ClientName:  rec.ClientName,
		ClientPhone: rec.ClientPhone,
		ServiceID:   rec.ServiceID,
		ServiceName: rec.ServiceName,
		PriceCents:  rec.PriceCents,
		Date:        rec.Date,
		Slot:        rec.Slot,
		Status:      rec.Status,
		Source:      rec.Source,
		Notes:       rec.Notes,
		CreatedAt:   time.Now(),
	}
	m.bookings[b.ID] = b
	cp := *b
	return &cp, created, nil
}

func (m *memStore) MoveWithinCapacity(ctx context.Context, businessID, bookingID string, newDate time.Time, newSlot string, newStatus Status, capacity int) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.BusinessID != businessID || b.Status == StatusCancelled {
		return nil, ErrBookingNotFound
	}
	if capacity > 0 && m.occupied(businessID, newDate, b.ServiceID, newSlot, bookingID) >= capacity {
		return nil, ErrSlotFull
	}
	b.Date, b.Slot = newDate, newSlot
	if newStatus != "" {
		b.Status = newStatus
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) SetStatus(ctx context.Context, businessID, bookingID string, to Status) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.BusinessID != businessID {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	cp := *b
	return &cp, nil
}

func (m *memStore) Get(ctx context.Context, businessID, bookingID string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.BusinessID != businessID {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ListByDate(ctx context.Context, businessID string, date time.Time) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.BusinessID == businessID && schedule.SameDate(b.Date, date) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memServices struct {
	services map[string]*schedule.Service
}

func (m *memServices) Get(ctx context.Context, businessID, serviceID string) (*schedule.Service, error) {
	svc, ok := m.services[serviceID]
	if !ok || svc.BusinessID != businessID {
		return nil, schedule.ErrServiceNotFound
	}
	cp := *svc
	return &cp, nil
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []messaging.Message
	fail bool
}

func (r *recordingMessenger) Send(ctx context.Context, msg messaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("instance offline")
	}
	r.sent = append(r.sent, msg)
	return nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Record(ctx context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

var (
	today    = time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)
	saturday = "2026-10-24"
	monday   = "2026-10-26"
)

type fixture struct {
	store     *memStore
	services  *memServices
	messenger *recordingMessenger
	audit     *recordingAudit
	business  *schedule.Business
	svc       *Service
}

func newFixture() *fixture {
	business := schedule.DefaultBusiness("studio-1")
	business.Name = "Sol & Bronze"
	business.Timezone = "UTC"
	business.Hours = schedule.WeeklySlots{ByDay: map[string][]string{
		schedule.Monday:   {"09:00", "10:00", "14:00"},
		schedule.Saturday: {"08:00", "09:00"},
	}}
	business.Notifications.Enabled = true
	business.Notifications.OperatorPhones = []string{"+5561999990000"}

	f := &fixture{
		store: newMemStore(),
		services: &memServices{services: map[string]*schedule.Service{
			"svc-1": {
				ID: "svc-1", BusinessID: "studio-1", Name: "Bronze natural",
				BasePriceCents: 8000, Capacity: 1, Active: true,
				PricesByWeekday: map[string]int64{schedule.Saturday: 9000},
			},
			"svc-off": {ID: "svc-off", BusinessID: "studio-1", Name: "Antigo", Active: false},
		}},
		messenger: &recordingMessenger{},
		audit:     &recordingAudit{},
		business:  business,
	}
	logger := logging.Discard()
	f.svc = NewService(ServiceDeps{
		Store:      f.store,
		Services:   f.services,
		Dispatcher: notify.NewDispatcher(f.messenger, nil, nil, logger),
		Fanout:     notify.NewFanout(time.Second, logger),
		Audit:      f.audit,
		Logger:     logger,
	})
	f.svc.now = func() time.Time { return today }
	return f
}

func (f *fixture) create(req CreateRequest) (*CreateResult, error) {
	return f.svc.Create(context.Background(), f.business, req)
}

func validRequest() CreateRequest {
	return CreateRequest{
		ServiceID:   "svc-1",
		Date:        saturday,
		Slot:        "09:00",
		ClientName:  "Ana",
		ClientPhone: "+55 61 99241-5188",
	}
}
