package confirmation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/studio-scheduler/internal/audit"
	"github.com/wolfman30/studio-scheduler/internal/bookings"
	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/internal/notify"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// fakeStore follows the repository contract: conditional transitions and
// phone suffix lookups over upcoming bookings.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]*bookings.Booking
	err      error
}

func newFakeStore(list ...*bookings.Booking) *fakeStore {
	s := &fakeStore{bookings: map[string]*bookings.Booking{}}
	for _, b := range list {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *fakeStore) status(id string) bookings.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id].Status
}

func (s *fakeStore) Get(ctx context.Context, businessID, bookingID string) (*bookings.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.BusinessID != businessID {
		return nil, bookings.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) TransitionStatus(ctx context.Context, businessID, bookingID string, from []bookings.Status, to bookings.Status) (*bookings.Booking, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.BusinessID != businessID {
		return nil, false, bookings.ErrBookingNotFound
	}
	for _, f := range from {
		if b.Status == f {
			b.Status = to
			cp := *b
			return &cp, true, nil
		}
	}
	cp := *b
	return &cp, false, nil
}

func (s *fakeStore) match(businessID, suffix string, status bookings.Status, today time.Time) []*bookings.Booking {
	var out []*bookings.Booking
	for _, b := range s.bookings {
		if b.BusinessID == businessID && b.Status == status && !b.Date.Before(today) &&
			strings.HasSuffix(messaging.Digits(b.ClientPhone), suffix) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out
}

func (s *fakeStore) FindPendingByPhoneSuffix(ctx context.Context, businessID, suffix string, today time.Time) (*bookings.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.match(businessID, suffix, bookings.StatusPending, today)
	if len(out) == 0 {
		return nil, nil
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out[0], nil
}

func (s *fakeStore) FindConfirmedByPhoneSuffix(ctx context.Context, businessID, suffix string, today time.Time) (*bookings.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.match(businessID, suffix, bookings.StatusConfirmed, today)
	if len(out) == 0 {
		return nil, nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out[0], nil
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
	events []audit.Event
}

func (r *recordingAudit) Record(ctx context.Context, e audit.Event) error {
	r.events = append(r.events, e)
	return nil
}

var now = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

func day(value string) time.Time {
	d, err := schedule.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

func booking(id, phone string, status bookings.Status, date string) *bookings.Booking {
	return &bookings.Booking{
		ID:          id,
		BusinessID:  "studio-1",
		ClientName:  "Ana",
		ClientPhone: phone,
		ServiceID:   "svc-1",
		ServiceName: "Bronze natural",
		PriceCents:  9000,
		Date:        day(date),
		Slot:        "09:00",
		Status:      status,
		CreatedAt:   now.Add(-time.Hour),
	}
}

type harness struct {
	store     *fakeStore
	messenger *recordingMessenger
	audit     *recordingAudit
	business  *schedule.Business
	machine   *Machine
}

func newHarness(list ...*bookings.Booking) *harness {
	business := schedule.DefaultBusiness("studio-1")
	business.Name = "Sol & Bronze"
	business.Timezone = "America/Sao_Paulo"
	business.Asset = schedule.AssetCard{ImageURL: "https://cdn.example.com/card.png", Caption: "Chave no cofre 4321"}

	h := &harness{
		store:     newFakeStore(list...),
		messenger: &recordingMessenger{},
		audit:     &recordingAudit{},
		business:  business,
	}
	logger := logging.Discard()
	h.machine = NewMachine(Deps{
		Store:      h.store,
		Dispatcher: notify.NewDispatcher(h.messenger, nil, nil, logger),
		Fanout:     notify.NewFanout(time.Second, logger),
		Audit:      h.audit,
		Logger:     logger,
	})
	h.machine.now = func() time.Time { return now }
	return h
}

func (h *harness) handle(event Event) Result {
	return h.machine.Handle(context.Background(), h.business, event)
}

func button(id string) Event {
	return Event{Kind: EventButton, ButtonID: id, Phone: "5561999990000"}
}

func text(phone, body string) Event {
	return Event{Kind: EventText, Phone: phone, Text: body}
}
