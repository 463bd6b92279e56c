package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

type fakeOccupancy struct {
	counts map[string]int
	err    error
	calls  int
}

func (f *fakeOccupancy) CountBookings(ctx context.Context, businessID string, date time.Time, serviceID string) (map[string]int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.counts, nil
}

var (
	monday   = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	sunday   = time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)
)

func testBusiness() *schedule.Business {
	b := schedule.DefaultBusiness("studio-1")
	b.Hours = schedule.WeeklySlots{ByDay: map[string][]string{
		schedule.Monday:   {"14:00", "09:00", "10:00"},
		schedule.Saturday: {"08:00", "09:00"},
		schedule.Sunday:   {"10:00"},
	}}
	return b
}

func newTestResolver(occ OccupancyReader) *Resolver {
	return NewResolver(occ, nil, logging.Discard())
}

func labels(offers []Offer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.Label)
	}
	return out
}

func TestResolveEmptyOverrideClosesDay(t *testing.T) {
	occ := &fakeOccupancy{}
	svc := &schedule.Service{ID: "svc-1", Capacity: 1, Schedule: map[string][]string{schedule.Sunday: {}}}

	offers, err := newTestResolver(occ).Resolve(context.Background(), testBusiness(), svc, sunday)
	require.NoError(t, err)
	assert.Empty(t, offers)
	assert.NotNil(t, offers)
	assert.Equal(t, 0, occ.calls, "closed days do not hit the occupancy reader")
}

func TestResolveFallsBackToBusinessHoursSorted(t *testing.T) {
	svc := &schedule.Service{ID: "svc-1", Schedule: map[string][]string{schedule.Sunday: {}}}

	for _, date := range []time.Time{monday, saturday} {
		offers, err := newTestResolver(&fakeOccupancy{}).Resolve(context.Background(), testBusiness(), svc, date)
		require.NoError(t, err)
		want := schedule.SortedLabels(testBusiness().Hours.SlotsFor(schedule.WeekdayKey(date)))
		assert.Equal(t, want, labels(offers))
	}
}

func TestResolveUsesOverrideSorted(t *testing.T) {
	svc := &schedule.Service{ID: "svc-1", Schedule: map[string][]string{schedule.Monday: {"18:00", "07:30"}}}

	offers, err := newTestResolver(&fakeOccupancy{}).Resolve(context.Background(), testBusiness(), svc, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"07:30", "18:00"}, labels(offers))
}

func TestResolveLegacyHours(t *testing.T) {
	b := testBusiness()
	b.Hours = schedule.WeeklySlots{Legacy: []string{"11:00", "08:00"}}
	svc := &schedule.Service{ID: "svc-1"}

	offers, err := newTestResolver(&fakeOccupancy{}).Resolve(context.Background(), b, svc, sunday)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "11:00"}, labels(offers))
}

func TestResolveNoHoursIsEmptyNotError(t *testing.T) {
	svc := &schedule.Service{ID: "svc-1"}
	offers, err := newTestResolver(&fakeOccupancy{}).Resolve(context.Background(), schedule.DefaultBusiness("x"), svc, monday)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestResolveUnlimitedCapacity(t *testing.T) {
	occ := &fakeOccupancy{counts: map[string]int{"09:00": 40, "10:00": 3}}
	svc := &schedule.Service{ID: "svc-1", Capacity: 0}

	offers, err := newTestResolver(occ).Resolve(context.Background(), testBusiness(), svc, monday)
	require.NoError(t, err)
	require.Len(t, offers, 3)
	for _, o := range offers {
		assert.Nil(t, o.Remaining, o.Label)
		assert.True(t, o.Available, o.Label)
	}
}

func TestResolveFixedCapacity(t *testing.T) {
	for capacity := 1; capacity <= 3; capacity++ {
		for occupied := 0; occupied <= 4; occupied++ {
			occ := &fakeOccupancy{counts: map[string]int{"09:00": occupied}}
			svc := &schedule.Service{ID: "svc-1", Capacity: capacity}

			offers, err := newTestResolver(occ).Resolve(context.Background(), testBusiness(), svc, monday)
			require.NoError(t, err)
			offer, ok := FindOffer(offers, "09:00")
			require.True(t, ok)

			assert.Equal(t, occupied < capacity, offer.Available, "capacity=%d occupied=%d", capacity, occupied)
			require.NotNil(t, offer.Remaining)
			want := capacity - occupied
			if want < 0 {
				want = 0
			}
			assert.Equal(t, want, *offer.Remaining)
		}
	}
}

func TestResolveCapacityBoundaryKeepsFullSlot(t *testing.T) {
	occ := &fakeOccupancy{counts: map[string]int{"10:00": 2}}
	svc := &schedule.Service{ID: "svc-1", Capacity: 2}

	offers, err := newTestResolver(occ).Resolve(context.Background(), testBusiness(), svc, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "14:00"}, labels(offers))

	full, _ := FindOffer(offers, "10:00")
	assert.False(t, full.Available)
	assert.Equal(t, 0, *full.Remaining)

	for _, label := range []string{"09:00", "14:00"} {
		o, _ := FindOffer(offers, label)
		assert.True(t, o.Available)
		assert.Equal(t, 2, *o.Remaining)
	}
}

func TestResolveSurfacesOccupancyErrors(t *testing.T) {
	occ := &fakeOccupancy{err: errors.New("connection refused")}
	_, err := newTestResolver(occ).Resolve(context.Background(), testBusiness(), &schedule.Service{ID: "svc-1"}, monday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "availability: count bookings")
}

func TestResolveRequiresInputs(t *testing.T) {
	r := newTestResolver(&fakeOccupancy{})
	_, err := r.Resolve(context.Background(), nil, &schedule.Service{}, monday)
	assert.ErrorIs(t, err, ErrBusinessRequired)
	_, err = r.Resolve(context.Background(), testBusiness(), nil, monday)
	assert.ErrorIs(t, err, ErrServiceRequired)
}

func TestResolveExcludingIgnoresOtherDatesAndServices(t *testing.T) {
	occ := &fakeOccupancy{counts: map[string]int{"09:00": 1}}
	svc := &schedule.Service{ID: "svc-1", Capacity: 1}
	r := newTestResolver(occ)

	other := Holding{BookingID: "b1", ServiceID: "svc-2", Date: monday, Slot: "09:00", Active: true}
	offers, err := r.ResolveExcluding(context.Background(), testBusiness(), svc, monday, other)
	require.NoError(t, err)
	o, _ := FindOffer(offers, "09:00")
	assert.False(t, o.Available)

	cancelled := Holding{BookingID: "b1", ServiceID: "svc-1", Date: monday, Slot: "09:00"}
	offers, err = r.ResolveExcluding(context.Background(), testBusiness(), svc, monday, cancelled)
	require.NoError(t, err)
	o, _ = FindOffer(offers, "09:00")
	assert.False(t, o.Available)

	assert.Equal(t, 1, occ.counts["09:00"], "reader map is not mutated")
}
