package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveInbound("button", "confirmed")
	m.ObserveInbound("button", "confirmed")
	m.ObserveNotification("access_card", nil)
	m.ObserveNotification("access_card", errors.New("boom"))
	m.ObserveBookingCreated("")
	m.ObserveSlotConflict("insert")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inboundTotal.WithLabelValues("button", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("access_card", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotConflicts.WithLabelValues("insert")))
}

func TestBookingMetricsInboundName(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveInbound("text", "card_resent")

	families, err := reg.Gather()
	assert.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == InboundEventName {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBookingMetricsHistograms(t *testing.T) {
	m := NewBookingMetrics(prometheus.NewRegistry())
	m.ObserveAvailabilityLatency("resolve", 0.01)
	m.ObserveWebhookLatency("text", 0.2)
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveInbound("button", "ignored")
	m.ObserveNotification("welcome_client", nil)
	m.ObserveBookingCreated("public")
	m.ObserveSlotConflict("move")
	m.ObserveAvailabilityLatency("resolve", 0.1)
	m.ObserveWebhookLatency("button", 0.1)
}
