package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metric names shared with the dashboard snapshot.
const (
	Namespace        = "studio"
	InboundEventName = "studio_booking_inbound_events_total"
)

// BookingMetrics exposes counters/histograms for booking and confirmation flows.
type BookingMetrics struct {
	inboundTotal        *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	bookingsTotal       *prometheus.CounterVec
	slotConflicts       *prometheus.CounterVec
	availabilityLatency *prometheus.HistogramVec
	webhookLatency      *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "booking",
			Name:      "inbound_events_total",
			Help:      "Inbound WhatsApp events by resulting tag",
		}, []string{"kind", "tag"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "booking",
			Name:      "notifications_total",
			Help:      "Outbound notifications by kind and status",
		}, []string{"kind", "status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Bookings created by source",
		}, []string{"source"}),
		slotConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "booking",
			Name:      "slot_conflicts_total",
			Help:      "Writes refused because the slot was full",
		}, []string{"operation"}),
		availabilityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "booking",
			Name:      "availability_latency_seconds",
			Help:      "Latency of availability resolution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "booking",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.inboundTotal,
		m.notificationsTotal,
		m.bookingsTotal,
		m.slotConflicts,
		m.availabilityLatency,
		m.webhookLatency,
	)
	return m
}

func (m *BookingMetrics) ObserveInbound(kind, tag string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, tag).Inc()
}

func (m *BookingMetrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(kind, status).Inc()
}

func (m *BookingMetrics) ObserveBookingCreated(source string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	m.bookingsTotal.WithLabelValues(source).Inc()
}

func (m *BookingMetrics) ObserveSlotConflict(operation string) {
	if m == nil {
		return
	}
	m.slotConflicts.WithLabelValues(operation).Inc()
}

func (m *BookingMetrics) ObserveAvailabilityLatency(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.WithLabelValues(mode).Observe(seconds)
}

func (m *BookingMetrics) ObserveWebhookLatency(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(kind).Observe(seconds)
}
