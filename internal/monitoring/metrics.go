package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes
const (
	OutcomeConfirmed     = "confirmed"
	OutcomeCapacity      = "capacity_exceeded"
	OutcomePastEvent     = "past_event"
	OutcomeInvalid       = "invalid"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"
	OutcomeCancelled     = "cancelled"
	OutcomeCancelDenied  = "cancel_denied"
	OutcomeReminderSent  = "reminder_sent"
	OutcomeReminderError = "reminder_error"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbook_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventbook_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbook_booking_operations_total",
			Help: "Booking operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	ticketsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbook_tickets_booked_total",
			Help: "Tickets sold through confirmed bookings",
		},
	)
)

func TrackHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackBooking(operation, outcome string) {
	bookingOperations.WithLabelValues(operation, outcome).Inc()
}

func TrackTicketsBooked(n int) {
	ticketsBooked.Add(float64(n))
}
