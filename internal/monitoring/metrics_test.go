package monitoring

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackBooking(t *testing.T) {
	before := testutil.ToFloat64(bookingOperations.WithLabelValues("create", OutcomeConfirmed))

	TrackBooking("create", OutcomeConfirmed)
	TrackBooking("create", OutcomeConfirmed)

	after := testutil.ToFloat64(bookingOperations.WithLabelValues("create", OutcomeConfirmed))
	assert.Equal(t, before+2, after)
}

func TestTrackHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/events", "200"))

	TrackHTTPRequest(http.MethodGet, "/api/events", http.StatusOK, 15*time.Millisecond)

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/events", "200"))
	assert.Equal(t, before+1, after)
}

func TestTrackTicketsBooked(t *testing.T) {
	before := testutil.ToFloat64(ticketsBooked)
	TrackTicketsBooked(3)
	assert.Equal(t, before+3, testutil.ToFloat64(ticketsBooked))
}
