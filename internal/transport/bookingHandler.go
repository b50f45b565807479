package transport

import (
	"net/http"

	"github.com/ds124wfegd/eventbook/internal/entity"
	"github.com/ds124wfegd/eventbook/internal/service"
	"github.com/ds124wfegd/eventbook/internal/transport/middleware"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// GetMyBookings lists the caller's bookings, newest first.
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	user := middleware.CurrentUser(c)

	bookings, err := h.bookingService.GetUserBookings(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	respondList(c, bookings)
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, booking)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := parseID(c, entity.ErrBookingNotFound)
	if !ok {
		return
	}

	if err := h.bookingService.CancelBooking(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{})
}
