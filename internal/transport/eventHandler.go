package transport

import (
	"net/http"
	"strings"

	"github.com/ds124wfegd/eventbook/internal/entity"
	"github.com/ds124wfegd/eventbook/internal/service"
	"github.com/ds124wfegd/eventbook/internal/transport/middleware"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	eventService service.EventService
}

func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, entity.NewValidationError("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

// ListEvents handles GET /api/events?category=&date=YYYY-MM-DD&location=&search=
func (h *EventHandler) ListEvents(c *gin.Context) {
	filter := entity.EventFilter{
		Category: entity.Category(strings.TrimSpace(c.Query("category"))),
		Location: strings.TrimSpace(c.Query("location")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if day := strings.TrimSpace(c.Query("date")); day != "" {
		from, to, err := entity.DayRange(day)
		if err != nil {
			writeError(c, entity.NewValidationError(err.Error()))
			return
		}
		filter.DateFrom, filter.DateTo = from, to
	}

	events, err := h.eventService.ListEvents(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	respondList(c, events)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := parseID(c, entity.ErrEventNotFound)
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, event)
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, event)
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := parseID(c, entity.ErrEventNotFound)
	if !ok {
		return
	}

	var req service.UpdateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), middleware.CurrentUser(c), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, event)
}

func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := parseID(c, entity.ErrEventNotFound)
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{})
}
