package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	repository "github.com/ds124wfegd/eventbook/internal/database/postgres"
	"github.com/ds124wfegd/eventbook/internal/entity"
	"github.com/ds124wfegd/eventbook/pkg/broker"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var errCacheDisabled = errors.New("cache disabled")

type CreateEventRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    entity.Category  `json:"category"`
	Location    string           `json:"location"`
	Date        entity.EventDate `json:"date"`
	Time        string           `json:"time"`
	Duration    int              `json:"duration"`
	Capacity    int              `json:"capacity"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Image       string           `json:"image,omitempty"`
	Featured    bool             `json:"featured"`
}

// UpdateEventRequest is a partial patch: nil fields are left untouched.
type UpdateEventRequest struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Category    *entity.Category  `json:"category,omitempty"`
	Location    *string           `json:"location,omitempty"`
	Date        *entity.EventDate `json:"date,omitempty"`
	Time        *string           `json:"time,omitempty"`
	Duration    *int              `json:"duration,omitempty"`
	Capacity    *int              `json:"capacity,omitempty"`
	Price       *decimal.Decimal  `json:"price,omitempty"`
	Image       *string           `json:"image,omitempty"`
	Featured    *bool             `json:"featured,omitempty"`
}

// EventDeleted is published after an event and its bookings are removed.
type EventDeleted struct {
	EventID           int64  `json:"eventId"`
	Title             string `json:"title"`
	DeletedBy         int64  `json:"deletedBy"`
	CancelledBookings int64  `json:"cancelledBookings"`
}

type eventService struct {
	tx          repository.Transactor
	eventRepo   repository.EventRepository
	bookingRepo repository.BookingRepository
	cache       EventCache
	publisher   Publisher
}

// NewEventService wires the event use cases. cache and publisher may be nil.
func NewEventService(
	tx repository.Transactor,
	eventRepo repository.EventRepository,
	bookingRepo repository.BookingRepository,
	cache EventCache,
	publisher Publisher,
) EventService {
	if cache == nil {
		cache = nopCache{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &eventService{
		tx:          tx,
		eventRepo:   eventRepo,
		bookingRepo: bookingRepo,
		cache:       cache,
		publisher:   publisher,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, organizer *entity.User, req *CreateEventRequest) (*entity.EventWithAvailability, error) {
	if organizer == nil {
		return nil, entity.ErrMissingToken
	}

	event := &entity.Event{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Location:    strings.TrimSpace(req.Location),
		Date:        req.Date.Time,
		Time:        strings.TrimSpace(req.Time),
		Duration:    req.Duration,
		Capacity:    req.Capacity,
		Price:       decimal.Zero,
		Image:       strings.TrimSpace(req.Image),
		OrganizerID: organizer.ID,
		Featured:    req.Featured,
	}
	if req.Price != nil {
		event.Price = *req.Price
	}
	if event.Image == "" {
		event.Image = entity.DefaultImage
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":     event.ID,
		"organizer_id": organizer.ID,
	}).Info("Event created")

	created := entity.NewEventWithAvailability(*event, 0)
	created.Organizer = &entity.Organizer{ID: organizer.ID, Name: organizer.Name, Email: organizer.Email}
	return created, nil
}

func (s *eventService) GetEvent(ctx context.Context, id int64) (*entity.EventWithAvailability, error) {
	if cached, err := s.cache.GetEvent(ctx, id); err == nil {
		return cached, nil
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEvent(ctx, event); err != nil {
		logrus.WithError(err).WithField("event_id", id).Warn("Failed to cache event")
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter entity.EventFilter) ([]*entity.EventWithAvailability, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, entity.NewValidationError(fmt.Sprintf("Unknown category %q", filter.Category))
	}

	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, requester *entity.User, id int64, req *UpdateEventRequest) (*entity.EventWithAvailability, error) {
	existing, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.CanBeManagedBy(requester) {
		return nil, entity.ErrEventUpdateDenied
	}

	event := existing.Event
	if err := applyEventPatch(&event, req); err != nil {
		return nil, err
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Update(ctx, &event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	s.invalidate(ctx, id)

	updated := entity.NewEventWithAvailability(event, existing.BookedSpots)
	updated.Organizer = existing.Organizer
	return updated, nil
}

func applyEventPatch(e *entity.Event, req *UpdateEventRequest) error {
	if req.Capacity != nil && *req.Capacity != e.Capacity {
		return entity.ErrCapacityNotEditable
	}
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.Location != nil {
		e.Location = strings.TrimSpace(*req.Location)
	}
	if req.Date != nil {
		e.Date = req.Date.Time
	}
	if req.Time != nil {
		e.Time = strings.TrimSpace(*req.Time)
	}
	if req.Duration != nil {
		e.Duration = *req.Duration
	}
	if req.Price != nil {
		e.Price = *req.Price
	}
	if req.Image != nil {
		e.Image = strings.TrimSpace(*req.Image)
		if e.Image == "" {
			e.Image = entity.DefaultImage
		}
	}
	if req.Featured != nil {
		e.Featured = *req.Featured
	}
	return nil
}

func (s *eventService) DeleteEvent(ctx context.Context, requester *entity.User, id int64) error {
	var deleted EventDeleted

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.eventRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !event.CanBeManagedBy(requester) {
			return entity.ErrEventDeleteDenied
		}

		removed, err := s.bookingRepo.DeleteByEventID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.eventRepo.Delete(ctx, id); err != nil {
			return err
		}

		deleted = EventDeleted{
			EventID:           id,
			Title:             event.Title,
			DeletedBy:         requester.ID,
			CancelledBookings: removed,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)

	logrus.WithFields(logrus.Fields{
		"event_id":           id,
		"deleted_by":         requester.ID,
		"cancelled_bookings": deleted.CancelledBookings,
	}).Info("Event deleted")

	notifyCtx, cancel := afterCommit(ctx)
	defer cancel()
	if err := s.publisher.Publish(notifyCtx, broker.TopicEventDeleted, deleted); err != nil {
		logrus.WithError(err).WithField("event_id", id).Error("Failed to publish event deletion")
	}
	return nil
}

func (s *eventService) invalidate(ctx context.Context, id int64) {
	ctx, cancel := afterCommit(ctx)
	defer cancel()

	if err := s.cache.DeleteEvent(ctx, id); err != nil {
		logrus.WithError(err).WithField("event_id", id).Warn("Failed to invalidate cached event")
	}
}
