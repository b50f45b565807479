package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	repository "github.com/ds124wfegd/eventbook/internal/database/postgres"
	"github.com/ds124wfegd/eventbook/internal/entity"
	"github.com/ds124wfegd/eventbook/internal/monitoring"
	"github.com/ds124wfegd/eventbook/pkg/broker"

	"github.com/sirupsen/logrus"
)

type CreateBookingRequest struct {
	EventID         int64 `json:"eventId"`
	NumberOfTickets *int  `json:"numberOfTickets,omitempty"`
}

// Tickets returns the requested ticket count, 1 when omitted.
func (r *CreateBookingRequest) Tickets() int {
	if r.NumberOfTickets == nil {
		return 1
	}
	return *r.NumberOfTickets
}

// BookingNotification is the payload of booking.created and booking.cancelled.
type BookingNotification struct {
	BookingID       int64     `json:"bookingId"`
	EventID         int64     `json:"eventId"`
	UserID          int64     `json:"userId"`
	NumberOfTickets int       `json:"numberOfTickets"`
	EventTitle      string    `json:"eventTitle,omitempty"`
	EventDate       time.Time `json:"eventDate"`
	ActorID         int64     `json:"actorId"`
}

type bookingService struct {
	tx          repository.Transactor
	bookingRepo repository.BookingRepository
	eventRepo   repository.EventRepository
	cache       EventCache
	publisher   Publisher
	now         func() time.Time
}

// NewBookingService wires the booking use cases. cache and publisher may be nil.
func NewBookingService(
	tx repository.Transactor,
	bookingRepo repository.BookingRepository,
	eventRepo repository.EventRepository,
	cache EventCache,
	publisher Publisher,
) BookingService {
	if cache == nil {
		cache = nopCache{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &bookingService{
		tx:          tx,
		bookingRepo: bookingRepo,
		eventRepo:   eventRepo,
		cache:       cache,
		publisher:   publisher,
		now:         time.Now,
	}
}

// CreateBooking locks the event row, sums the tickets already held and inserts
// the booking in the same transaction, so concurrent requests cannot oversell.
func (s *bookingService) CreateBooking(ctx context.Context, user *entity.User, req *CreateBookingRequest) (*entity.BookingWithEvent, error) {
	if user == nil {
		return nil, entity.ErrMissingToken
	}

	tickets := req.Tickets()
	if tickets < 1 {
		monitoring.TrackBooking("create", monitoring.OutcomeInvalid)
		return nil, entity.ErrInvalidTickets
	}
	if req.EventID <= 0 {
		monitoring.TrackBooking("create", monitoring.OutcomeInvalid)
		return nil, entity.NewValidationError("Event id is required")
	}

	var result *entity.BookingWithEvent
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.eventRepo.GetForUpdate(ctx, req.EventID)
		if err != nil {
			return err
		}
		if event.IsPast(s.now()) {
			return entity.ErrEventInPast
		}

		booked, err := s.bookingRepo.SumActiveTickets(ctx, event.ID)
		if err != nil {
			return err
		}
		if booked+tickets > event.Capacity {
			return &entity.CapacityError{Remaining: entity.AvailableSpots(event.Capacity, booked)}
		}

		booking := &entity.Booking{
			EventID:         event.ID,
			UserID:          user.ID,
			NumberOfTickets: tickets,
			Status:          entity.BookingStatusConfirmed,
			BookingDate:     s.now().UTC(),
		}
		if err := s.bookingRepo.Create(ctx, booking); err != nil {
			return err
		}

		result = &entity.BookingWithEvent{Booking: *booking, Event: entity.SummaryOf(event)}
		return nil
	})
	if err != nil {
		monitoring.TrackBooking("create", createOutcome(err))
		return nil, err
	}

	monitoring.TrackBooking("create", monitoring.OutcomeConfirmed)
	monitoring.TrackTicketsBooked(tickets)
	s.invalidate(ctx, req.EventID)

	logrus.WithFields(logrus.Fields{
		"booking_id": result.ID,
		"event_id":   result.EventID,
		"user_id":    user.ID,
		"tickets":    tickets,
	}).Info("Booking created")

	s.publish(ctx, broker.TopicBookingCreated, BookingNotification{
		BookingID:       result.ID,
		EventID:         result.EventID,
		UserID:          result.UserID,
		NumberOfTickets: result.NumberOfTickets,
		EventTitle:      result.Event.Title,
		EventDate:       result.Event.Date,
		ActorID:         user.ID,
	})
	return result, nil
}

func createOutcome(err error) string {
	switch {
	case errors.Is(err, entity.ErrCapacityExceeded):
		return monitoring.OutcomeCapacity
	case errors.Is(err, entity.ErrEventInPast):
		return monitoring.OutcomePastEvent
	case errors.Is(err, entity.ErrNotFound):
		return monitoring.OutcomeNotFound
	case errors.Is(err, entity.ErrValidation):
		return monitoring.OutcomeInvalid
	default:
		return monitoring.OutcomeError
	}
}

func (s *bookingService) CancelBooking(ctx context.Context, requester *entity.User, bookingID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if !booking.CanBeManagedBy(requester) {
		monitoring.TrackBooking("cancel", monitoring.OutcomeCancelDenied)
		return entity.ErrBookingCancelDenied
	}

	event, err := s.eventRepo.GetByID(ctx, booking.EventID)
	if err != nil {
		return err
	}
	if event.IsPast(s.now()) {
		return entity.ErrCancelPastEvent
	}

	if err := s.bookingRepo.Delete(ctx, bookingID); err != nil {
		return err
	}

	monitoring.TrackBooking("cancel", monitoring.OutcomeCancelled)
	s.invalidate(ctx, booking.EventID)

	logrus.WithFields(logrus.Fields{
		"booking_id":   bookingID,
		"event_id":     booking.EventID,
		"cancelled_by": requester.ID,
	}).Info("Booking cancelled")

	s.publish(ctx, broker.TopicBookingCancelled, BookingNotification{
		BookingID:       booking.ID,
		EventID:         booking.EventID,
		UserID:          booking.UserID,
		NumberOfTickets: booking.NumberOfTickets,
		EventTitle:      event.Title,
		EventDate:       event.Date,
		ActorID:         requester.ID,
	})
	return nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID int64) ([]*entity.BookingWithEvent, error) {
	bookings, err := s.bookingRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return bookings, nil
}

func (s *bookingService) SendReminders(ctx context.Context, window time.Duration, limit int) (int, error) {
	now := s.now().UTC()
	reminders, err := s.bookingRepo.GetPendingReminders(ctx, now, now.Add(window), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending reminders: %w", err)
	}

	sent := 0
	for _, reminder := range reminders {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		if err := s.publisher.Publish(ctx, broker.TopicBookingReminder, reminder); err != nil {
			monitoring.TrackBooking("remind", monitoring.OutcomeReminderError)
			logrus.WithError(err).WithField("booking_id", reminder.BookingID).Error("Failed to publish reminder")
			continue
		}
		if err := s.bookingRepo.MarkReminderSent(ctx, reminder.BookingID, now); err != nil {
			monitoring.TrackBooking("remind", monitoring.OutcomeReminderError)
			logrus.WithError(err).WithField("booking_id", reminder.BookingID).Error("Failed to mark reminder sent")
			continue
		}

		monitoring.TrackBooking("remind", monitoring.OutcomeReminderSent)
		sent++
	}
	return sent, nil
}

func (s *bookingService) invalidate(ctx context.Context, eventID int64) {
	ctx, cancel := afterCommit(ctx)
	defer cancel()

	if err := s.cache.DeleteEvent(ctx, eventID); err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Warn("Failed to invalidate cached event")
	}
}

func (s *bookingService) publish(ctx context.Context, topic string, payload any) {
	ctx, cancel := afterCommit(ctx)
	defer cancel()

	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		logrus.WithError(err).WithField("topic", topic).Error("Failed to publish notification")
	}
}
