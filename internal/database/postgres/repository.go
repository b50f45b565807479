package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/eventbook/internal/entity"
)

// Transactor scopes several repository calls to one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id int64) (*entity.EventWithAvailability, error)
	// GetForUpdate locks the event row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*entity.Event, error)
	List(ctx context.Context, filter entity.EventFilter) ([]*entity.EventWithAvailability, error)
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id int64) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id int64) (*entity.Booking, error)
	GetByUserID(ctx context.Context, userID int64) ([]*entity.BookingWithEvent, error)
	// SumActiveTickets sums tickets over the event's non-cancelled bookings.
	SumActiveTickets(ctx context.Context, eventID int64) (int, error)
	Delete(ctx context.Context, id int64) error
	DeleteByEventID(ctx context.Context, eventID int64) (int64, error)

	GetPendingReminders(ctx context.Context, from, to time.Time, limit int) ([]*entity.BookingReminder, error)
	MarkReminderSent(ctx context.Context, bookingID int64, at time.Time) error
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
