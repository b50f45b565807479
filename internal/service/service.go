package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/eventbook/internal/entity"
)

type EventService interface {
	CreateEvent(ctx context.Context, organizer *entity.User, req *CreateEventRequest) (*entity.EventWithAvailability, error)
	GetEvent(ctx context.Context, id int64) (*entity.EventWithAvailability, error)
	ListEvents(ctx context.Context, filter entity.EventFilter) ([]*entity.EventWithAvailability, error)
	UpdateEvent(ctx context.Context, requester *entity.User, id int64, req *UpdateEventRequest) (*entity.EventWithAvailability, error)
	// DeleteEvent removes the event together with all of its bookings.
	DeleteEvent(ctx context.Context, requester *entity.User, id int64) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, user *entity.User, req *CreateBookingRequest) (*entity.BookingWithEvent, error)
	CancelBooking(ctx context.Context, requester *entity.User, bookingID int64) error
	GetUserBookings(ctx context.Context, userID int64) ([]*entity.BookingWithEvent, error)

	// SendReminders notifies holders of confirmed bookings for events starting
	// within window and returns how many reminders went out.
	SendReminders(ctx context.Context, window time.Duration, limit int) (int, error)
}

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
	// Authenticate resolves a bearer token to the stored user.
	Authenticate(ctx context.Context, token string) (*entity.User, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
}

// EventCache keeps rendered event reads. Implementations may drop entries at any time.
type EventCache interface {
	GetEvent(ctx context.Context, id int64) (*entity.EventWithAvailability, error)
	SetEvent(ctx context.Context, event *entity.EventWithAvailability) error
	DeleteEvent(ctx context.Context, id int64) error
}

// Publisher sends domain notifications; see pkg/broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// afterCommitTimeout bounds side effects that run once a transaction has
// committed, broker retries included.
const afterCommitTimeout = 10 * time.Second

// afterCommit detaches ctx from the request so a disconnecting client or an
// expired request deadline cannot drop a cache invalidation or notification
// for a change that is already stored.
func afterCommit(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
}

type nopCache struct{}

func (nopCache) GetEvent(context.Context, int64) (*entity.EventWithAvailability, error) {
	return nil, errCacheDisabled
}
func (nopCache) SetEvent(context.Context, *entity.EventWithAvailability) error { return nil }
func (nopCache) DeleteEvent(context.Context, int64) error                      { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }
