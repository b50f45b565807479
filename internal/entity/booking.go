package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID              int64         `json:"id" db:"id"`
	EventID         int64         `json:"eventId" db:"event_id"`
	UserID          int64         `json:"userId" db:"user_id"`
	NumberOfTickets int           `json:"numberOfTickets" db:"number_of_tickets"`
	Status          BookingStatus `json:"status" db:"status"`
	BookingDate     time.Time     `json:"bookingDate" db:"booking_date"`
	ReminderSentAt  *time.Time    `json:"-" db:"reminder_sent_at"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

// CanBeManagedBy reports whether the user owns the booking or is an admin.
func (b *Booking) CanBeManagedBy(u *User) bool {
	return u != nil && (u.ID == b.UserID || u.IsAdmin())
}

// EventSummary is the slice of an event returned alongside bookings.
type EventSummary struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Date     time.Time       `json:"date"`
	Time     string          `json:"time"`
	Location string          `json:"location"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
}

func SummaryOf(e *Event) *EventSummary {
	return &EventSummary{
		ID:       e.ID,
		Title:    e.Title,
		Date:     e.Date,
		Time:     e.Time,
		Location: e.Location,
		Image:    e.Image,
		Price:    e.Price,
	}
}

type BookingWithEvent struct {
	Booking
	Event *EventSummary `json:"event"`
}

// BookingReminder is a confirmed booking whose event starts soon.
type BookingReminder struct {
	BookingID       int64     `json:"bookingId"`
	UserID          int64     `json:"userId"`
	UserEmail       string    `json:"userEmail"`
	UserName        string    `json:"userName"`
	EventID         int64     `json:"eventId"`
	EventTitle      string    `json:"eventTitle"`
	EventDate       time.Time `json:"eventDate"`
	EventTime       string    `json:"eventTime"`
	NumberOfTickets int       `json:"numberOfTickets"`
}
