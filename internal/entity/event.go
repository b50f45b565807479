package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Prices go over the wire as JSON numbers; the web client does arithmetic on them.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Category string

const (
	CategoryConference Category = "conference"
	CategoryWorkshop   Category = "workshop"
	CategorySeminar    Category = "seminar"
	CategoryConcert    Category = "concert"
	CategoryExhibition Category = "exhibition"
	CategorySport      Category = "sport"
	CategoryNetworking Category = "networking"
	CategoryOther      Category = "other"
)

var categories = map[Category]struct{}{
	CategoryConference: {},
	CategoryWorkshop:   {},
	CategorySeminar:    {},
	CategoryConcert:    {},
	CategoryExhibition: {},
	CategorySport:      {},
	CategoryNetworking: {},
	CategoryOther:      {},
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

const (
	MaxTitleLength = 100
	DefaultImage   = "https://images.pexels.com/photos/2747449/pexels-photo-2747449.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=1"
)

type Event struct {
	ID          int64           `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Category    Category        `json:"category" db:"category"`
	Location    string          `json:"location" db:"location"`
	Date        time.Time       `json:"date" db:"date"`
	Time        string          `json:"time" db:"time"`
	Duration    int             `json:"duration" db:"duration"`
	Capacity    int             `json:"capacity" db:"capacity"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Image       string          `json:"image" db:"image"`
	OrganizerID int64           `json:"organizerId" db:"organizer_id"`
	Featured    bool            `json:"featured" db:"featured"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// Organizer is the public part of the owning user shown next to an event.
type Organizer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type EventWithAvailability struct {
	Event
	Organizer      *Organizer `json:"organizer,omitempty"`
	BookedSpots    int        `json:"bookedSpots"`
	AvailableSpots int        `json:"availableSpots"`
}

func NewEventWithAvailability(e Event, booked int) *EventWithAvailability {
	return &EventWithAvailability{
		Event:          e,
		BookedSpots:    booked,
		AvailableSpots: AvailableSpots(e.Capacity, booked),
	}
}

// AvailableSpots never goes below zero, even for legacy rows booked past capacity.
func AvailableSpots(capacity, booked int) int {
	if booked >= capacity {
		return 0
	}
	return capacity - booked
}

// IsPast reports whether the event date is strictly before now.
func (e *Event) IsPast(now time.Time) bool {
	return e.Date.Before(now)
}

// EventFilter narrows the public event listing. Zero values mean "no filter".
type EventFilter struct {
	Category Category
	DateFrom time.Time
	DateTo   time.Time // exclusive
	Location string
	Search   string
}

// Validate checks the invariants every stored event must satisfy.
func (e *Event) Validate() error {
	var problems []string

	if strings.TrimSpace(e.Title) == "" {
		problems = append(problems, "Event title is required")
	} else if utf8.RuneCountInString(e.Title) > MaxTitleLength {
		problems = append(problems, "Title cannot be more than 100 characters")
	}
	if strings.TrimSpace(e.Description) == "" {
		problems = append(problems, "Event description is required")
	}
	if e.Category == "" {
		problems = append(problems, "Event category is required")
	} else if !e.Category.Valid() {
		problems = append(problems, "Event category is not supported")
	}
	if strings.TrimSpace(e.Location) == "" {
		problems = append(problems, "Event location is required")
	}
	if e.Date.IsZero() {
		problems = append(problems, "Event date is required")
	}
	if !validClock(e.Time) {
		problems = append(problems, "Event time is required (HH:MM)")
	}
	if e.Duration < 1 {
		problems = append(problems, "Event duration must be at least 1 minute")
	}
	if e.Capacity < 1 {
		problems = append(problems, "Event capacity must be at least 1")
	}
	if e.Price.IsNegative() {
		problems = append(problems, "Event price cannot be negative")
	}

	if len(problems) > 0 {
		return NewValidationError(problems...)
	}
	return nil
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", strings.TrimSpace(s))
	return err == nil
}

// CanBeManagedBy reports whether the user organizes the event or is an admin.
func (e *Event) CanBeManagedBy(u *User) bool {
	return u != nil && (u.ID == e.OrganizerID || u.IsAdmin())
}
